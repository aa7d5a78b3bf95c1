package stream

import (
	"context"
	"sync"

	"github.com/CedricEugeni/MoMentor/internal/realtime"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

const sendBuffer = 16

// Client is one websocket subscriber
type Client struct {
	id     string
	send   chan realtime.PortfolioUpdate
	mu     sync.Mutex
	closed bool
}

// NewClient creates a new client
func NewClient(id string) *Client {
	return &Client{
		id:   id,
		send: make(chan realtime.PortfolioUpdate, sendBuffer),
	}
}

// ID returns the client id
func (c *Client) ID() string {
	return c.id
}

// Send queues an update without blocking. It returns false when the client is slow or closed.
func (c *Client) Send(msg realtime.PortfolioUpdate) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Updates returns the channel the write pump drains
func (c *Client) Updates() <-chan realtime.PortfolioUpdate {
	return c.send
}

// Close closes the client once
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub fans portfolio updates out to websocket clients
// ⭐ SSOT: /ws/portfolio 구독자 관리
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	last    *realtime.PortfolioUpdate
	logger  *logger.Logger
}

// NewHub creates a new hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  log,
	}
}

// Register adds a client and replays the last update so new subscribers see a value immediately
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	last := h.last
	total := len(h.clients)
	h.mu.Unlock()

	if last != nil {
		c.Send(*last)
	}
	h.logger.WithFields(map[string]interface{}{
		"client_id":     c.id,
		"total_clients": total,
	}).Debug("Client registered")
}

// Unregister removes and closes a client
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
	}
	h.mu.Unlock()
	c.Close()
}

// Broadcast sends an update to every client. Slow clients are dropped.
func (h *Hub) Broadcast(msg realtime.PortfolioUpdate) {
	h.mu.Lock()
	h.last = &msg
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if !c.Send(msg) {
			h.logger.WithField("client_id", c.id).Warn("Dropping slow websocket client")
			h.Unregister(c)
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.Close()
	}
}

// Run closes the hub when ctx is done
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.Close()
}
