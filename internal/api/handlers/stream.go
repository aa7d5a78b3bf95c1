package handlers

import (
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/CedricEugeni/MoMentor/internal/realtime/stream"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// StreamHandler upgrades /ws/portfolio connections and pumps hub updates to them
type StreamHandler struct {
	hub       *stream.Hub
	publisher *stream.Publisher
	upgrader  websocket.Upgrader
	origins   map[string]struct{}
	logger    *logger.Logger
}

// NewStreamHandler creates a new stream handler. An empty origin list accepts any origin.
func NewStreamHandler(hub *stream.Hub, publisher *stream.Publisher, allowedOrigins []string, log *logger.Logger) *StreamHandler {
	h := &StreamHandler{
		hub:       hub,
		publisher: publisher,
		origins:   make(map[string]struct{}, len(allowedOrigins)),
		logger:    log,
	}
	for _, o := range allowedOrigins {
		h.origins[o] = struct{}{}
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *StreamHandler) checkOrigin(r *http.Request) bool {
	if len(h.origins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	_, ok := h.origins[u.Scheme+"://"+u.Host]
	return ok
}

// Portfolio streams valuation updates
// GET /ws/portfolio
func (h *StreamHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := stream.NewClient(uuid.NewString())
	log := h.logger.WithField("client_id", client.ID())
	h.hub.Register(client)
	log.Info("Portfolio stream connected")

	// 첫 연결 시 즉시 평가값 전송
	if h.publisher != nil {
		go h.publisher.Publish(r.Context())
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.readPump(conn)
	}()
	h.writePump(conn, client, done)

	h.hub.Unregister(client)
	conn.Close()
	log.Info("Portfolio stream disconnected")
}

// writePump drains the client queue until it closes or the reader stops
func (h *StreamHandler) writePump(conn *websocket.Conn, client *stream.Client, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.Updates():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// readPump only handles pongs and close frames (server → client stream)
func (h *StreamHandler) readPump(conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WithError(err).Debug("WebSocket read error")
			}
			return
		}
	}
}
