package stream

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/internal/realtime"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

// Update types
const (
	TypeValuation = "valuation"
	TypeError     = "error"
)

// PortfolioSource values the latest confirmed portfolio (nil when nothing was confirmed)
type PortfolioSource interface {
	CurrentPortfolio(ctx context.Context) (*contracts.Valuation, error)
}

// Publisher turns feed refreshes into websocket updates
type Publisher struct {
	hub       *Hub
	portfolio PortfolioSource
	logger    *logger.Logger
	now       func() time.Time
}

// NewPublisher creates a new publisher
func NewPublisher(hub *Hub, portfolio PortfolioSource, log *logger.Logger) *Publisher {
	return &Publisher{
		hub:       hub,
		portfolio: portfolio,
		logger:    log,
		now:       time.Now,
	}
}

// OnRefresh matches realtime/feed.RefreshFunc
func (p *Publisher) OnRefresh(ctx context.Context, _ map[string]decimal.Decimal, _ error) {
	if p.hub.ClientCount() == 0 {
		return
	}
	p.Publish(ctx)
}

// Publish values the portfolio and broadcasts the result
func (p *Publisher) Publish(ctx context.Context) {
	msg := realtime.PortfolioUpdate{Type: TypeValuation, SentAt: p.now().UTC()}

	val, err := p.portfolio.CurrentPortfolio(ctx)
	switch {
	case err != nil:
		p.logger.WithError(err).Warn("Portfolio valuation failed")
		msg.Type = TypeError
		msg.Error = err.Error()
	case val == nil:
		// 확인된 포트폴리오 없음
		msg.Payload = nil
	default:
		msg.Payload = val
	}

	p.hub.Broadcast(msg)
}
