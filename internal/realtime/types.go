package realtime

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is one live price observation
// ⭐ SSOT: 실시간 시세 데이터 구조
type Quote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"` // 조회 시각
	Source    string          `json:"source"`    // "YAHOO", "REDIS"
	IsStale   bool            `json:"is_stale"`
}

// PriceSource represents where a quote came from
type PriceSource string

const (
	SourceYahoo PriceSource = "YAHOO"
	SourceRedis PriceSource = "REDIS" // 다른 프로세스가 받아온 공유 캐시
)

// Priority returns priority for source (higher = better)
func (s PriceSource) Priority() int {
	switch s {
	case SourceYahoo:
		return 2
	case SourceRedis:
		return 1
	default:
		return 0
	}
}

// PortfolioUpdate is pushed to websocket subscribers after each refresh
type PortfolioUpdate struct {
	Type    string      `json:"type"` // "valuation", "error"
	Payload interface{} `json:"payload,omitempty"`
	Error   string      `json:"error,omitempty"`
	SentAt  time.Time   `json:"sent_at"`
}
