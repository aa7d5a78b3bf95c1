package contracts

import (
	"github.com/shopspring/decimal"
)

// SubmittedPosition is one line of a user confirmation
type SubmittedPosition struct {
	Symbol   string          `json:"symbol" yaml:"symbol"`
	Shares   decimal.Decimal `json:"shares" yaml:"shares"`
	AvgPrice decimal.Decimal `json:"avg_price" yaml:"avg_price"`
}

// Submission is the user's reported fills for a run
type Submission struct {
	Positions []SubmittedPosition `json:"positions" yaml:"positions"`
	Cash      decimal.Decimal     `json:"cash" yaml:"cash"`
	Force     bool                `json:"force" yaml:"force"`
}

// Holdings converts the submitted positions into holdings
func (s *Submission) Holdings() []Holding {
	out := make([]Holding, 0, len(s.Positions))
	for _, p := range s.Positions {
		out = append(out, Holding{Symbol: p.Symbol, Shares: p.Shares, AvgPrice: p.AvgPrice})
	}
	return out
}

// OutcomeKind enumerates reconciliation results
type OutcomeKind string

const (
	OutcomeConfirmed             OutcomeKind = "confirmed"
	OutcomeWarning               OutcomeKind = "warning"
	OutcomeMarketDataUnavailable OutcomeKind = "market_data_unavailable"
)

// Outcome is the reconciler result
// ⭐ SSOT: S7 확인 결과 (Confirmed 만 런을 완료시킴)
type Outcome struct {
	Kind     OutcomeKind     `json:"status"`
	RunID    int64           `json:"run_id"`
	Holdings []Holding       `json:"holdings,omitempty"`
	Cash     decimal.Decimal `json:"cash"`
	Message  string          `json:"message,omitempty"`

	// Warning 전용
	Discrepancy *decimal.Decimal `json:"discrepancy_percent,omitempty"`
	LiveValue   *decimal.Decimal `json:"live_value,omitempty"`

	// Replayed is true when an identical earlier confirmation was returned
	Replayed bool `json:"replayed,omitempty"`
}

// IsConfirmed reports whether the outcome completed the run
func (o *Outcome) IsConfirmed() bool {
	return o.Kind == OutcomeConfirmed
}
