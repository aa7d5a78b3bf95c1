package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionValuation is one holding valued at a live price
type PositionValuation struct {
	Symbol       string           `json:"symbol"`
	Shares       decimal.Decimal  `json:"shares"`
	AvgPrice     decimal.Decimal  `json:"avg_price"`
	LivePrice    *decimal.Decimal `json:"live_price"` // nil = 시세 없음
	EntryValue   decimal.Decimal  `json:"entry_value"`
	CurrentValue decimal.Decimal  `json:"current_value"`
	PnL          decimal.Decimal  `json:"pnl"`
	PnLPercent   decimal.Decimal  `json:"pnl_percent"`
}

// Valuation is the live value of a confirmed portfolio
// ⭐ SSOT: S8 평가 결과
type Valuation struct {
	RunID         int64               `json:"run_id,omitempty"`
	Positions     []PositionValuation `json:"positions"`
	Cash          decimal.Decimal     `json:"cash"`
	TotalEntry    decimal.Decimal     `json:"total_entry"`
	TotalCurrent  decimal.Decimal     `json:"total_current"`
	PnL           decimal.Decimal     `json:"pnl"`
	PnLPercent    decimal.Decimal     `json:"pnl_percent"`
	MissingPrices []string            `json:"missing_prices"`
	ValuedAt      time.Time           `json:"valued_at"`
}

// Complete reports whether every position had a live price
func (v *Valuation) Complete() bool {
	return len(v.MissingPrices) == 0
}
