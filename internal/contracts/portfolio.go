package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// TargetAllocation is one line of the target portfolio passed from S5 to S6
// ⭐ 계약: Portfolio(S5)는 Weight/Amount만 산출, Execution(S6)이 수량 계산
type TargetAllocation struct {
	Symbol string          `json:"symbol"`
	Weight decimal.Decimal `json:"weight"` // 0.0 ~ 1.0
	Amount decimal.Decimal `json:"amount"` // USD, 2dp
	Rank   int             `json:"rank,omitempty"`
	Reason string          `json:"reason,omitempty"` // core_etf, momentum_rank, defensive
}

// TargetShares converts the amount into a share count at price,
// truncated to precision decimals so the purchase never exceeds the amount.
// A non-positive price yields zero (fail-closed).
func (a *TargetAllocation) TargetShares(price decimal.Decimal, precision int32) decimal.Decimal {
	if !price.IsPositive() || !a.Amount.IsPositive() {
		return decimal.Zero
	}
	return a.Amount.DivRound(price, precision+4).Truncate(precision)
}

// TargetPortfolio represents the target portfolio passed from S5 to S6
// ⭐ SSOT: S5 → S6 목표 포트폴리오 전달
type TargetPortfolio struct {
	Date         time.Time          `json:"date"`
	Capital      decimal.Decimal    `json:"capital"`
	MarketOpen   bool               `json:"market_open"`
	Defensive    bool               `json:"defensive"` // 100% 방어 ETF
	Allocations  []TargetAllocation `json:"allocations"`
	ResidualCash decimal.Decimal    `json:"residual_cash"` // 반올림 잔여 현금
}

// TotalWeight returns the sum of all allocation weights
func (tp *TargetPortfolio) TotalWeight() decimal.Decimal {
	total := decimal.Zero
	for _, a := range tp.Allocations {
		total = total.Add(a.Weight)
	}
	return total
}

// TotalAmount returns the sum of all allocation amounts
func (tp *TargetPortfolio) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, a := range tp.Allocations {
		total = total.Add(a.Amount)
	}
	return total
}

// Count returns the number of allocations
func (tp *TargetPortfolio) Count() int {
	return len(tp.Allocations)
}

// Symbols returns the allocation symbols in order
func (tp *TargetPortfolio) Symbols() []string {
	out := make([]string, 0, len(tp.Allocations))
	for _, a := range tp.Allocations {
		out = append(out, a.Symbol)
	}
	return out
}

// GetAllocation finds an allocation by symbol
func (tp *TargetPortfolio) GetAllocation(symbol string) (*TargetAllocation, bool) {
	for i := range tp.Allocations {
		if tp.Allocations[i].Symbol == symbol {
			return &tp.Allocations[i], true
		}
	}
	return nil, false
}

// Holding is a position held by the investor (USD).
// Either "current actual" (planner input) or "confirmed actual" (reconciler output).
type Holding struct {
	Symbol   string          `json:"symbol"`
	Shares   decimal.Decimal `json:"shares"`    // ≤4dp, ≥0
	AvgPrice decimal.Decimal `json:"avg_price"` // cost basis per share, 4dp
}

// EntryValue is shares × avg price rounded to cents
func (h Holding) EntryValue() decimal.Decimal {
	return RoundMoney(h.Shares.Mul(h.AvgPrice))
}

// HoldingSymbols returns the symbols of a holding set
func HoldingSymbols(holdings []Holding) []string {
	out := make([]string, 0, len(holdings))
	for _, h := range holdings {
		out = append(out, h.Symbol)
	}
	return out
}
