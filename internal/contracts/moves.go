package contracts

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Action represents the direction of a cashflow move
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Delta is the per-symbol difference between current and target shares
type Delta struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	CurrentShares decimal.Decimal `json:"current_shares"`
	TargetShares  decimal.Decimal `json:"target_shares"`
	Delta         decimal.Decimal `json:"delta"` // target − current
}

// Value is |delta| × price rounded to cents
func (d Delta) Value() decimal.Decimal {
	return RoundMoney(d.Delta.Abs().Mul(d.Price))
}

// CashflowMove is one leg of the sell-then-buy ordering
type CashflowMove struct {
	Symbol     string          `json:"symbol"`
	Action     Action          `json:"action"`
	Shares     decimal.Decimal `json:"shares"`
	Value      decimal.Decimal `json:"value"`
	OrderIndex int             `json:"order_index"`
}

// SwapMove pairs a sell with a buy. A nil side means a one-sided move.
type SwapMove struct {
	FromSymbol *string          `json:"from_symbol"`
	ToSymbol   *string          `json:"to_symbol"`
	SharesFrom *decimal.Decimal `json:"shares_from"`
	SharesTo   *decimal.Decimal `json:"shares_to"`
	Value      decimal.Decimal  `json:"value"`
	OrderIndex int              `json:"order_index"`
}

// SellValue is the cash the move raises
func (m SwapMove) SellValue() decimal.Decimal {
	if m.FromSymbol == nil {
		return decimal.Zero
	}
	return m.Value
}

// BuyValue is the cash the move consumes
func (m SwapMove) BuyValue() decimal.Decimal {
	if m.ToSymbol == nil {
		return decimal.Zero
	}
	return m.Value
}

// Description renders the move for humans, e.g. "Sell 2.5 AAPL → Buy 3 MSFT"
func (m SwapMove) Description() string {
	from, to := "", ""
	if m.FromSymbol != nil {
		from = fmt.Sprintf("Sell %s %s", sharesOrZero(m.SharesFrom), *m.FromSymbol)
	}
	if m.ToSymbol != nil {
		to = fmt.Sprintf("Buy %s %s", sharesOrZero(m.SharesTo), *m.ToSymbol)
	}

	switch {
	case from != "" && to != "":
		return from + " → " + to
	case from != "":
		return from
	case to != "":
		return to
	default:
		return "Unknown move"
	}
}

func sharesOrZero(d *decimal.Decimal) string {
	if d == nil {
		return "0"
	}
	return FormatShares(*d)
}

// RebalancePlan is the S6 output: two orderings of the same delta set
// ⭐ SSOT: S6 → 사용자 리밸런싱 계획
type RebalancePlan struct {
	Deltas        []Delta        `json:"deltas"`
	CashflowMoves []CashflowMove `json:"cashflow_moves"`
	SwapMoves     []SwapMove     `json:"swap_moves"`

	TotalSell decimal.Decimal `json:"total_sell"`
	TotalBuy  decimal.Decimal `json:"total_buy"`
	NetCash   decimal.Decimal `json:"net_cash"` // buys − sells (양수 = 현금 필요)

	CurrentCash   decimal.Decimal `json:"current_cash"`
	ProjectedCash decimal.Decimal `json:"projected_cash"` // current + sells − buys
}

// CashflowNet returns Σ BUY − Σ SELL over the cashflow ordering
func (p *RebalancePlan) CashflowNet() decimal.Decimal {
	net := decimal.Zero
	for _, m := range p.CashflowMoves {
		if m.Action == ActionBuy {
			net = net.Add(m.Value)
		} else {
			net = net.Sub(m.Value)
		}
	}
	return net
}

// SwapNet returns Σ buy-side − Σ sell-side over the swap ordering
func (p *RebalancePlan) SwapNet() decimal.Decimal {
	net := decimal.Zero
	for _, m := range p.SwapMoves {
		net = net.Add(m.BuyValue()).Sub(m.SellValue())
	}
	return net
}
