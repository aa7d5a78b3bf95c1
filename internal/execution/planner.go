package execution

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

// Planner implements S6: rebalance planning
// ⭐ SSOT: S6 리밸런싱 계획 로직은 여기서만
type Planner struct {
	config ExecutionConfig
	logger *logger.Logger
}

// ExecutionConfig defines planning parameters
type ExecutionConfig struct {
	SharePrecision int32 // 소수점 주식 자릿수 (4)
}

// DefaultConfig returns 4-decimal fractional shares
func DefaultConfig() ExecutionConfig {
	return ExecutionConfig{SharePrecision: contracts.SharePrecision}
}

// NewPlanner creates a new rebalance planner
func NewPlanner(config ExecutionConfig, log *logger.Logger) *Planner {
	return &Planner{
		config: config,
		logger: log.WithStage(contracts.StageRebalance.ShortName()),
	}
}

// Plan computes the delta set between holdings and target and derives both orderings.
// A symbol with a non-zero delta and no live price fails the plan with ErrDataUnavailable.
func (p *Planner) Plan(ctx context.Context, holdings []contracts.Holding, cash decimal.Decimal, target *contracts.TargetPortfolio, prices map[string]decimal.Decimal) (*contracts.RebalancePlan, error) {
	if cash.IsNegative() {
		return nil, contracts.NewValidationError("cash", "must be >= 0, got %s", cash.String())
	}

	deltas, err := p.deltas(holdings, target, prices)
	if err != nil {
		return nil, err
	}

	plan := &contracts.RebalancePlan{
		Deltas:        deltas,
		CashflowMoves: CashflowMoves(deltas),
		SwapMoves:     SwapMoves(deltas, p.config.SharePrecision),
		TotalSell:     decimal.Zero,
		TotalBuy:      decimal.Zero,
		CurrentCash:   cash,
	}

	for _, d := range deltas {
		switch d.Delta.Sign() {
		case -1:
			plan.TotalSell = plan.TotalSell.Add(d.Value())
		case 1:
			plan.TotalBuy = plan.TotalBuy.Add(d.Value())
		}
	}
	plan.NetCash = plan.TotalBuy.Sub(plan.TotalSell)
	plan.ProjectedCash = cash.Add(plan.TotalSell).Sub(plan.TotalBuy)

	p.logger.WithFields(map[string]interface{}{
		"deltas":         len(deltas),
		"cashflow_moves": len(plan.CashflowMoves),
		"swap_moves":     len(plan.SwapMoves),
		"total_sell":     plan.TotalSell.String(),
		"total_buy":      plan.TotalBuy.String(),
		"projected_cash": plan.ProjectedCash.String(),
	}).Info("Rebalance plan created")

	return plan, nil
}

// deltas builds one entry per symbol of holdings ∪ target, sorted by symbol.
// Symbols whose delta is zero are dropped.
func (p *Planner) deltas(holdings []contracts.Holding, target *contracts.TargetPortfolio, prices map[string]decimal.Decimal) ([]contracts.Delta, error) {
	current := make(map[string]decimal.Decimal, len(holdings))
	for _, h := range holdings {
		if h.Shares.IsNegative() {
			return nil, contracts.NewValidationError("holdings."+h.Symbol, "shares must be >= 0, got %s", h.Shares.String())
		}
		current[h.Symbol] = current[h.Symbol].Add(h.Shares)
	}

	amounts := make(map[string]decimal.Decimal)
	if target != nil {
		for _, a := range target.Allocations {
			amounts[a.Symbol] = amounts[a.Symbol].Add(a.Amount)
		}
	}

	symbols := make([]string, 0, len(current)+len(amounts))
	seen := make(map[string]bool)
	for s := range current {
		seen[s] = true
		symbols = append(symbols, s)
	}
	for s := range amounts {
		if !seen[s] {
			symbols = append(symbols, s)
		}
	}
	sort.Strings(symbols)

	var missing []string
	out := make([]contracts.Delta, 0, len(symbols))
	for _, s := range symbols {
		amount, inTarget := amounts[s]
		held := current[s]
		if (!inTarget || !amount.IsPositive()) && held.IsZero() {
			continue
		}

		price, ok := prices[s]
		if !ok || !price.IsPositive() {
			missing = append(missing, s)
			continue
		}

		alloc := contracts.TargetAllocation{Symbol: s, Amount: amount}
		targetShares := alloc.TargetShares(price, p.config.SharePrecision)
		delta := targetShares.Sub(held)
		if delta.IsZero() {
			continue
		}

		out = append(out, contracts.Delta{
			Symbol:        s,
			Price:         price,
			CurrentShares: held,
			TargetShares:  targetShares,
			Delta:         delta,
		})
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("rebalance plan: %w", &contracts.MissingPricesError{Symbols: missing})
	}
	return out, nil
}

// CashflowMoves orders SELLs then BUYs, each ascending by symbol, indexed 1..n
func CashflowMoves(deltas []contracts.Delta) []contracts.CashflowMove {
	moves := make([]contracts.CashflowMove, 0, len(deltas))

	// 1. 매도 먼저 (자금 확보)
	for _, d := range deltas {
		if d.Delta.IsNegative() {
			moves = append(moves, contracts.CashflowMove{
				Symbol: d.Symbol,
				Action: contracts.ActionSell,
				Shares: d.Delta.Abs(),
				Value:  d.Value(),
			})
		}
	}

	// 2. 매수
	for _, d := range deltas {
		if d.Delta.IsPositive() {
			moves = append(moves, contracts.CashflowMove{
				Symbol: d.Symbol,
				Action: contracts.ActionBuy,
				Shares: d.Delta,
				Value:  d.Value(),
			})
		}
	}

	for i := range moves {
		moves[i].OrderIndex = i + 1
	}
	return moves
}
