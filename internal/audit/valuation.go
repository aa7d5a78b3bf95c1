package audit

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

var hundred = decimal.NewFromInt(100)

// Valuator implements S8: live valuation of confirmed holdings
// ⭐ SSOT: S8 평가손익 계산은 여기서만
type Valuator struct {
	logger *logger.Logger
	now    func() time.Time
}

// NewValuator creates a new valuator
func NewValuator(log *logger.Logger) *Valuator {
	return &Valuator{
		logger: log.WithStage(contracts.StageValuation.ShortName()),
		now:    time.Now,
	}
}

// Value prices holdings at live prices. A missing price falls back to the
// entry value and the symbol is listed in MissingPrices. Cash counts in both
// totals with zero P&L.
func (v *Valuator) Value(holdings []contracts.Holding, cash decimal.Decimal, prices map[string]decimal.Decimal) *contracts.Valuation {
	val := &contracts.Valuation{
		Positions:     make([]contracts.PositionValuation, 0, len(holdings)),
		Cash:          cash,
		TotalEntry:    cash,
		TotalCurrent:  cash,
		MissingPrices: []string{},
		ValuedAt:      v.now().UTC(),
	}

	for _, h := range holdings {
		entry := h.EntryValue()
		pos := contracts.PositionValuation{
			Symbol:       h.Symbol,
			Shares:       h.Shares,
			AvgPrice:     h.AvgPrice,
			EntryValue:   entry,
			CurrentValue: entry,
		}

		if price, ok := prices[h.Symbol]; ok && price.IsPositive() {
			p := price
			pos.LivePrice = &p
			pos.CurrentValue = contracts.RoundMoney(h.Shares.Mul(price))
		} else if h.Shares.IsPositive() {
			val.MissingPrices = append(val.MissingPrices, h.Symbol)
		}

		pos.PnL = pos.CurrentValue.Sub(pos.EntryValue)
		pos.PnLPercent = percent(pos.PnL, pos.EntryValue)

		val.TotalEntry = val.TotalEntry.Add(pos.EntryValue)
		val.TotalCurrent = val.TotalCurrent.Add(pos.CurrentValue)
		val.Positions = append(val.Positions, pos)
	}

	val.PnL = val.TotalCurrent.Sub(val.TotalEntry)
	val.PnLPercent = percent(val.PnL, val.TotalEntry)
	sort.Strings(val.MissingPrices)

	if len(val.MissingPrices) > 0 {
		v.logger.WithField("missing", val.MissingPrices).Warn("Valuation fell back to entry value")
	}
	return val
}

// ValueLive fetches live prices and values holdings. Partial price failures
// degrade to entry values; only context cancellation is returned.
func (v *Valuator) ValueLive(ctx context.Context, holdings []contracts.Holding, cash decimal.Decimal, fetcher contracts.LivePriceFetcher) (*contracts.Valuation, error) {
	symbols := make([]string, 0, len(holdings))
	for _, h := range holdings {
		if h.Shares.IsPositive() {
			symbols = append(symbols, h.Symbol)
		}
	}

	prices := map[string]decimal.Decimal{}
	if len(symbols) > 0 {
		got, err := fetcher.LatestPrices(ctx, symbols)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			v.logger.WithError(err).Warn("Live prices incomplete")
		}
		if got != nil {
			prices = got
		}
	}
	return v.Value(holdings, cash, prices), nil
}

// percent is part / whole × 100 rounded to 2dp, 0 when whole is 0
func percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}
