package execution

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
)

// leg is the unmatched remainder of one side of a delta
type leg struct {
	symbol string
	price  decimal.Decimal
	shares decimal.Decimal
	value  decimal.Decimal
}

// SwapMoves pairs the largest remaining sell with the largest remaining buy,
// moving min(sell, buy) value each step. Leftovers become one-sided moves.
// Ties are broken by symbol.
func SwapMoves(deltas []contracts.Delta, precision int32) []contracts.SwapMove {
	var sells, buys []*leg
	for _, d := range deltas {
		l := &leg{symbol: d.Symbol, price: d.Price, shares: d.Delta.Abs(), value: d.Value()}
		if d.Delta.IsNegative() {
			sells = append(sells, l)
		} else if d.Delta.IsPositive() {
			buys = append(buys, l)
		}
	}

	moves := make([]contracts.SwapMove, 0, len(deltas))
	for {
		openSells := pending(sells, hasValue)
		openBuys := pending(buys, hasValue)
		if len(openSells) == 0 || len(openBuys) == 0 {
			break
		}

		from, to := openSells[0], openBuys[0]
		amount := decimal.Min(from.value, to.value)
		sharesFrom := take(from, amount, precision)
		sharesTo := take(to, amount, precision)

		moves = append(moves, contracts.SwapMove{
			FromSymbol: strPtr(from.symbol),
			ToSymbol:   strPtr(to.symbol),
			SharesFrom: &sharesFrom,
			SharesTo:   &sharesTo,
			Value:      amount,
		})
	}

	// 금액이 0으로 반올림된 소량 주식도 단독 이동으로 남김
	for _, s := range pending(sells, hasRemainder) {
		shares := s.shares
		moves = append(moves, contracts.SwapMove{FromSymbol: strPtr(s.symbol), SharesFrom: &shares, Value: s.value})
	}
	for _, b := range pending(buys, hasRemainder) {
		shares := b.shares
		moves = append(moves, contracts.SwapMove{ToSymbol: strPtr(b.symbol), SharesTo: &shares, Value: b.value})
	}

	for i := range moves {
		moves[i].OrderIndex = i + 1
	}
	return moves
}

// take removes amount of value from l and returns the shares it represents.
// Exhausting the leg returns its exact remaining shares.
func take(l *leg, amount decimal.Decimal, precision int32) decimal.Decimal {
	var shares decimal.Decimal
	if amount.GreaterThanOrEqual(l.value) {
		shares = l.shares
	} else {
		shares = decimal.Min(amount.DivRound(l.price, precision+4).Truncate(precision), l.shares)
	}
	l.value = l.value.Sub(amount)
	l.shares = l.shares.Sub(shares)
	return shares
}

func hasValue(l *leg) bool     { return l.value.IsPositive() }
func hasRemainder(l *leg) bool { return l.value.IsPositive() || l.shares.IsPositive() }

// pending returns the legs matching keep, sorted by value desc, symbol asc
func pending(legs []*leg, keep func(*leg) bool) []*leg {
	out := make([]*leg, 0, len(legs))
	for _, l := range legs {
		if keep(l) {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].value.Cmp(out[j].value); c != 0 {
			return c > 0
		}
		return out[i].symbol < out[j].symbol
	})
	return out
}

func strPtr(s string) *string {
	return &s
}
