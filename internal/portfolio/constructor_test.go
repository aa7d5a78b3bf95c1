package portfolio

import (
	"context"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

func ranked(symbols ...string) []contracts.Candidate {
	out := make([]contracts.Candidate, len(symbols))
	for i, s := range symbols {
		out[i] = contracts.Candidate{Symbol: s, Rank: i + 1, Score: float64(len(symbols) - i)}
	}
	return out
}

func newConstructor(cfg PortfolioConfig) *Constructor {
	return NewConstructor(cfg, DefaultConstraints(cfg), logger.Nop())
}

func TestConstruct_CoreAndTopFour(t *testing.T) {
	c := newConstructor(DefaultConfig())

	target, err := c.Construct(context.Background(), ranked("NVDA", "AAPL", "MSFT", "AMZN", "META"), decimal.NewFromInt(10000), true)
	require.NoError(t, err)

	require.Len(t, target.Allocations, 5)
	assert.False(t, target.Defensive)
	assert.Equal(t, []string{"VOO", "NVDA", "AAPL", "MSFT", "AMZN"}, target.Symbols())

	assert.Equal(t, "3000", target.Allocations[0].Amount.String())
	for _, a := range target.Allocations[1:] {
		assert.Equal(t, "0.175", a.Weight.String())
		assert.Equal(t, "1750", a.Amount.String())
		assert.Equal(t, ReasonMomentumRank, a.Reason)
	}
	assert.True(t, target.TotalWeight().Equal(decimal.NewFromInt(1)))
	assert.True(t, target.ResidualCash.IsZero())
}

func TestConstruct_ResidualCash(t *testing.T) {
	c := newConstructor(DefaultConfig())
	capital := decimal.RequireFromString("1000.07")

	target, err := c.Construct(context.Background(), ranked("A", "B", "C", "D"), capital, true)
	require.NoError(t, err)

	// 300.021 → 300.02, 175.01225 → 175.01 ×4
	assert.Equal(t, "300.02", target.Allocations[0].Amount.String())
	assert.Equal(t, "175.01", target.Allocations[1].Amount.String())
	assert.Equal(t, "0.01", target.ResidualCash.String())
	assert.True(t, target.TotalAmount().Add(target.ResidualCash).Equal(capital))
}

func TestConstruct_FifthRankGetsNothing(t *testing.T) {
	c := newConstructor(DefaultConfig())

	target, err := c.Construct(context.Background(), ranked("AAPL", "MSFT", "GOOG", "AMZN", "TSLA"), decimal.NewFromInt(10000), true)
	require.NoError(t, err)

	want := map[string]string{"VOO": "3000", "AAPL": "1750", "MSFT": "1750", "GOOG": "1750", "AMZN": "1750"}
	require.Len(t, target.Allocations, len(want))
	for symbol, amount := range want {
		a, ok := target.GetAllocation(symbol)
		require.True(t, ok, symbol)
		assert.Equal(t, amount, a.Amount.String(), symbol)
	}
	_, ok := target.GetAllocation("TSLA")
	assert.False(t, ok)
}

func TestConstruct_CapitalIsConservedExactly(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	policies := []string{ShortfallDefensive, ShortfallProportional}

	for i := 0; i < 1000; i++ {
		cfg := DefaultConfig()
		cfg.ShortfallPolicy = policies[i%2]
		c := newConstructor(cfg)

		capital := decimal.New(rng.Int63n(100_000_000)+1, -2) // 0.01 ~ 1,000,000.00
		picks := ranked("A", "B", "C", "D", "E", "F")[:rng.Intn(7)]
		marketOpen := rng.Intn(4) != 0

		target, err := c.Construct(context.Background(), picks, capital, marketOpen)
		require.NoError(t, err)

		assert.True(t, target.TotalAmount().Add(target.ResidualCash).Equal(capital),
			"capital %s: Σ amount %s + residual %s", capital, target.TotalAmount(), target.ResidualCash)
		assert.False(t, target.ResidualCash.IsNegative(), "capital %s", capital)
		assert.True(t, target.TotalWeight().Equal(decimal.NewFromInt(1)), "capital %s", capital)
		if !marketOpen {
			assert.True(t, target.Defensive)
		}
	}
}

func TestConstruct_Defensive(t *testing.T) {
	tests := []struct {
		name       string
		candidates []contracts.Candidate
		marketOpen bool
	}{
		{"market closed", ranked("A", "B", "C", "D"), false},
		{"no candidates", nil, true},
		{"fewer than four", ranked("A", "B", "C"), true},
		{"blacklisted etf does not fill a slot", ranked("A", "VOO", "B", "C"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newConstructor(DefaultConfig())
			target, err := c.Construct(context.Background(), tt.candidates, decimal.NewFromInt(5000), tt.marketOpen)
			require.NoError(t, err)

			require.Len(t, target.Allocations, 1)
			assert.True(t, target.Defensive)
			assert.Equal(t, "SGOV", target.Allocations[0].Symbol)
			assert.Equal(t, "5000", target.Allocations[0].Amount.String())
		})
	}
}

func TestConstruct_ProportionalShortfall(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ShortfallPolicy = ShortfallProportional
	c := newConstructor(cfg)

	target, err := c.Construct(context.Background(), ranked("A", "B", "C"), decimal.NewFromInt(1000), true)
	require.NoError(t, err)

	require.Len(t, target.Allocations, 4)
	assert.False(t, target.Defensive)
	assert.True(t, target.TotalWeight().Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "233.33", target.Allocations[1].Amount.String())
	assert.True(t, target.TotalAmount().Add(target.ResidualCash).Equal(decimal.NewFromInt(1000)))
}

func TestConstruct_InvalidCapital(t *testing.T) {
	c := newConstructor(DefaultConfig())

	_, err := c.Construct(context.Background(), ranked("A"), decimal.Zero, true)
	assert.True(t, contracts.IsValidation(err))
}
