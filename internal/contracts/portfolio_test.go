package contracts

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetAllocation_TargetShares(t *testing.T) {
	a := TargetAllocation{Symbol: "VOO", Amount: decimal.NewFromInt(3000)}

	assert.Equal(t, "6.6666", a.TargetShares(decimal.NewFromInt(450), SharePrecision).String())
	assert.True(t, a.TargetShares(decimal.Zero, SharePrecision).IsZero())
	assert.True(t, a.TargetShares(decimal.NewFromInt(-1), SharePrecision).IsZero())
}

func TestTargetPortfolio_Totals(t *testing.T) {
	tp := &TargetPortfolio{
		Date:    time.Now(),
		Capital: decimal.NewFromInt(10000),
		Allocations: []TargetAllocation{
			{Symbol: "VOO", Weight: decimal.RequireFromString("0.3"), Amount: decimal.NewFromInt(3000)},
			{Symbol: "AAPL", Weight: decimal.RequireFromString("0.7"), Amount: decimal.NewFromInt(7000)},
		},
	}

	assert.True(t, tp.TotalWeight().Equal(decimal.NewFromInt(1)))
	assert.True(t, tp.TotalAmount().Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, 2, tp.Count())
	assert.Equal(t, []string{"VOO", "AAPL"}, tp.Symbols())

	a, ok := tp.GetAllocation("AAPL")
	require.True(t, ok)
	assert.Equal(t, "7000", a.Amount.String())

	_, ok = tp.GetAllocation("TSLA")
	assert.False(t, ok)
}

func TestHolding_EntryValue(t *testing.T) {
	h := Holding{Symbol: "AAPL", Shares: decimal.RequireFromString("2.5"), AvgPrice: decimal.RequireFromString("180.1234")}
	assert.Equal(t, "450.31", h.EntryValue().String())
}
