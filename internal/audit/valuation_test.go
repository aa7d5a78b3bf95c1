package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type stubFetcher struct {
	prices map[string]decimal.Decimal
	err    error
}

func (s stubFetcher) LatestPrices(context.Context, []string) (map[string]decimal.Decimal, error) {
	return s.prices, s.err
}

func TestValuator_Value(t *testing.T) {
	holdings := []contracts.Holding{
		{Symbol: "AAPL", Shares: d("10"), AvgPrice: d("150")},
		{Symbol: "VOO", Shares: d("2.5"), AvgPrice: d("400")},
	}
	prices := map[string]decimal.Decimal{"AAPL": d("165"), "VOO": d("380")}

	val := NewValuator(logger.Nop()).Value(holdings, d("100"), prices)

	require.Len(t, val.Positions, 2)
	assert.Equal(t, "1650", val.Positions[0].CurrentValue.String())
	assert.Equal(t, "10", val.Positions[0].PnLPercent.String())
	assert.Equal(t, "-50", val.Positions[1].PnL.String())

	// entry 1500 + 1000 + 100, current 1650 + 950 + 100
	assert.Equal(t, "2600", val.TotalEntry.String())
	assert.Equal(t, "2700", val.TotalCurrent.String())
	assert.Equal(t, "100", val.PnL.String())
	assert.Equal(t, "3.85", val.PnLPercent.String())
	assert.True(t, val.Complete())
}

func TestValuator_MissingPriceFallsBackToEntry(t *testing.T) {
	holdings := []contracts.Holding{
		{Symbol: "MSFT", Shares: d("3"), AvgPrice: d("300")},
		{Symbol: "AAPL", Shares: d("1"), AvgPrice: d("100")},
	}

	val := NewValuator(logger.Nop()).Value(holdings, decimal.Zero, map[string]decimal.Decimal{"AAPL": d("110")})

	assert.Equal(t, []string{"MSFT"}, val.MissingPrices)
	assert.Nil(t, val.Positions[0].LivePrice)
	assert.Equal(t, "900", val.Positions[0].CurrentValue.String())
	assert.True(t, val.Positions[0].PnL.IsZero())
	assert.Equal(t, "10", val.PnL.String())
}

func TestValuator_CashOnly(t *testing.T) {
	val := NewValuator(logger.Nop()).Value(nil, d("500"), nil)

	assert.Equal(t, "500", val.TotalEntry.String())
	assert.Equal(t, "500", val.TotalCurrent.String())
	assert.True(t, val.PnLPercent.IsZero())

	empty := NewValuator(logger.Nop()).Value(nil, decimal.Zero, nil)
	assert.True(t, empty.PnLPercent.IsZero())
}

func TestValuator_ValueLive_Partial(t *testing.T) {
	holdings := []contracts.Holding{
		{Symbol: "AAPL", Shares: d("1"), AvgPrice: d("100")},
		{Symbol: "MSFT", Shares: d("1"), AvgPrice: d("300")},
	}
	fetcher := stubFetcher{
		prices: map[string]decimal.Decimal{"AAPL": d("120")},
		err:    &contracts.MissingPricesError{Symbols: []string{"MSFT"}},
	}

	val, err := NewValuator(logger.Nop()).ValueLive(context.Background(), holdings, decimal.Zero, fetcher)
	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT"}, val.MissingPrices)
	assert.Equal(t, "20", val.PnL.String())

	val, err = NewValuator(logger.Nop()).ValueLive(context.Background(), holdings, decimal.Zero, stubFetcher{err: errors.New("down")})
	require.NoError(t, err)
	assert.Len(t, val.MissingPrices, 2)
}
