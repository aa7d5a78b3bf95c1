package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/internal/realtime/cache"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
	"github.com/CedricEugeni/MoMentor/pkg/redis"
)

type fakeUpstream struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	calls  map[string]int
	bars   []contracts.PriceBar
	fxErr  error
}

func (f *fakeUpstream) DailyHistory(ctx context.Context, symbol string, from, to time.Time) ([]contracts.PriceBar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["history:"+symbol]++
	return f.bars, nil
}

func (f *fakeUpstream) LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[symbol]++
	p, ok := f.prices[symbol]
	if !ok {
		return decimal.Zero, errors.New("no quote")
	}
	return p, nil
}

func (f *fakeUpstream) FXRate(ctx context.Context, from, to string) (*contracts.FXQuote, error) {
	if f.fxErr != nil {
		return nil, f.fxErr
	}
	return &contracts.FXQuote{From: from, To: to, Rate: decimal.RequireFromString("1.08"), Timestamp: time.Unix(0, 0).UTC()}, nil
}

func newTestFeed(up *fakeUpstream) *FeedManager {
	log := logger.Nop()
	shared := redis.NewCache(redis.NewDisabled(), "test")
	return NewFeedManager(up, cache.NewPriceCache(time.Minute, log), shared, Config{Concurrency: 4}, log)
}

func TestLatestPrices_PartialWithMissing(t *testing.T) {
	up := &fakeUpstream{
		prices: map[string]decimal.Decimal{
			"AAPL": decimal.RequireFromString("200"),
			"VOO":  decimal.RequireFromString("500"),
		},
		calls: map[string]int{},
	}
	m := newTestFeed(up)

	prices, err := m.LatestPrices(context.Background(), []string{"voo", "AAPL", "NVDA", "MSFT", "AAPL"})
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)

	var missing *contracts.MissingPricesError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"MSFT", "NVDA"}, missing.Symbols)

	assert.Len(t, prices, 2)
	assert.Equal(t, "500", prices["VOO"].String())
	assert.Equal(t, 1, up.calls["AAPL"])
}

func TestLatestPrice_UsesMemoryCache(t *testing.T) {
	up := &fakeUpstream{
		prices: map[string]decimal.Decimal{"AAPL": decimal.RequireFromString("200")},
		calls:  map[string]int{},
	}
	m := newTestFeed(up)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p, err := m.LatestPrice(ctx, "AAPL")
		require.NoError(t, err)
		assert.Equal(t, "200", p.String())
	}
	assert.Equal(t, 1, up.calls["AAPL"])
}

func TestFXRate(t *testing.T) {
	up := &fakeUpstream{calls: map[string]int{}}
	m := newTestFeed(up)
	ctx := context.Background()

	q, err := m.FXRate(ctx, "usd", "USD")
	require.NoError(t, err)
	assert.True(t, q.Rate.Equal(decimal.NewFromInt(1)))

	q, err = m.FXRate(ctx, "EUR", "USD")
	require.NoError(t, err)
	assert.Equal(t, "1.08", q.Rate.String())

	up.fxErr = errors.New("timeout")
	_, err = m.FXRate(ctx, "EUR", "USD")
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
}

func TestDailyHistory_PassesThrough(t *testing.T) {
	bar := contracts.PriceBar{Date: time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC), Close: 10}
	up := &fakeUpstream{calls: map[string]int{}, bars: []contracts.PriceBar{bar}}
	m := newTestFeed(up)

	to := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	bars, err := m.DailyHistory(context.Background(), "SPY", to.AddDate(0, 0, -913), to)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.True(t, bars[0].Date.Equal(bar.Date))
}

func TestRefresh_NotifiesListeners(t *testing.T) {
	up := &fakeUpstream{
		prices: map[string]decimal.Decimal{"VOO": decimal.RequireFromString("500")},
		calls:  map[string]int{},
	}
	m := newTestFeed(up)
	m.SetPortfolioSymbols([]string{"VOO", "SGOV"})
	m.RemoveSymbol("sgov")
	m.AddPortfolioSymbol("aapl")
	assert.Equal(t, []string{"AAPL", "VOO"}, m.TrackedSymbols())

	var got map[string]decimal.Decimal
	var gotErr error
	m.OnRefresh(func(ctx context.Context, prices map[string]decimal.Decimal, err error) {
		got, gotErr = prices, err
	})

	m.Refresh(context.Background())
	assert.Len(t, got, 1)
	assert.ErrorIs(t, gotErr, contracts.ErrDataUnavailable)

	stats := m.GetStats()
	assert.Equal(t, 2, stats.TrackedSymbols)
	assert.Equal(t, 1, stats.CacheFresh)
}

func TestStartStop(t *testing.T) {
	m := newTestFeed(&fakeUpstream{calls: map[string]int{}})
	m.config.RefreshInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	m.Stop()
	m.Stop()
}
