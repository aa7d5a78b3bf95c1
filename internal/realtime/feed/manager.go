package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/internal/realtime"
	"github.com/CedricEugeni/MoMentor/internal/realtime/cache"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
	"github.com/CedricEugeni/MoMentor/pkg/redis"
)

// Upstream is the market data source behind the feed (the Yahoo client)
type Upstream interface {
	DailyHistory(ctx context.Context, symbol string, from, to time.Time) ([]contracts.PriceBar, error)
	LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	FXRate(ctx context.Context, from, to string) (*contracts.FXQuote, error)
}

// Config holds feed tuning
type Config struct {
	Concurrency     int           // 동시 시세 조회 수
	RefreshInterval time.Duration // 추적 종목 갱신 주기 (0 = 갱신 안 함)
}

// DefaultConfig returns the default feed configuration
func DefaultConfig() Config {
	return Config{
		Concurrency:     8,
		RefreshInterval: time.Minute,
	}
}

// RefreshFunc receives the prices of every tracked symbol after a refresh.
// err is non-nil when some prices are missing.
type RefreshFunc func(ctx context.Context, prices map[string]decimal.Decimal, err error)

// FeedManager serves daily history, live prices and FX rates.
// Lookups go memory cache → shared Redis cache → upstream.
// ⭐ SSOT: 시세/히스토리/환율 조회는 이 매니저에서만
type FeedManager struct {
	upstream Upstream
	cache    *cache.PriceCache
	shared   *redis.Cache
	config   Config
	logger   *logger.Logger
	now      func() time.Time

	tracked   map[string]struct{}
	trackedMu sync.RWMutex

	listeners   []RefreshFunc
	listenersMu sync.RWMutex

	stopCh  chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

// NewFeedManager creates a new feed manager
func NewFeedManager(upstream Upstream, priceCache *cache.PriceCache, shared *redis.Cache, cfg Config, log *logger.Logger) *FeedManager {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &FeedManager{
		upstream: upstream,
		cache:    priceCache,
		shared:   shared,
		config:   cfg,
		logger:   log,
		now:      time.Now,
		tracked:  make(map[string]struct{}),
		stopCh:   make(chan struct{}),
	}
}

var (
	_ contracts.PriceSeriesProvider = (*FeedManager)(nil)
	_ contracts.LivePriceFetcher    = (*FeedManager)(nil)
	_ contracts.FXProvider          = (*FeedManager)(nil)
)

// ============================================================================
// History
// ============================================================================

// DailyHistory returns daily bars, shared across processes through Redis
func (m *FeedManager) DailyHistory(ctx context.Context, symbol string, from, to time.Time) ([]contracts.PriceBar, error) {
	days := int(to.Sub(from).Hours() / 24)
	key := redis.HistoryKey(symbol, to, days)

	var bars []contracts.PriceBar
	err := m.shared.GetOrSet(ctx, key, &bars, redis.TTLHistory, func() (interface{}, error) {
		return m.upstream.DailyHistory(ctx, symbol, from, to)
	})
	if err != nil {
		return nil, err
	}
	return bars, nil
}

// ============================================================================
// Live prices
// ============================================================================

// LatestPrice returns a live price no older than the cache TTL
func (m *FeedManager) LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	if q, ok := m.cache.Get(symbol); ok {
		return q.Price, nil
	}

	var shared realtime.Quote
	if found, err := m.shared.Get(ctx, redis.QuoteKey(symbol), &shared); err == nil && found {
		shared.Source = string(realtime.SourceRedis)
		m.cache.Update(&shared)
		if q, ok := m.cache.Get(symbol); ok {
			return q.Price, nil
		}
	}

	price, err := m.upstream.LatestPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: non-positive price for %s", contracts.ErrDataUnavailable, symbol)
	}

	q := &realtime.Quote{
		Symbol:    symbol,
		Price:     price,
		Timestamp: m.now().UTC(),
		Source:    string(realtime.SourceYahoo),
	}
	m.cache.Update(q)
	_ = m.shared.Set(ctx, redis.QuoteKey(symbol), q, redis.TTLQuote)

	return price, nil
}

// LatestPrices fetches many symbols concurrently.
// It returns every price it could get; missing symbols come back as *contracts.MissingPricesError.
func (m *FeedManager) LatestPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	unique := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		unique = append(unique, s)
	}

	var (
		mu      sync.Mutex
		prices  = make(map[string]decimal.Decimal, len(unique))
		missing []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.config.Concurrency)
	for _, symbol := range unique {
		symbol := symbol
		g.Go(func() error {
			price, err := m.LatestPrice(gctx, symbol)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				m.logger.WithFields(map[string]interface{}{
					"symbol": symbol,
					"error":  err.Error(),
				}).Warn("Live price unavailable")
				missing = append(missing, symbol)
				return nil
			}
			prices[symbol] = price
			return nil
		})
	}
	_ = g.Wait()

	if len(missing) > 0 {
		sort.Strings(missing)
		return prices, &contracts.MissingPricesError{Symbols: missing}
	}
	return prices, nil
}

// ============================================================================
// FX
// ============================================================================

// FXRate returns 1 From = Rate To. Identical currencies short-circuit to 1.
func (m *FeedManager) FXRate(ctx context.Context, from, to string) (*contracts.FXQuote, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return &contracts.FXQuote{From: from, To: to, Rate: decimal.NewFromInt(1), Timestamp: m.now().UTC()}, nil
	}

	var quote contracts.FXQuote
	err := m.shared.GetOrSet(ctx, "fx:"+from+to, &quote, redis.TTLFX, func() (interface{}, error) {
		return m.upstream.FXRate(ctx, from, to)
	})
	if err != nil {
		if errors.Is(err, contracts.ErrDataUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: fx %s/%s: %v", contracts.ErrDataUnavailable, from, to, err)
	}
	return &quote, nil
}

// ============================================================================
// Tracking & refresh
// ============================================================================

// AddPortfolioSymbol keeps a symbol refreshed by the background loop
func (m *FeedManager) AddPortfolioSymbol(symbol string) {
	m.trackedMu.Lock()
	m.tracked[strings.ToUpper(symbol)] = struct{}{}
	m.trackedMu.Unlock()
}

// SetPortfolioSymbols replaces the tracked set
func (m *FeedManager) SetPortfolioSymbols(symbols []string) {
	m.trackedMu.Lock()
	m.tracked = make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		m.tracked[strings.ToUpper(s)] = struct{}{}
	}
	m.trackedMu.Unlock()

	m.logger.WithField("count", len(symbols)).Debug("Updated tracked symbols")
}

// RemoveSymbol stops tracking a symbol
func (m *FeedManager) RemoveSymbol(symbol string) {
	m.trackedMu.Lock()
	delete(m.tracked, strings.ToUpper(symbol))
	m.trackedMu.Unlock()
}

// TrackedSymbols returns the tracked set, sorted
func (m *FeedManager) TrackedSymbols() []string {
	m.trackedMu.RLock()
	defer m.trackedMu.RUnlock()

	out := make([]string, 0, len(m.tracked))
	for s := range m.tracked {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// OnRefresh registers a listener called after every refresh
func (m *FeedManager) OnRefresh(fn RefreshFunc) {
	m.listenersMu.Lock()
	m.listeners = append(m.listeners, fn)
	m.listenersMu.Unlock()
}

// Start launches the refresh and cleanup loops
func (m *FeedManager) Start(ctx context.Context) {
	m.logger.WithField("interval", m.config.RefreshInterval.String()).Info("Starting feed manager")

	if m.config.RefreshInterval > 0 {
		m.wg.Add(1)
		go m.refreshLoop(ctx)
	}

	m.wg.Add(1)
	go m.cleanupLoop(ctx)
}

// Stop stops the loops and waits for them
func (m *FeedManager) Stop() {
	m.stopped.Do(func() {
		m.logger.Info("Stopping feed manager")
		close(m.stopCh)
		m.wg.Wait()
		m.logger.Info("Feed manager stopped")
	})
}

func (m *FeedManager) refreshLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.Refresh(ctx)
		}
	}
}

func (m *FeedManager) cleanupLoop(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(cache.DefaultTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.cache.CleanStale()
		}
	}
}

// Refresh fetches every tracked symbol once and notifies listeners
func (m *FeedManager) Refresh(ctx context.Context) {
	symbols := m.TrackedSymbols()
	if len(symbols) == 0 {
		return
	}

	prices, err := m.LatestPrices(ctx, symbols)

	m.listenersMu.RLock()
	listeners := append([]RefreshFunc(nil), m.listeners...)
	m.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(ctx, prices, err)
	}

	m.logger.WithFields(map[string]interface{}{
		"tracked": len(symbols),
		"priced":  len(prices),
	}).Debug("Refreshed tracked prices")
}

// GetStats returns statistics for the feed
func (m *FeedManager) GetStats() *FeedStats {
	cacheStats := m.cache.Stats()
	return &FeedStats{
		TrackedSymbols: len(m.TrackedSymbols()),
		CacheTotal:     cacheStats.TotalCount,
		CacheFresh:     cacheStats.FreshCount,
		CacheStale:     cacheStats.StaleCount,
		SharedCache:    m.shared != nil,
	}
}

// FeedStats represents statistics for the feed manager
type FeedStats struct {
	TrackedSymbols int  `json:"tracked_symbols"`
	CacheTotal     int  `json:"cache_total"`
	CacheFresh     int  `json:"cache_fresh"`
	CacheStale     int  `json:"cache_stale"`
	SharedCache    bool `json:"shared_cache"`
}
