package cache

import (
	"sync"
	"time"

	"github.com/CedricEugeni/MoMentor/internal/realtime"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

// DefaultTTL is how long a live quote may be reused
const DefaultTTL = 5 * time.Minute

// PriceCache is an in-memory cache for live quotes
// ⭐ SSOT: 실시간 시세 캐싱은 이 구조체에서만
type PriceCache struct {
	mu     sync.RWMutex
	quotes map[string]*realtime.Quote
	ttl    time.Duration
	now    func() time.Time
	logger *logger.Logger
}

// NewPriceCache creates a new price cache
func NewPriceCache(ttl time.Duration, log *logger.Logger) *PriceCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PriceCache{
		quotes: make(map[string]*realtime.Quote),
		ttl:    ttl,
		now:    time.Now,
		logger: log,
	}
}

// WithClock replaces the time source (tests)
func (c *PriceCache) WithClock(now func() time.Time) *PriceCache {
	c.now = now
	return c
}

// Update stores a quote.
// Older quotes are rejected; same-timestamp quotes need a higher priority source.
func (c *PriceCache) Update(q *realtime.Quote) bool {
	if q == nil || !q.Price.IsPositive() {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.quotes[q.Symbol]; ok {
		if q.Timestamp.Before(existing.Timestamp) {
			c.logger.WithFields(map[string]interface{}{
				"symbol":   q.Symbol,
				"new_time": q.Timestamp,
				"old_time": existing.Timestamp,
			}).Debug("Rejected older quote")
			return false
		}
		if q.Timestamp.Equal(existing.Timestamp) &&
			realtime.PriceSource(q.Source).Priority() <= realtime.PriceSource(existing.Source).Priority() {
			return false
		}
	}

	stored := *q
	stored.IsStale = c.now().Sub(q.Timestamp) > c.ttl
	c.quotes[q.Symbol] = &stored
	return true
}

// Get returns a fresh quote. Stale entries are treated as misses.
func (c *PriceCache) Get(symbol string) (*realtime.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q, ok := c.quotes[symbol]
	if !ok || c.now().Sub(q.Timestamp) > c.ttl {
		return nil, false
	}
	out := *q
	out.IsStale = false
	return &out, true
}

// GetMany returns the fresh quotes among symbols and the symbols still to fetch
func (c *PriceCache) GetMany(symbols []string) (map[string]*realtime.Quote, []string) {
	found := make(map[string]*realtime.Quote, len(symbols))
	missing := make([]string, 0)
	for _, s := range symbols {
		if q, ok := c.Get(s); ok {
			found[s] = q
		} else {
			missing = append(missing, s)
		}
	}
	return found, missing
}

// Delete removes a quote
func (c *PriceCache) Delete(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.quotes, symbol)
}

// Clear drops everything
func (c *PriceCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.quotes = make(map[string]*realtime.Quote)
	c.logger.Info("Cleared price cache")
}

// Len returns the number of cached quotes (fresh or not)
func (c *PriceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.quotes)
}

// CleanStale removes expired quotes
func (c *PriceCache) CleanStale() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	count := 0
	for symbol, q := range c.quotes {
		if now.Sub(q.Timestamp) > c.ttl {
			delete(c.quotes, symbol)
			count++
		}
	}

	if count > 0 {
		c.logger.WithField("count", count).Info("Cleaned stale quotes from cache")
	}
	return count
}

// Stats returns cache statistics
func (c *PriceCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := CacheStats{TotalCount: len(c.quotes)}
	now := c.now()
	for _, q := range c.quotes {
		if now.Sub(q.Timestamp) > c.ttl {
			stats.StaleCount++
		}
		switch realtime.PriceSource(q.Source) {
		case realtime.SourceYahoo:
			stats.YahooCount++
		case realtime.SourceRedis:
			stats.RedisCount++
		}
	}
	stats.FreshCount = stats.TotalCount - stats.StaleCount
	return stats
}

// CacheStats represents cache statistics
type CacheStats struct {
	TotalCount int `json:"total_count"`
	FreshCount int `json:"fresh_count"`
	StaleCount int `json:"stale_count"`
	YahooCount int `json:"yahoo_count"`
	RedisCount int `json:"redis_count"`
}
