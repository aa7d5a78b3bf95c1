package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides typed JSON caching on top of Client
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

func (c *Cache) key(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value. A miss returns (false, nil).
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.client.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.client.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.key(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.client.Enabled() {
		return nil
	}

	return c.client.Redis().Del(ctx, c.key(key)).Err()
}

// GetOrSet retrieves from cache or calls fn to populate it.
// Cache failures never fail the call: fn's result is authoritative.
func (c *Cache) GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, fn func() (interface{}, error)) error {
	if found, err := c.Get(ctx, key, dest); err == nil && found {
		return nil
	}

	value, err := fn()
	if err != nil {
		return err
	}

	_ = c.Set(ctx, key, value, ttl)

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}
	return json.Unmarshal(data, dest)
}

// Predefined TTLs
const (
	TTLQuote    = 5 * time.Minute  // 실시간 시세
	TTLHistory  = 6 * time.Hour    // 일봉 히스토리 (장 마감 후 갱신)
	TTLUniverse = 24 * time.Hour   // 지수 구성 종목
	TTLFX       = 15 * time.Minute // 환율
)

// HistoryKey keys a daily history window by symbol, as-of day and lookback
func HistoryKey(symbol string, asOf time.Time, lookbackDays int) string {
	return fmt.Sprintf("history:%s:%s:%d", strings.ToUpper(symbol), asOf.Format("2006-01-02"), lookbackDays)
}

// QuoteKey keys the latest quote of a symbol
func QuoteKey(symbol string) string {
	return fmt.Sprintf("quote:%s", strings.ToUpper(symbol))
}

// UniverseKey keys a constituents list by source name and day
func UniverseKey(source string, day time.Time) string {
	return fmt.Sprintf("universe:%s:%s", source, day.Format("2006-01-02"))
}
