package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/CedricEugeni/MoMentor/pkg/config"
)

// UpstreamLimit is the request budget one external API gets across every
// process sharing the Redis instance
type UpstreamLimit struct {
	Upstream string        // yahoo, wikipedia
	Limit    int           // requests per window
	Window   time.Duration // fixed window length
}

// YahooLimit turns the per-process token rate into a shared per-minute budget
func YahooLimit(cfg config.YahooConfig) UpstreamLimit {
	perMinute := int(cfg.RequestsPerSec * 60)
	if perMinute < 1 {
		perMinute = 1
	}
	return UpstreamLimit{Upstream: "yahoo", Limit: perMinute, Window: time.Minute}
}

// WikipediaLimit budgets the constituents scrape (2 pages per universe build)
func WikipediaLimit() UpstreamLimit {
	return UpstreamLimit{Upstream: "wikipedia", Limit: 30, Window: time.Minute}
}

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration // until the current window closes
}

// RateLimiter counts upstream requests in fixed Redis windows
// ⭐ SSOT: 외부 API 호출 한도는 여기서만
type RateLimiter struct {
	client *Client
	prefix string
	now    func() time.Time
}

// NewRateLimiter creates a limiter whose keys live under prefix
func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

// WithClock replaces the time source (tests)
func (r *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	r.now = now
	return r
}

// windowKey returns the counter key of the window containing now and the time left in it
func (r *RateLimiter) windowKey(limit UpstreamLimit, now time.Time) (string, time.Duration) {
	size := limit.Window.Milliseconds()
	if size <= 0 {
		size = time.Minute.Milliseconds()
	}
	ms := now.UnixMilli()
	index := ms / size
	resetIn := time.Duration((index+1)*size-ms) * time.Millisecond
	return fmt.Sprintf("%s:%s:%d", r.prefix, limit.Upstream, index), resetIn
}

// Allow consumes one request from the upstream budget.
// A disabled client always allows (each process keeps its own x/time/rate limiter).
func (r *RateLimiter) Allow(ctx context.Context, limit UpstreamLimit) (Decision, error) {
	if !r.client.Enabled() {
		return Decision{Allowed: true, Remaining: limit.Limit}, nil
	}

	key, resetIn := r.windowKey(limit, r.now())

	var incr *redis.IntCmd
	_, err := r.client.Redis().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		// 창이 끝나면 키도 사라짐 (여유 1초)
		pipe.PExpire(ctx, key, resetIn+time.Second)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit %s: %w", limit.Upstream, err)
	}

	used := int(incr.Val())
	if used > limit.Limit {
		return Decision{Allowed: false, ResetIn: resetIn}, nil
	}
	return Decision{Allowed: true, Remaining: limit.Limit - used, ResetIn: resetIn}, nil
}

// Wait blocks until the upstream budget has room or ctx is done.
// A refused request sleeps until its window closes.
func (r *RateLimiter) Wait(ctx context.Context, limit UpstreamLimit) error {
	for {
		d, err := r.Allow(ctx, limit)
		if err != nil {
			return err
		}
		if d.Allowed {
			return nil
		}

		timer := time.NewTimer(d.ResetIn)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
