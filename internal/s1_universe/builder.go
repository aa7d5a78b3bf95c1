package s1_universe

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
	"github.com/CedricEugeni/MoMentor/pkg/redis"
)

// 티커 형식 (BRK-B, META 등)
var tickerPattern = regexp.MustCompile(`^[A-Z][A-Z0-9-]{0,9}$`)

// Builder constructs the investable universe
type Builder struct {
	provider contracts.UniverseProvider
	cache    *redis.Cache
	config   Config
	logger   *logger.Logger
}

// Config holds universe filter criteria
type Config struct {
	Exclude []string `yaml:"exclude"` // 제외 종목 (중복 클래스 등)
}

// NewBuilder creates a new Universe Builder
func NewBuilder(provider contracts.UniverseProvider, cache *redis.Cache, config Config, log *logger.Logger) *Builder {
	return &Builder{
		provider: provider,
		cache:    cache,
		config:   config,
		logger:   log.WithStage(contracts.StageUniverse.ShortName()),
	}
}

// Build constructs the investable universe as of a date
// ⭐ SSOT: S1 → S2 유니버스 생성
func (b *Builder) Build(ctx context.Context, asOf time.Time) (*contracts.Universe, error) {
	start := time.Now()

	raw, err := b.symbols(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("fetch universe: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("universe source %s returned no symbols: %w", b.provider.Source(), contracts.ErrDataUnavailable)
	}

	normalized := make([]string, 0, len(raw))
	invalid := make(map[string]string)
	for _, s := range raw {
		n := Normalize(s)
		if !tickerPattern.MatchString(n) {
			invalid[s] = "invalid_ticker"
			continue
		}
		normalized = append(normalized, n)
	}

	universe := contracts.NewUniverse(asOf, b.provider.Source(), normalized)
	for s, reason := range invalid {
		universe.Excluded[s] = reason
	}
	for _, s := range b.config.Exclude {
		universe.Exclude(Normalize(s), "configured_exclusion")
	}

	b.logger.WithFields(map[string]interface{}{
		"source":   universe.Source,
		"total":    universe.TotalCount,
		"eligible": universe.Count(),
		"excluded": len(universe.Excluded),
		"ms":       time.Since(start).Milliseconds(),
	}).Info("universe built")

	return universe, nil
}

// symbols reads the provider through the daily universe cache
func (b *Builder) symbols(ctx context.Context, asOf time.Time) ([]string, error) {
	var out []string
	err := b.cache.GetOrSet(ctx, redis.UniverseKey(b.provider.Source(), asOf), &out, redis.TTLUniverse, func() (interface{}, error) {
		return b.provider.Symbols(ctx)
	})
	return out, err
}

// Normalize upper-cases a ticker and maps class separators to Yahoo form (BRK.B → BRK-B)
func Normalize(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	return strings.ReplaceAll(s, ".", "-")
}
