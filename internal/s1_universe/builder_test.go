package s1_universe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
	"github.com/CedricEugeni/MoMentor/pkg/redis"
)

type failingProvider struct{}

func (failingProvider) Symbols(context.Context) ([]string, error) {
	return nil, errors.New("wikipedia down")
}

func (failingProvider) Source() string { return "wikipedia" }

func newTestBuilder(p contracts.UniverseProvider, cfg Config) *Builder {
	cache := redis.NewCache(redis.NewDisabled(), "test")
	return NewBuilder(p, cache, cfg, logger.Nop())
}

func TestBuilder_Build(t *testing.T) {
	provider := NewStaticProvider([]string{"msft", "AAPL", "BRK.B", "GOOGL", "GOOG", "AAPL", "bad ticker"})
	builder := newTestBuilder(provider, Config{Exclude: []string{"GOOGL"}})

	asOf := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	universe, err := builder.Build(context.Background(), asOf)
	require.NoError(t, err)

	assert.Equal(t, asOf, universe.Date)
	assert.Equal(t, "static", universe.Source)
	assert.Equal(t, []string{"AAPL", "BRK-B", "GOOG", "MSFT"}, universe.Symbols)

	excluded, reason := universe.IsExcluded("GOOGL")
	assert.True(t, excluded)
	assert.Equal(t, "configured_exclusion", reason)

	excluded, reason = universe.IsExcluded("bad ticker")
	assert.True(t, excluded)
	assert.Equal(t, "invalid_ticker", reason)
}

func TestBuilder_Build_ProviderError(t *testing.T) {
	builder := newTestBuilder(failingProvider{}, Config{})

	_, err := builder.Build(context.Background(), time.Now())
	assert.Error(t, err)
}

func TestBuilder_Build_Empty(t *testing.T) {
	builder := newTestBuilder(NewStaticProvider(nil), Config{})

	_, err := builder.Build(context.Background(), time.Now())
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "BRK-B", Normalize(" brk.b "))
	assert.Equal(t, "AAPL", Normalize("AAPL"))
}
