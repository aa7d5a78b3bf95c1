package selection

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

type stubSignals struct {
	result *contracts.ScoreResult
	err    error
}

func (s stubSignals) Build(context.Context, *contracts.Universe, time.Time) (*contracts.ScoreResult, error) {
	return s.result, s.err
}

func TestScreener_Screen(t *testing.T) {
	result := &contracts.ScoreResult{
		MarketOpen: true,
		Candidates: []contracts.Candidate{
			{Symbol: "AAPL", CurrentPrice: 110, MA220: 100, Volatility: 2, Score: 0.01},
			{Symbol: "FLAT", CurrentPrice: 100, MA220: 100, Volatility: 2, Score: 0.01},
			{Symbol: "ZERO", CurrentPrice: 110, MA220: 100, Volatility: 0},
			{Symbol: "NAN", CurrentPrice: 110, MA220: 100, Volatility: math.NaN()},
		},
		Excluded: map[string]string{},
	}

	passed, err := NewScreener(logger.Nop()).Screen(context.Background(), result)
	require.NoError(t, err)
	require.Len(t, passed, 1)
	assert.Equal(t, "AAPL", passed[0].Symbol)

	assert.Equal(t, contracts.ReasonBelowMA, result.Excluded["FLAT"])
	assert.Equal(t, contracts.ReasonNonPositiveVol, result.Excluded["ZERO"])
	assert.Equal(t, contracts.ReasonNonPositiveVol, result.Excluded["NAN"])
}

func TestRanker_Rank_TiesBySymbol(t *testing.T) {
	candidates := []contracts.Candidate{
		{Symbol: "MSFT", Score: 0.5},
		{Symbol: "NVDA", Score: 0.9},
		{Symbol: "AAPL", Score: 0.5},
		{Symbol: "AMZN", Score: -0.1},
	}

	ranked, err := NewRanker(logger.Nop()).Rank(context.Background(), candidates)
	require.NoError(t, err)

	var symbols []string
	for _, c := range ranked {
		symbols = append(symbols, c.Symbol)
	}
	assert.Equal(t, []string{"NVDA", "AAPL", "MSFT", "AMZN"}, symbols)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 4, ranked[3].Rank)
	assert.Zero(t, candidates[0].Rank, "input is not mutated")
}

func TestScorer_Score(t *testing.T) {
	log := logger.Nop()
	build := &contracts.ScoreResult{
		MarketOpen: true,
		Candidates: []contracts.Candidate{
			{Symbol: "B", CurrentPrice: 2, MA220: 1, Volatility: 1, Score: 0.2},
			{Symbol: "A", CurrentPrice: 2, MA220: 1, Volatility: 1, Score: 0.4},
			{Symbol: "C", CurrentPrice: 1, MA220: 2, Volatility: 1, Score: 0.9},
		},
		Excluded: map[string]string{},
	}

	scorer := NewScorer(stubSignals{result: build}, NewScreener(log), NewRanker(log), log)
	result, err := scorer.Score(context.Background(), &contracts.Universe{}, time.Now())
	require.NoError(t, err)

	require.Len(t, result.Candidates, 2)
	assert.Equal(t, "A", result.Candidates[0].Symbol)
	assert.Equal(t, contracts.ReasonBelowMA, result.Excluded["C"])
}

func TestScorer_Score_MarketClosed(t *testing.T) {
	log := logger.Nop()
	build := &contracts.ScoreResult{MarketOpen: false, Excluded: map[string]string{}}

	scorer := NewScorer(stubSignals{result: build}, NewScreener(log), NewRanker(log), log)
	result, err := scorer.Score(context.Background(), &contracts.Universe{}, time.Now())
	require.NoError(t, err)
	assert.False(t, result.MarketOpen)
	assert.Empty(t, result.Candidates)
}
