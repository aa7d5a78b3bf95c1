package selection

import (
	"context"
	"fmt"
	"time"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

// Scorer runs S2 → S3 → S4 as one scoring pass
type Scorer struct {
	signals  contracts.SignalBuilder
	screener contracts.Screener
	ranker   contracts.Ranker
	logger   *logger.Logger
}

// NewScorer creates a new scorer
func NewScorer(signals contracts.SignalBuilder, screener contracts.Screener, ranker contracts.Ranker, log *logger.Logger) *Scorer {
	return &Scorer{
		signals:  signals,
		screener: screener,
		ranker:   ranker,
		logger:   log,
	}
}

// Score returns ranked candidates. A closed market yields MarketOpen=false and no candidates.
func (s *Scorer) Score(ctx context.Context, universe *contracts.Universe, asOf time.Time) (*contracts.ScoreResult, error) {
	result, err := s.signals.Build(ctx, universe, asOf)
	if err != nil {
		return nil, fmt.Errorf("signals: %w", err)
	}
	if !result.MarketOpen {
		s.logger.WithField("index", result.Market.IndexSymbol).Warn("Market filter closed, no candidates")
		result.Candidates = []contracts.Candidate{}
		return result, nil
	}

	screened, err := s.screener.Screen(ctx, result)
	if err != nil {
		return nil, fmt.Errorf("screener: %w", err)
	}

	ranked, err := s.ranker.Rank(ctx, screened)
	if err != nil {
		return nil, fmt.Errorf("ranker: %w", err)
	}

	result.Candidates = ranked
	return result, nil
}
