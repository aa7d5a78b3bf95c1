package selection

import (
	"context"
	"math"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

// Screener implements S3: trend and volatility hard cuts
// ⭐ SSOT: S3 스크리닝 로직은 여기서만
type Screener struct {
	logger *logger.Logger
}

// NewScreener creates a new screener
func NewScreener(log *logger.Logger) *Screener {
	return &Screener{
		logger: log.WithStage(contracts.StageScreener.ShortName()),
	}
}

// Screen keeps candidates whose close is strictly above MA220 and whose
// volatility is positive and finite. Removed symbols are recorded in result.Excluded.
func (s *Screener) Screen(ctx context.Context, result *contracts.ScoreResult) ([]contracts.Candidate, error) {
	if !result.MarketOpen {
		return []contracts.Candidate{}, nil
	}
	if result.Excluded == nil {
		result.Excluded = make(map[string]string)
	}

	passed := make([]contracts.Candidate, 0, len(result.Candidates))
	for _, c := range result.Candidates {
		if reason := s.check(c); reason != "" {
			result.Excluded[c.Symbol] = reason
			continue
		}
		passed = append(passed, c)
	}

	s.logger.WithFields(map[string]interface{}{
		"input":  len(result.Candidates),
		"passed": len(passed),
	}).Info("Screening completed")

	return passed, nil
}

// check returns the exclusion reason, or "" when the candidate passes
func (s *Screener) check(c contracts.Candidate) string {
	if !(c.CurrentPrice > c.MA220) {
		return contracts.ReasonBelowMA
	}
	if math.IsNaN(c.Volatility) || math.IsInf(c.Volatility, 0) || c.Volatility <= 0 {
		return contracts.ReasonNonPositiveVol
	}
	if math.IsNaN(c.Score) || math.IsInf(c.Score, 0) {
		return contracts.ReasonNonPositiveVol
	}
	return ""
}
