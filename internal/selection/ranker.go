package selection

import (
	"context"
	"sort"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

// Ranker implements S4: momentum/volatility ordering
// ⭐ SSOT: S4 랭킹 로직은 여기서만
type Ranker struct {
	logger *logger.Logger
}

// NewRanker creates a new ranker
func NewRanker(log *logger.Logger) *Ranker {
	return &Ranker{
		logger: log.WithStage(contracts.StageRanker.ShortName()),
	}
}

// Rank sorts by score descending, ties by symbol, and assigns 1-based ranks
func (r *Ranker) Rank(ctx context.Context, candidates []contracts.Candidate) ([]contracts.Candidate, error) {
	ranked := make([]contracts.Candidate, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	if len(ranked) > 0 {
		r.logger.WithFields(map[string]interface{}{
			"count":     len(ranked),
			"top":       ranked[0].Symbol,
			"top_score": ranked[0].Score,
		}).Info("Ranking completed")
	}

	return ranked, nil
}
