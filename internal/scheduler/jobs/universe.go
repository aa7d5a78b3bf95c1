package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/internal/scheduler"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

// DefaultUniverseSchedule warms the universe cache 30 minutes before the monthly run
const DefaultUniverseSchedule = "0 30 10 1 * *"

// UniverseJob builds the universe ahead of the monthly run so the constituent
// pages are fetched (and cached) outside the run itself.
type UniverseJob struct {
	builder  contracts.UniverseBuilder
	schedule string
	logger   *logger.Logger
	now      func() time.Time
}

// NewUniverseJob creates a new universe job
func NewUniverseJob(builder contracts.UniverseBuilder, schedule string, log *logger.Logger) *UniverseJob {
	if schedule == "" {
		schedule = DefaultUniverseSchedule
	}
	return &UniverseJob{
		builder:  builder,
		schedule: schedule,
		logger:   log,
		now:      time.Now,
	}
}

// Name returns the job name
func (j *UniverseJob) Name() string {
	return "universe_refresh"
}

// Schedule returns the cron schedule
func (j *UniverseJob) Schedule() string {
	return j.schedule
}

// Run executes the universe generation
func (j *UniverseJob) Run(ctx context.Context) (scheduler.Output, error) {
	universe, err := j.builder.Build(ctx, j.now())
	if err != nil {
		return scheduler.Output{}, fmt.Errorf("build universe: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"source":         universe.Source,
		"total_count":    universe.TotalCount,
		"included_count": universe.Count(),
		"excluded_count": len(universe.Excluded),
	}).Info("Universe refreshed")

	return scheduler.Output{}, nil
}
