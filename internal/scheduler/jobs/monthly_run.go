package jobs

import (
	"context"

	"github.com/CedricEugeni/MoMentor/internal/brain"
	"github.com/CedricEugeni/MoMentor/internal/scheduler"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

// DefaultMonthlySchedule is 11:00 on the 1st of every month (seconds field first)
const DefaultMonthlySchedule = "0 0 11 1 * *"

// RunGenerator starts a run
type RunGenerator interface {
	Generate(ctx context.Context, req brain.GenerateRequest) (*brain.GenerateResult, error)
}

// MonthlyRunJob generates the monthly run from the last confirmed portfolio
// ⭐ SSOT: 월간 자동 런 생성은 이 Job에서만
type MonthlyRunJob struct {
	runs     RunGenerator
	schedule string
	logger   *logger.Logger
}

// NewMonthlyRunJob creates a new monthly run job. An empty schedule uses DefaultMonthlySchedule.
func NewMonthlyRunJob(runs RunGenerator, schedule string, log *logger.Logger) *MonthlyRunJob {
	if schedule == "" {
		schedule = DefaultMonthlySchedule
	}
	return &MonthlyRunJob{
		runs:     runs,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *MonthlyRunJob) Name() string {
	return "monthly_run"
}

// Schedule returns the cron schedule
func (j *MonthlyRunJob) Schedule() string {
	return j.schedule
}

// Run generates a run in monthly mode (capital = live value of the last confirmation)
func (j *MonthlyRunJob) Run(ctx context.Context) (scheduler.Output, error) {
	j.logger.Info("Starting scheduled monthly run")

	res, err := j.runs.Generate(ctx, brain.GenerateRequest{Mode: "monthly"})
	if err != nil {
		return scheduler.Output{}, err
	}

	id := res.Run.ID
	j.logger.WithRun(id).WithFields(map[string]interface{}{
		"capital":     res.Run.TotalCapital.StringFixed(2),
		"market_open": res.Run.MarketOpen,
	}).Info("Automatic monthly run generated")

	return scheduler.Output{RunID: &id}, nil
}
