package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

// LogStore persists scheduler execution rows
type LogStore interface {
	SaveSchedulerLog(ctx context.Context, log *contracts.SchedulerLog) error
	ListSchedulerLogs(ctx context.Context, limit int) ([]contracts.SchedulerLog, error)
}

// Scheduler manages scheduled jobs
// ⭐ SSOT: 스케줄 관리는 이 스케줄러에서만
type Scheduler struct {
	cron     *cron.Cron
	store    LogStore
	location *time.Location
	logger   *logger.Logger
	jobs     map[string]Job
	entries  map[string]cron.EntryID
	history  map[string]*JobHistory
	mu       sync.RWMutex

	// Retry configuration (DataUnavailable 에러만 재시도)
	maxRetries int
	retryDelay time.Duration
	jobTimeout time.Duration

	now func() time.Time
}

// New creates a new scheduler evaluating cron expressions in loc
func New(store LogStore, loc *time.Location, log *logger.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:       cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		store:      store,
		location:   loc,
		logger:     log,
		jobs:       make(map[string]Job),
		entries:    make(map[string]cron.EntryID),
		history:    make(map[string]*JobHistory),
		maxRetries: 2,
		retryDelay: 1 * time.Minute,
		jobTimeout: 10 * time.Minute,
		now:        time.Now,
	}
}

// WithRetry overrides the retry policy
func (s *Scheduler) WithRetry(maxRetries int, delay time.Duration) *Scheduler {
	s.maxRetries = maxRetries
	s.retryDelay = delay
	return s
}

// AddJob adds a job to the scheduler
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobName := job.Name()
	if _, exists := s.jobs[jobName]; exists {
		return fmt.Errorf("job %s already exists", jobName)
	}

	id, err := s.cron.AddFunc(job.Schedule(), func() {
		_, _ = s.runJob(context.Background(), job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", jobName, err)
	}

	s.jobs[jobName] = job
	s.entries[jobName] = id
	s.history[jobName] = &JobHistory{}

	s.logger.WithFields(map[string]interface{}{
		"job":      jobName,
		"schedule": job.Schedule(),
		"timezone": s.location.String(),
	}).Info("Job added to scheduler")

	return nil
}

// RemoveJob removes a job from the scheduler
func (s *Scheduler) RemoveJob(jobName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, exists := s.entries[jobName]
	if !exists {
		return fmt.Errorf("job %s: %w", jobName, contracts.ErrNotFound)
	}

	s.cron.Remove(id)
	delete(s.jobs, jobName)
	delete(s.entries, jobName)
	s.logger.WithField("job", jobName).Info("Job removed from scheduler")

	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.logger.WithField("timezone", s.location.String()).Info("Starting scheduler")
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

// RunJob runs a job immediately (outside of schedule) and waits for the result
func (s *Scheduler) RunJob(ctx context.Context, jobName string) (*JobResult, error) {
	s.mu.RLock()
	job, exists := s.jobs[jobName]
	s.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("job %s: %w", jobName, contracts.ErrNotFound)
	}
	return s.runJob(ctx, job)
}

// runJob executes a job with retry logic and records one scheduler log row
func (s *Scheduler) runJob(ctx context.Context, job Job) (*JobResult, error) {
	jobName := job.Name()
	result := JobResult{
		ExecutionID: uuid.NewString(),
		JobName:     jobName,
		StartTime:   s.now(),
	}
	log := s.logger.WithFields(map[string]interface{}{
		"job":          jobName,
		"execution_id": result.ExecutionID,
	})
	log.Info("Job started")

	var (
		out     Output
		lastErr error
	)
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		result.Attempts = attempt + 1

		runCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
		out, lastErr = job.Run(runCtx)
		cancel()
		if lastErr == nil {
			break
		}

		// 데이터 소스 장애만 재시도 (pending run 등은 즉시 실패)
		if !errors.Is(lastErr, contracts.ErrDataUnavailable) || attempt == s.maxRetries {
			break
		}

		log.WithFields(map[string]interface{}{
			"attempt": attempt + 1,
			"error":   lastErr.Error(),
		}).Warn("Job execution failed, retrying")

		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
			attempt = s.maxRetries
		case <-time.After(s.retryDelay):
		}
	}

	result.EndTime = s.now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.Success = lastErr == nil
	result.RunID = out.RunID
	if lastErr != nil {
		result.Error = lastErr.Error()
	}

	s.mu.Lock()
	if history, exists := s.history[jobName]; exists {
		history.AddResult(result)
	}
	s.mu.Unlock()

	s.record(ctx, result)

	if result.Success {
		log.WithField("duration", result.Duration).Info("Job completed successfully")
	} else {
		log.WithFields(map[string]interface{}{
			"duration": result.Duration,
			"attempts": result.Attempts,
			"error":    result.Error,
		}).Error("Job failed")
	}

	return &result, lastErr
}

// record stores the execution row. A storage failure is logged, never returned.
func (s *Scheduler) record(ctx context.Context, result JobResult) {
	if s.store == nil {
		return
	}

	row := &contracts.SchedulerLog{
		ExecutionID:  result.ExecutionID,
		JobName:      result.JobName,
		RunDate:      result.StartTime.In(s.location),
		Status:       contracts.SchedulerSuccess,
		RunID:        result.RunID,
		ErrorMessage: contracts.TruncateError(result.Error),
	}
	if !result.Success {
		row.Status = contracts.SchedulerError
	}

	// 요청 컨텍스트가 취소돼도 로그는 남긴다
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.store.SaveSchedulerLog(saveCtx, row); err != nil {
		s.logger.WithError(err).WithField("execution_id", result.ExecutionID).Error("Failed to save scheduler log")
	}
}

// Logs returns the persisted execution rows, newest first
func (s *Scheduler) Logs(ctx context.Context, limit int) ([]contracts.SchedulerLog, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListSchedulerLogs(ctx, limit)
}

// GetJobHistory returns the history for a specific job
func (s *Scheduler) GetJobHistory(jobName string) (*JobHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, exists := s.history[jobName]
	if !exists {
		return nil, fmt.Errorf("job %s: %w", jobName, contracts.ErrNotFound)
	}
	return history, nil
}

// GetAllJobs returns all registered job names, sorted
func (s *Scheduler) GetAllJobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]string, 0, len(s.jobs))
	for jobName := range s.jobs {
		jobs = append(jobs, jobName)
	}
	sort.Strings(jobs)
	return jobs
}

// NextRun returns the next scheduled time of a job (zero before Start)
func (s *Scheduler) NextRun(jobName string) (time.Time, bool) {
	s.mu.RLock()
	id, exists := s.entries[jobName]
	s.mu.RUnlock()
	if !exists {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// GetJobStats returns statistics for all jobs
func (s *Scheduler) GetJobStats() map[string]JobStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]JobStats)

	for jobName, history := range s.history {
		job, ok := s.jobs[jobName]
		if !ok {
			continue
		}
		latestResults := history.GetLatestResults(10)
		failedResults := history.GetFailedResults()

		var lastRun, lastSuccess, lastFailure *time.Time
		if len(latestResults) > 0 {
			lastResult := latestResults[len(latestResults)-1]
			lastRun = &lastResult.StartTime

			if lastResult.Success {
				lastSuccess = &lastResult.StartTime
			} else {
				lastFailure = &lastResult.StartTime
			}
		}

		stats[jobName] = JobStats{
			JobName:      jobName,
			Schedule:     job.Schedule(),
			TotalRuns:    len(history.Results),
			SuccessCount: len(history.Results) - len(failedResults),
			FailureCount: len(failedResults),
			SuccessRate:  history.GetSuccessRate(),
			LastRun:      lastRun,
			LastSuccess:  lastSuccess,
			LastFailure:  lastFailure,
		}
	}

	return stats
}

// JobStats represents statistics for a job
type JobStats struct {
	JobName      string     `json:"job_name"`
	Schedule     string     `json:"schedule"`
	TotalRuns    int        `json:"total_runs"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
	LastFailure  *time.Time `json:"last_failure,omitempty"`
}
