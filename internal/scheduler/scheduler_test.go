package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CedricEugeni/MoMentor/internal/contracts"
	"github.com/CedricEugeni/MoMentor/pkg/logger"
)

type memoryStore struct {
	mu   sync.Mutex
	rows []contracts.SchedulerLog
}

func (m *memoryStore) SaveSchedulerLog(ctx context.Context, log *contracts.SchedulerLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	log.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, *log)
	return nil
}

func (m *memoryStore) ListSchedulerLogs(ctx context.Context, limit int) ([]contracts.SchedulerLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]contracts.SchedulerLog, 0, len(m.rows))
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.rows[i])
	}
	return out, nil
}

type stubJob struct {
	name  string
	calls int
	errs  []error
	runID int64
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return "0 0 11 1 * *" }

func (j *stubJob) Run(ctx context.Context) (Output, error) {
	j.calls++
	if len(j.errs) > 0 {
		err := j.errs[0]
		j.errs = j.errs[1:]
		if err != nil {
			return Output{}, err
		}
	}
	id := j.runID
	return Output{RunID: &id}, nil
}

func newTestScheduler(store LogStore) *Scheduler {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		panic(err)
	}
	return New(store, paris, logger.Nop()).WithRetry(2, 0)
}

func TestRunJob_SuccessRecordsLog(t *testing.T) {
	store := &memoryStore{}
	s := newTestScheduler(store)
	job := &stubJob{name: "monthly_run", runID: 42}
	require.NoError(t, s.AddJob(job))

	res, err := s.RunJob(context.Background(), "monthly_run")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Attempts)
	assert.NotEmpty(t, res.ExecutionID)

	logs, err := s.Logs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, contracts.SchedulerSuccess, logs[0].Status)
	assert.Equal(t, "monthly_run", logs[0].JobName)
	assert.Equal(t, res.ExecutionID, logs[0].ExecutionID)
	require.NotNil(t, logs[0].RunID)
	assert.Equal(t, int64(42), *logs[0].RunID)
	assert.Equal(t, "Europe/Paris", logs[0].RunDate.Location().String())
}

func TestRunJob_RetriesDataUnavailable(t *testing.T) {
	store := &memoryStore{}
	s := newTestScheduler(store)
	job := &stubJob{
		name: "monthly_run",
		errs: []error{fmt.Errorf("quote: %w", contracts.ErrDataUnavailable), nil},
	}
	require.NoError(t, s.AddJob(job))

	res, err := s.RunJob(context.Background(), "monthly_run")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, 2, job.calls)
	assert.Len(t, store.rows, 1)
}

func TestRunJob_PreconditionFailsOnce(t *testing.T) {
	store := &memoryStore{}
	s := newTestScheduler(store)
	long := strings.Repeat("x", 800)
	job := &stubJob{
		name: "monthly_run",
		errs: []error{fmt.Errorf("%w: %s", contracts.ErrPreconditionViolation, long)},
	}
	require.NoError(t, s.AddJob(job))

	res, err := s.RunJob(context.Background(), "monthly_run")
	assert.ErrorIs(t, err, contracts.ErrPreconditionViolation)
	assert.False(t, res.Success)
	assert.Equal(t, 1, job.calls)

	require.Len(t, store.rows, 1)
	row := store.rows[0]
	assert.Equal(t, contracts.SchedulerError, row.Status)
	assert.Nil(t, row.RunID)
	assert.Len(t, []rune(row.ErrorMessage), contracts.MaxSchedulerErrorLen)

	stats := s.GetJobStats()["monthly_run"]
	assert.Equal(t, 1, stats.FailureCount)
	assert.NotNil(t, stats.LastFailure)
}

func TestRunJob_GivesUpAfterRetries(t *testing.T) {
	s := newTestScheduler(&memoryStore{})
	unavailable := fmt.Errorf("history: %w", contracts.ErrDataUnavailable)
	job := &stubJob{name: "monthly_run", errs: []error{unavailable, unavailable, unavailable, unavailable}}
	require.NoError(t, s.AddJob(job))

	_, err := s.RunJob(context.Background(), "monthly_run")
	assert.ErrorIs(t, err, contracts.ErrDataUnavailable)
	assert.Equal(t, 3, job.calls)
}

func TestAddJob_Validation(t *testing.T) {
	s := newTestScheduler(nil)
	require.NoError(t, s.AddJob(&stubJob{name: "a"}))
	assert.Error(t, s.AddJob(&stubJob{name: "a"}))

	_, err := s.RunJob(context.Background(), "missing")
	assert.True(t, errors.Is(err, contracts.ErrNotFound))

	assert.Equal(t, []string{"a"}, s.GetAllJobs())
	require.NoError(t, s.RemoveJob("a"))
	assert.Empty(t, s.GetAllJobs())
	assert.ErrorIs(t, s.RemoveJob("a"), contracts.ErrNotFound)
}

func TestNextRun_MonthlyInParis(t *testing.T) {
	s := newTestScheduler(nil)
	require.NoError(t, s.AddJob(&stubJob{name: "monthly_run"}))

	s.Start()
	defer s.Stop()

	next, ok := s.NextRun("monthly_run")
	require.True(t, ok)
	local := next.In(s.location)
	assert.Equal(t, 1, local.Day())
	assert.Equal(t, 11, local.Hour())
	assert.Equal(t, 0, local.Minute())
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	assert.Equal(t, 0.0, h.GetSuccessRate())
	assert.Empty(t, h.GetLatestResults(5))

	for i := 0; i < maxHistory+10; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}
	assert.Len(t, h.Results, maxHistory)
	assert.Len(t, h.GetLatestResults(3), 3)
	assert.InDelta(t, 0.5, h.GetSuccessRate(), 0.001)
	assert.Len(t, h.GetFailedResults(), maxHistory/2)
}
