package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcJob struct {
	name     string
	schedule string
	run      func(ctx context.Context) error
}

func (j *funcJob) Name() string                  { return j.name }
func (j *funcJob) Schedule() string              { return j.schedule }
func (j *funcJob) Run(ctx context.Context) error { return j.run(ctx) }

type jobCounter struct {
	ok, failed atomic.Int32
}

func (c *jobCounter) ObserveJob(_ string, success bool) {
	if success {
		c.ok.Add(1)
	} else {
		c.failed.Add(1)
	}
}

func newTestScheduler(opts ...Option) *Scheduler {
	opts = append([]Option{WithRetry(2, time.Millisecond)}, opts...)
	return New(zerolog.Nop(), opts...)
}

func TestAddJob(t *testing.T) {
	s := newTestScheduler()
	job := &funcJob{name: "a", schedule: "0 0 6 * * *", run: func(context.Context) error { return nil }}

	require.NoError(t, s.AddJob(job))
	assert.Error(t, s.AddJob(job), "duplicate name")

	bad := &funcJob{name: "b", schedule: "not a cron", run: job.run}
	assert.Error(t, s.AddJob(bad))

	assert.Equal(t, []string{"a"}, s.GetAllJobs())
}

func TestRemoveJob(t *testing.T) {
	s := newTestScheduler()
	job := &funcJob{name: "a", schedule: "@hourly", run: func(context.Context) error { return nil }}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RemoveJob("a"))
	assert.Empty(t, s.cron.Entries())
	assert.Error(t, s.RemoveJob("a"))
	_, err := s.RunJobSync(context.Background(), "a")
	assert.Error(t, err)
}

func TestRunJobSync_RetriesThenSucceeds(t *testing.T) {
	counter := &jobCounter{}
	s := newTestScheduler(WithObserver(counter))

	calls := 0
	require.NoError(t, s.AddJob(&funcJob{name: "flaky", schedule: "@daily", run: func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}}))

	result, err := s.RunJobSync(context.Background(), "flaky")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, int32(1), counter.ok.Load())

	stats := s.GetJobStats()["flaky"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1.0, stats.SuccessRate)
	assert.NotNil(t, stats.LastSuccess)
	assert.Nil(t, stats.LastFailure)
}

func TestRunJobSync_FailsAfterRetries(t *testing.T) {
	counter := &jobCounter{}
	s := newTestScheduler(WithObserver(counter))

	require.NoError(t, s.AddJob(&funcJob{name: "broken", schedule: "@daily", run: func(context.Context) error {
		return errors.New("always")
	}}))

	result, err := s.RunJobSync(context.Background(), "broken")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, "always", result.Error)
	assert.Equal(t, int32(1), counter.failed.Load())

	history, err := s.GetJobHistory("broken", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 1, s.GetJobStats()["broken"].FailureCount)
}

func TestRunJobSync_RecoversPanic(t *testing.T) {
	s := newTestScheduler(WithRetry(0, 0))
	require.NoError(t, s.AddJob(&funcJob{name: "panics", schedule: "@daily", run: func(context.Context) error {
		panic("bad job")
	}}))

	result, err := s.RunJobSync(context.Background(), "panics")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "bad job")
}

func TestRunJobSync_Timeout(t *testing.T) {
	s := newTestScheduler(WithRetry(0, 0), WithJobTimeout(10*time.Millisecond))
	require.NoError(t, s.AddJob(&funcJob{name: "slow", schedule: "@daily", run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}))

	result, err := s.RunJobSync(context.Background(), "slow")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "deadline exceeded")
}

func TestJobHistory(t *testing.T) {
	var h JobHistory
	for i := 0; i < historyLimit+5; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}
	assert.Len(t, h.Results, historyLimit)
	assert.Len(t, h.Latest(3), 3)
	assert.Len(t, h.Latest(1000), historyLimit)
	assert.InDelta(t, 0.5, h.SuccessRate(), 1e-9)
}

func TestGetJobStats_NextRun(t *testing.T) {
	s := newTestScheduler()
	require.NoError(t, s.AddJob(&funcJob{name: "a", schedule: "@hourly", run: func(context.Context) error { return nil }}))
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return s.GetJobStats()["a"].NextRun != nil
	}, time.Second, 10*time.Millisecond)
}
