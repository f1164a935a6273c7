package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// JobObserver 작업 결과 메트릭
type JobObserver interface {
	ObserveJob(job string, success bool)
}

// Option Scheduler 옵션
type Option func(*Scheduler)

// WithRetry sets retries after the first failed attempt and the delay between them.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(s *Scheduler) {
		s.maxRetries = maxRetries
		s.retryDelay = delay
	}
}

// WithJobTimeout bounds every attempt.
func WithJobTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.jobTimeout = d }
}

// WithObserver records job outcomes.
func WithObserver(o JobObserver) Option {
	return func(s *Scheduler) { s.observer = o }
}

type entry struct {
	job Job
	id  cron.EntryID
	mu  sync.Mutex // 같은 작업 중복 실행 방지
}

// Scheduler manages scheduled jobs
// ⭐ SSOT: 스케줄 관리는 이 스케줄러에서만
type Scheduler struct {
	cron    *cron.Cron
	log     zerolog.Logger
	jobs    map[string]*entry
	history map[string]*JobHistory
	mu      sync.RWMutex

	maxRetries int
	retryDelay time.Duration
	jobTimeout time.Duration
	observer   JobObserver

	baseCtx context.Context
	cancel  context.CancelFunc
}

// New creates a new scheduler
func New(log zerolog.Logger, opts ...Option) *Scheduler {
	log = log.With().Str("component", "scheduler").Logger()
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		cron:       cron.New(cron.WithSeconds(), cron.WithLogger(cronLogger{log: log})),
		log:        log,
		jobs:       make(map[string]*entry),
		history:    make(map[string]*JobHistory),
		maxRetries: 3,
		retryDelay: time.Minute,
		jobTimeout: 30 * time.Minute,
		baseCtx:    ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddJob adds a job to the scheduler
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := job.Name()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already exists", name)
	}

	e := &entry{job: job}
	id, err := s.cron.AddFunc(job.Schedule(), func() {
		_ = s.runEntry(s.baseCtx, e)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}
	e.id = id

	s.jobs[name] = e
	s.history[name] = &JobHistory{}

	s.log.Info().Str("job", name).Str("schedule", job.Schedule()).Msg("Job added to scheduler")
	return nil
}

// RemoveJob unschedules a job; its history is kept.
func (s *Scheduler) RemoveJob(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("job %s not found", name)
	}

	s.cron.Remove(e.id)
	delete(s.jobs, name)
	s.log.Info().Str("job", name).Msg("Job removed from scheduler")
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.log.Info().Int("jobs", len(s.jobs)).Msg("Starting scheduler")
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.log.Info().Msg("Stopping scheduler")
	s.cancel()
	<-s.cron.Stop().Done()
	s.log.Info().Msg("Scheduler stopped")
}

// RunJob runs a job immediately in the background.
func (s *Scheduler) RunJob(name string) error {
	e, err := s.entry(name)
	if err != nil {
		return err
	}
	go func() { _ = s.runEntry(s.baseCtx, e) }()
	return nil
}

// RunJobSync runs a job immediately and returns its result.
func (s *Scheduler) RunJobSync(ctx context.Context, name string) (JobResult, error) {
	e, err := s.entry(name)
	if err != nil {
		return JobResult{}, err
	}
	return s.runEntry(ctx, e), nil
}

func (s *Scheduler) entry(name string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.jobs[name]
	if !exists {
		return nil, fmt.Errorf("job %s not found", name)
	}
	return e, nil
}

// runEntry executes a job with retry logic. Overlapping runs of the same job
// are skipped.
func (s *Scheduler) runEntry(ctx context.Context, e *entry) JobResult {
	name := e.job.Name()
	log := s.log.With().Str("job", name).Logger()

	if !e.mu.TryLock() {
		log.Warn().Msg("Job still running, skipping")
		return JobResult{JobName: name, StartTime: time.Now(), Error: "already running"}
	}
	defer e.mu.Unlock()

	start := time.Now()
	log.Info().Msg("Job started")

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		attempts++
		lastErr = s.attempt(ctx, e.job)
		if lastErr == nil {
			break
		}

		log.Warn().Err(lastErr).Int("attempt", attempts).Msg("Job execution failed")

		if attempt == s.maxRetries || ctx.Err() != nil {
			break
		}
		select {
		case <-time.After(s.retryDelay):
		case <-ctx.Done():
		}
	}

	end := time.Now()
	result := JobResult{
		JobName:   name,
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
		Attempts:  attempts,
		Success:   lastErr == nil,
	}
	if lastErr != nil {
		result.Error = lastErr.Error()
	}

	s.mu.Lock()
	if h, ok := s.history[name]; ok {
		h.AddResult(result)
	}
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.ObserveJob(name, result.Success)
	}

	if result.Success {
		log.Info().Dur("duration", result.Duration).Int("attempts", attempts).Msg("Job completed successfully")
	} else {
		log.Error().Err(lastErr).Dur("duration", result.Duration).Int("attempts", attempts).Msg("Job failed after all retries")
	}
	return result
}

func (s *Scheduler) attempt(ctx context.Context, job Job) (err error) {
	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.jobTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job.Run(ctx)
}

// GetJobHistory returns a copy of the latest results of a job.
func (s *Scheduler) GetJobHistory(name string, n int) ([]JobResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, exists := s.history[name]
	if !exists {
		return nil, fmt.Errorf("job %s not found", name)
	}
	return h.Latest(n), nil
}

// GetAllJobs returns registered job names, sorted.
func (s *Scheduler) GetAllJobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
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
	NextRun      *time.Time `json:"next_run,omitempty"`
}

// GetJobStats returns statistics for all registered jobs
func (s *Scheduler) GetJobStats() map[string]JobStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]JobStats, len(s.jobs))
	for name, e := range s.jobs {
		h := s.history[name]
		st := JobStats{
			JobName:      name,
			Schedule:     e.job.Schedule(),
			TotalRuns:    len(h.Results),
			FailureCount: h.Failures(),
			SuccessRate:  h.SuccessRate(),
		}
		st.SuccessCount = st.TotalRuns - st.FailureCount

		for i := len(h.Results) - 1; i >= 0; i-- {
			r := h.Results[i]
			if st.LastRun == nil {
				st.LastRun = &r.StartTime
			}
			if r.Success && st.LastSuccess == nil {
				st.LastSuccess = &r.StartTime
			}
			if !r.Success && st.LastFailure == nil {
				st.LastFailure = &r.StartTime
			}
		}

		if next := s.cron.Entry(e.id).Next; !next.IsZero() {
			st.NextRun = &next
		}
		stats[name] = st
	}
	return stats
}

// cronLogger routes robfig/cron logs through zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
