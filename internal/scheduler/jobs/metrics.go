package jobs

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// MetricsRefresher 노선/운송사 집계 갱신
type MetricsRefresher interface {
	RefreshMetrics(ctx context.Context) error
}

// CacheInvalidator drops cached API responses
type CacheInvalidator interface {
	Invalidate(ctx context.Context) (int, error)
}

// MetricsJob recomputes route and carrier aggregates
type MetricsJob struct {
	store    MetricsRefresher
	cache    CacheInvalidator
	schedule string
	log      zerolog.Logger
}

// NewMetricsJob creates the metrics_refresh job. cache may be nil.
func NewMetricsJob(store MetricsRefresher, cache CacheInvalidator, schedule string, log zerolog.Logger) *MetricsJob {
	return &MetricsJob{
		store:    store,
		cache:    cache,
		schedule: schedule,
		log:      log.With().Str("component", "jobs.metrics").Logger(),
	}
}

// Name returns the job name
func (j *MetricsJob) Name() string { return "metrics_refresh" }

// Schedule returns the cron schedule
func (j *MetricsJob) Schedule() string { return j.schedule }

// Run refreshes aggregates, then invalidates the cache
func (j *MetricsJob) Run(ctx context.Context) error {
	if err := j.store.RefreshMetrics(ctx); err != nil {
		return fmt.Errorf("refresh metrics: %w", err)
	}

	if j.cache != nil {
		n, err := j.cache.Invalidate(ctx)
		if err != nil {
			// 집계는 갱신됨, 캐시는 TTL 로 만료
			j.log.Warn().Err(err).Msg("cache invalidation failed")
			return nil
		}
		j.log.Debug().Int("keys", n).Msg("cache invalidated")
	}

	j.log.Info().Msg("route and carrier metrics refreshed")
	return nil
}
