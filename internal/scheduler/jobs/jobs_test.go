package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/wonny/freightcast/backend/internal/contracts"
)

type fakePipeline struct{ err error }

func (f fakePipeline) Run(context.Context) (*contracts.PipelineResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &contracts.PipelineResult{RunID: "r1", Message: "ETL pipeline completed successfully", ModelsTrained: 2}, nil
}

type fakeRefresher struct{ err error }

func (f fakeRefresher) RefreshMetrics(context.Context) error { return f.err }

type fakeCache struct {
	err   error
	calls int
}

func (f *fakeCache) Invalidate(context.Context) (int, error) {
	f.calls++
	return 1, f.err
}

func TestETLJob(t *testing.T) {
	job := NewETLJob(fakePipeline{}, "0 0 6 * * *", zerolog.Nop())
	assert.Equal(t, "etl_pipeline", job.Name())
	assert.Equal(t, "0 0 6 * * *", job.Schedule())
	assert.NoError(t, job.Run(context.Background()))

	boom := errors.New("extract failed")
	err := NewETLJob(fakePipeline{err: boom}, "@daily", zerolog.Nop()).Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestMetricsJob(t *testing.T) {
	cache := &fakeCache{}
	job := NewMetricsJob(fakeRefresher{}, cache, "0 0 * * * *", zerolog.Nop())
	assert.Equal(t, "metrics_refresh", job.Name())
	assert.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, cache.calls)

	// 캐시 실패는 작업 실패가 아님
	cache.err = errors.New("redis down")
	assert.NoError(t, job.Run(context.Background()))

	boom := errors.New("db down")
	assert.ErrorIs(t, NewMetricsJob(fakeRefresher{err: boom}, nil, "@hourly", zerolog.Nop()).Run(context.Background()), boom)
}
