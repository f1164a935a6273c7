package jobs

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wonny/freightcast/backend/internal/contracts"
)

// PipelineRunner ETL 파이프라인 1회 실행
type PipelineRunner interface {
	Run(ctx context.Context) (*contracts.PipelineResult, error)
}

// ETLJob runs the daily extract → load → train pipeline
type ETLJob struct {
	pipeline PipelineRunner
	schedule string
	log      zerolog.Logger
}

// NewETLJob creates the etl_pipeline job
func NewETLJob(pipeline PipelineRunner, schedule string, log zerolog.Logger) *ETLJob {
	return &ETLJob{
		pipeline: pipeline,
		schedule: schedule,
		log:      log.With().Str("component", "jobs.etl").Logger(),
	}
}

// Name returns the job name
func (j *ETLJob) Name() string { return "etl_pipeline" }

// Schedule returns the cron schedule
func (j *ETLJob) Schedule() string { return j.schedule }

// Run executes the pipeline
func (j *ETLJob) Run(ctx context.Context) error {
	result, err := j.pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("etl pipeline: %w", err)
	}

	j.log.Info().
		Str("run_id", result.RunID).
		Int("records", result.RecordsProcessed).
		Int("loaded", result.ShipmentsLoaded).
		Int("models_trained", result.ModelsTrained).
		Int("routes_failed", result.Forecast.Failed).
		Msg(result.Message)
	return nil
}
