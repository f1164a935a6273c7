package etl

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wonny/freightcast/backend/internal/contracts"
)

// Step names
const (
	StepSchema     = "schema"
	StepExtract    = "extract"
	StepValidate   = "validate"
	StepClean      = "clean"
	StepFeatures   = "features"
	StepLoad       = "load"
	StepMetrics    = "refresh_metrics"
	StepInvalidate = "invalidate_cache"
	StepTrain      = "train"
	StepUpload     = "upload"
)

const processedFile = "freight_data.csv"

// StepError 치명적 단계 실패
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("etl step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// SchemaEnsurer creates tables before loading.
type SchemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}

// RouteTrainer 노선별 학습 실행
type RouteTrainer interface {
	RunAll(ctx context.Context) (*contracts.ForecastRunSummary, error)
}

// CacheInvalidator drops cached API responses after a load.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) (int, error)
}

// StepRecorder 단계별 메트릭
type StepRecorder interface {
	ObserveETLStep(step string, elapsed time.Duration)
	AddRows(stage string, n int)
}

type noopSteps struct{}

func (noopSteps) ObserveETLStep(string, time.Duration) {}
func (noopSteps) AddRows(string, int)                  {}

// PipelineConfig S3 키 설정
type PipelineConfig struct {
	RawKey          string
	ProcessedPrefix string
}

// PipelineOption Pipeline 옵션
type PipelineOption func(*Pipeline)

// WithCache invalidates the API cache after each successful load.
func WithCache(c CacheInvalidator) PipelineOption {
	return func(p *Pipeline) { p.cache = c }
}

// WithStepRecorder attaches step metrics.
func WithStepRecorder(r StepRecorder) PipelineOption {
	return func(p *Pipeline) { p.steps = r }
}

// WithPipelineClock sets the clock used for the processed key and timestamp.
func WithPipelineClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

// Pipeline 추출 → 검증 → 정제 → 적재 → 학습 → 업로드
type Pipeline struct {
	cfg       PipelineConfig
	schema    SchemaEnsurer
	objects   contracts.ObjectStore
	shipments contracts.ShipmentStore
	trainer   RouteTrainer
	validator *Validator
	cache     CacheInvalidator
	steps     StepRecorder
	now       func() time.Time
	log       zerolog.Logger
}

// NewPipeline wires the pipeline stages.
func NewPipeline(
	cfg PipelineConfig,
	schema SchemaEnsurer,
	objects contracts.ObjectStore,
	shipments contracts.ShipmentStore,
	trainer RouteTrainer,
	log zerolog.Logger,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		cfg:       cfg,
		schema:    schema,
		objects:   objects,
		shipments: shipments,
		trainer:   trainer,
		validator: NewValidator(),
		steps:     noopSteps{},
		now:       time.Now,
		log:       log.With().Str("component", "etl.pipeline").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessedKey returns the S3 key for the processed CSV of the given day.
func (p *Pipeline) ProcessedKey(day time.Time) string {
	return fmt.Sprintf("%s/%s/%s", p.cfg.ProcessedPrefix, day.UTC().Format("2006-01-02"), processedFile)
}

// Run executes one full pipeline pass. Schema, extract, load and train
// failures abort the run with a *StepError. Validation issues, metric
// refresh, cache invalidation and upload failures are logged and skipped.
func (p *Pipeline) Run(ctx context.Context) (*contracts.PipelineResult, error) {
	runID := uuid.NewString()
	log := p.log.With().Str("run_id", runID).Logger()
	started := p.now()

	log.Info().Str("raw_key", p.cfg.RawKey).Msg("ETL pipeline started")

	// 1. 스키마
	if err := p.timed(StepSchema, func() error { return p.schema.EnsureSchema(ctx) }); err != nil {
		return nil, p.fail(log, StepSchema, err)
	}

	// 2. 추출
	var raw []byte
	err := p.timed(StepExtract, func() error {
		var err error
		raw, err = p.objects.Get(ctx, p.cfg.RawKey)
		return err
	})
	if err != nil {
		return nil, p.fail(log, StepExtract, err)
	}

	records, header, err := ReadCSV(bytes.NewReader(raw))
	if err != nil {
		return nil, p.fail(log, StepExtract, err)
	}
	p.steps.AddRows(StepExtract, len(records))
	log.Info().Int("rows", len(records)).Int("bytes", len(raw)).Msg("raw data extracted")

	// 3. 검증 (경고만)
	var report Report
	_ = p.timed(StepValidate, func() error {
		report = p.validator.Validate(records, header)
		return nil
	})
	for _, issue := range report.Issues {
		log.Warn().Str("kind", issue.Kind).Str("field", issue.Field).Int("count", issue.Count).Msg(issue.Message)
	}

	// 4. 정제 + 5. 피처
	var shipments []contracts.Shipment
	var stats CleanStats
	_ = p.timed(StepClean, func() error {
		shipments, stats = Clean(records)
		return nil
	})
	p.steps.AddRows(StepClean, len(shipments))
	log.Info().
		Int("input", stats.Input).
		Int("output", stats.Output).
		Int("dropped_invalid_date", stats.DroppedInvalidDate).
		Int("dropped_missing_key", stats.DroppedMissingKey).
		Int("dropped_duplicate", stats.DroppedDuplicate).
		Int("clipped_rate", stats.ClippedRate).
		Int("clipped_weight", stats.ClippedWeight).
		Msg("data cleaned")

	_ = p.timed(StepFeatures, func() error {
		AddFeatures(shipments)
		return nil
	})

	// 6. 적재
	var loaded int
	err = p.timed(StepLoad, func() error {
		var err error
		loaded, err = p.shipments.InsertShipments(ctx, shipments)
		return err
	})
	if err != nil {
		return nil, p.fail(log, StepLoad, err)
	}
	p.steps.AddRows(StepLoad, loaded)
	log.Info().Int("loaded", loaded).Int("duplicates_skipped", len(shipments)-loaded).Msg("shipments loaded")

	// 7. 집계 갱신
	if err := p.timed(StepMetrics, func() error { return p.shipments.RefreshMetrics(ctx) }); err != nil {
		log.Warn().Err(err).Msg("failed to refresh route/carrier metrics")
	}

	// 8. 캐시 무효화
	if p.cache != nil {
		var dropped int
		err := p.timed(StepInvalidate, func() error {
			var err error
			dropped, err = p.cache.Invalidate(ctx)
			return err
		})
		if err != nil {
			log.Warn().Err(err).Msg("failed to invalidate api cache")
		} else {
			log.Debug().Int("keys", dropped).Msg("api cache invalidated")
		}
	}

	// 9. 학습
	var summary *contracts.ForecastRunSummary
	err = p.timed(StepTrain, func() error {
		var err error
		summary, err = p.trainer.RunAll(ctx)
		return err
	})
	if err != nil {
		return nil, p.fail(log, StepTrain, err)
	}

	// 10. 가공 CSV 업로드
	key := p.ProcessedKey(started)
	err = p.timed(StepUpload, func() error {
		var buf bytes.Buffer
		if err := WriteCSV(&buf, shipments); err != nil {
			return err
		}
		return p.objects.Put(ctx, key, buf.Bytes(), "text/csv")
	})
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to upload processed data")
		key = ""
	}

	result := &contracts.PipelineResult{
		RunID:            runID,
		Message:          "ETL pipeline completed successfully",
		RecordsProcessed: len(shipments),
		ShipmentsLoaded:  loaded,
		ModelsTrained:    summary.Trained,
		ValidationIssues: report.Messages(),
		ProcessedKey:     key,
		Forecast:         *summary,
		Timestamp:        p.now(),
	}

	log.Info().
		Int("records", result.RecordsProcessed).
		Int("loaded", result.ShipmentsLoaded).
		Int("models_trained", result.ModelsTrained).
		Dur("duration", result.Timestamp.Sub(started)).
		Msg("ETL pipeline completed")

	return result, nil
}

func (p *Pipeline) timed(step string, fn func() error) error {
	start := time.Now()
	err := fn()
	p.steps.ObserveETLStep(step, time.Since(start))
	return err
}

func (p *Pipeline) fail(log zerolog.Logger, step string, err error) error {
	log.Error().Err(err).Str("step", step).Msg("ETL pipeline failed")
	return &StepError{Step: step, Err: err}
}
