package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/freightcast/backend/internal/contracts"
)

// Route outcome statuses beyond the forecaster's own
const (
	OutcomeSkipped = "skipped"
	OutcomeError   = "error"
)

// HistoryProvider 학습 데이터 조회
type HistoryProvider interface {
	DistinctRoutes(ctx context.Context, limit int) ([]string, error)
	RouteRates(ctx context.Context, route string) ([]contracts.RateObservation, error)
}

// Recorder 학습 메트릭 기록
type Recorder interface {
	ObserveTraining(status string, elapsed time.Duration)
	AddForecastPoints(n int)
}

type noopRecorder struct{}

func (noopRecorder) ObserveTraining(string, time.Duration) {}
func (noopRecorder) AddForecastPoints(int)                 {}

// ServiceConfig 노선 학습 드라이버 설정
type ServiceConfig struct {
	Order           Order
	Horizon         int
	RouteLimit      int
	MinRouteHistory int
	ModelVersion    string
	Workers         int
	FitTimeout      time.Duration
}

// DefaultServiceConfig returns the production defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Order:           DefaultOrder(),
		Horizon:         7,
		RouteLimit:      5,
		MinRouteHistory: 30,
		ModelVersion:    "v1",
		Workers:         2,
		FitTimeout:      30 * time.Second,
	}
}

// ServiceOption Service 옵션
type ServiceOption func(*Service)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) { s.recorder = r }
}

// WithForecasterOptions passes options to every RateForecaster the service creates.
func WithForecasterOptions(opts ...Option) ServiceOption {
	return func(s *Service) { s.forecasterOpts = append(s.forecasterOpts, opts...) }
}

// Service 노선별 학습 → 예측 → 저장 드라이버
type Service struct {
	cfg            ServiceConfig
	history        HistoryProvider
	store          contracts.PredictionStore
	recorder       Recorder
	forecasterOpts []Option
	log            zerolog.Logger
}

// NewService creates the route forecasting driver.
func NewService(cfg ServiceConfig, history HistoryProvider, store contracts.PredictionStore, log zerolog.Logger, opts ...ServiceOption) *Service {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	s := &Service{
		cfg:      cfg,
		history:  history,
		store:    store,
		recorder: noopRecorder{},
		log:      log.With().Str("component", "forecast.service").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective configuration.
func (s *Service) Config() ServiceConfig { return s.cfg }

// RunAll trains and stores forecasts for up to RouteLimit routes. Per-route
// failures are recorded in the summary and never abort the run.
func (s *Service) RunAll(ctx context.Context) (*contracts.ForecastRunSummary, error) {
	start := time.Now()

	routes, err := s.history.DistinctRoutes(ctx, s.cfg.RouteLimit)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}

	s.log.Info().
		Int("routes", len(routes)).
		Str("order", s.cfg.Order.String()).
		Str("model_version", s.cfg.ModelVersion).
		Msg("starting route training")

	outcomes := make([]contracts.RouteOutcome, len(routes))
	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for i, route := range routes {
		g.Go(func() error {
			outcomes[i] = s.runRoute(ctx, route)
			return nil
		})
	}
	_ = g.Wait()

	summary := &contracts.ForecastRunSummary{
		RoutesConsidered: len(routes),
		ModelVersion:     s.cfg.ModelVersion,
		Routes:           outcomes,
	}
	for _, o := range outcomes {
		switch o.Status {
		case string(StatusTrained):
			summary.Trained++
			summary.PredictionsSaved += o.Predictions
		case OutcomeSkipped, string(StatusInsufficientData):
			summary.Skipped++
		default:
			summary.Failed++
		}
	}
	summary.Duration = time.Since(start)

	s.log.Info().
		Int("trained", summary.Trained).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Int("predictions", summary.PredictionsSaved).
		Dur("duration", summary.Duration).
		Msg("route training completed")

	return summary, nil
}

func (s *Service) runRoute(ctx context.Context, route string) contracts.RouteOutcome {
	out := contracts.RouteOutcome{Route: route}
	log := s.log.With().Str("route", route).Logger()

	rctx, cancel := context.WithTimeout(ctx, s.cfg.FitTimeout)
	defer cancel()

	obs, err := s.history.RouteRates(rctx, route)
	if err != nil {
		log.Error().Err(err).Msg("failed to load route history")
		out.Status = OutcomeError
		out.Error = err.Error()
		return out
	}
	out.Observations = len(obs)

	if len(obs) < s.cfg.MinRouteHistory {
		log.Info().
			Int("shipments", len(obs)).
			Int("required", s.cfg.MinRouteHistory).
			Msg("insufficient route history, skipping")
		out.Status = OutcomeSkipped
		return out
	}

	res := s.fitWithBudget(rctx, obs, s.cfg.Horizon)
	if res.err != nil {
		log.Error().Err(res.err).Msg("route training aborted")
		s.recorder.ObserveTraining(OutcomeError, res.elapsed)
		out.Status = OutcomeError
		out.Error = res.err.Error()
		return out
	}

	s.recorder.ObserveTraining(string(res.diag.Status), res.elapsed)
	out.Status = string(res.diag.Status)

	if res.diag.Status != StatusTrained {
		ev := log.Warn().
			Str("status", string(res.diag.Status)).
			Int("observations", res.diag.Observations)
		if res.diag.Err != nil {
			ev = ev.Err(res.diag.Err)
			out.Error = res.diag.Err.Error()
		}
		ev.Msg("model not trained, no predictions stored")
		return out
	}

	preds := contracts.TagPredictions(route, s.cfg.ModelVersion, res.points)
	n, err := s.store.SavePredictions(rctx, preds)
	if err != nil {
		log.Error().Err(err).Msg("failed to store predictions")
		out.Status = OutcomeError
		out.Error = err.Error()
		return out
	}
	out.Predictions = n
	s.recorder.AddForecastPoints(n)

	log.Info().
		Int("observations", res.diag.Observations).
		Int("series_length", res.diag.SeriesLength).
		Float64("aic", res.diag.AIC).
		Int("predictions", n).
		Dur("elapsed", res.elapsed).
		Msg("route model trained")

	return out
}

// PredictRoute trains on the route's history and returns horizon points
// without persisting them. An untrainable route yields the fallback shape.
func (s *Service) PredictRoute(ctx context.Context, route string, horizon int) ([]contracts.ForecastPoint, Diagnostic, error) {
	rctx, cancel := context.WithTimeout(ctx, s.cfg.FitTimeout)
	defer cancel()

	obs, err := s.history.RouteRates(rctx, route)
	if err != nil {
		return nil, Diagnostic{}, fmt.Errorf("load history for %s: %w", route, err)
	}

	res := s.fitWithBudget(rctx, obs, horizon)
	if res.err != nil {
		return nil, Diagnostic{}, fmt.Errorf("predict %s: %w", route, res.err)
	}
	s.recorder.ObserveTraining(string(res.diag.Status), res.elapsed)
	return res.points, res.diag, nil
}

type fitResult struct {
	points  []contracts.ForecastPoint
	diag    Diagnostic
	elapsed time.Duration
	err     error
}

// fitWithBudget runs train+forecast off the caller's goroutine so the
// context deadline bounds the wait. The forecaster itself is not cancelled.
func (s *Service) fitWithBudget(ctx context.Context, obs []contracts.RateObservation, horizon int) fitResult {
	done := make(chan fitResult, 1)
	start := time.Now()

	go func() {
		f, err := NewRateForecaster(s.cfg.Order, s.forecasterOpts...)
		if err != nil {
			done <- fitResult{err: err}
			return
		}
		f.Train(obs)
		done <- fitResult{
			points:  f.Forecast(horizon),
			diag:    f.Diagnostic(),
			elapsed: time.Since(start),
		}
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return fitResult{err: ctx.Err(), elapsed: time.Since(start)}
	}
}
