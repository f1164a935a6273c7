package forecast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/freightcast/backend/internal/contracts"
)

type fakeHistory struct {
	routes  []string
	rates   map[string][]contracts.RateObservation
	listErr error
	rateErr map[string]error
	delay   time.Duration
}

func (h *fakeHistory) DistinctRoutes(ctx context.Context, limit int) ([]string, error) {
	if h.listErr != nil {
		return nil, h.listErr
	}
	if limit > 0 && len(h.routes) > limit {
		return h.routes[:limit], nil
	}
	return h.routes, nil
}

func (h *fakeHistory) RouteRates(ctx context.Context, route string) ([]contracts.RateObservation, error) {
	if h.delay > 0 {
		select {
		case <-time.After(h.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := h.rateErr[route]; err != nil {
		return nil, err
	}
	return h.rates[route], nil
}

type memoryPredictionStore struct {
	mu    sync.Mutex
	saved []contracts.RatePrediction
	err   error
}

func (s *memoryPredictionStore) SavePredictions(ctx context.Context, preds []contracts.RatePrediction) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, preds...)
	return len(preds), nil
}

func (s *memoryPredictionStore) LatestPredictions(ctx context.Context, route string, from time.Time) ([]contracts.RatePrediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []contracts.RatePrediction
	for _, p := range s.saved {
		if p.Route == route && !p.Date.Before(from) {
			out = append(out, p)
		}
	}
	return out, nil
}

type countingRecorder struct {
	mu       sync.Mutex
	statuses map[string]int
	points   int
}

func (r *countingRecorder) ObserveTraining(status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.statuses == nil {
		r.statuses = map[string]int{}
	}
	r.statuses[status]++
}

func (r *countingRecorder) AddForecastPoints(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points += n
}

func trendObs(n int, base float64) []contracts.RateObservation {
	values := make([]float64, n)
	for i := range values {
		values[i] = base + 0.002*float64(i)
	}
	return dailyObs(values)
}

func TestService_RunAll(t *testing.T) {
	history := &fakeHistory{
		routes: []string{"SEA-LAX", "NYC-CHI", "MIA-ATL", "DEN-PHX"},
		rates: map[string][]contracts.RateObservation{
			"SEA-LAX": trendObs(60, 2.0),
			"NYC-CHI": trendObs(10, 2.0),
			// 30건 이상이지만 관측일은 1일
			"MIA-ATL": func() []contracts.RateObservation {
				obs := make([]contracts.RateObservation, 35)
				for i := range obs {
					obs[i] = contracts.RateObservation{Date: day(0), Rate: 2.2}
				}
				return obs
			}(),
		},
		rateErr: map[string]error{"DEN-PHX": errors.New("connection reset")},
	}
	store := &memoryPredictionStore{}
	recorder := &countingRecorder{}

	cfg := DefaultServiceConfig()
	svc := NewService(cfg, history, store, zerolog.Nop(), WithRecorder(recorder))

	summary, err := svc.RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, summary.RoutesConsidered)
	assert.Equal(t, 1, summary.Trained)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 7, summary.PredictionsSaved)
	assert.Equal(t, "v1", summary.ModelVersion)

	byRoute := map[string]contracts.RouteOutcome{}
	for _, o := range summary.Routes {
		byRoute[o.Route] = o
	}
	assert.Equal(t, string(StatusTrained), byRoute["SEA-LAX"].Status)
	assert.Equal(t, OutcomeSkipped, byRoute["NYC-CHI"].Status)
	assert.Equal(t, string(StatusInsufficientData), byRoute["MIA-ATL"].Status)
	assert.Equal(t, OutcomeError, byRoute["DEN-PHX"].Status)

	require.Len(t, store.saved, 7)
	for i, p := range store.saved {
		assert.Equal(t, "SEA-LAX", p.Route)
		assert.Equal(t, "v1", p.ModelVersion)
		assert.Equal(t, day(60+i), p.Date)
	}
	assert.Equal(t, 7, recorder.points)
	assert.Equal(t, 1, recorder.statuses[string(StatusTrained)])
}

func TestService_RunAll_RespectsRouteLimit(t *testing.T) {
	history := &fakeHistory{
		routes: []string{"A-B", "C-D", "E-F"},
		rates:  map[string][]contracts.RateObservation{},
	}
	cfg := DefaultServiceConfig()
	cfg.RouteLimit = 2

	summary, err := NewService(cfg, history, &memoryPredictionStore{}, zerolog.Nop()).RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.RoutesConsidered)
}

func TestService_RunAll_ListError(t *testing.T) {
	history := &fakeHistory{listErr: errors.New("db down")}
	_, err := NewService(DefaultServiceConfig(), history, &memoryPredictionStore{}, zerolog.Nop()).RunAll(context.Background())
	assert.Error(t, err)
}

func TestService_RunAll_StoreFailureDoesNotAbort(t *testing.T) {
	history := &fakeHistory{
		routes: []string{"SEA-LAX", "NYC-CHI"},
		rates: map[string][]contracts.RateObservation{
			"SEA-LAX": trendObs(45, 2.0),
			"NYC-CHI": trendObs(45, 3.0),
		},
	}
	store := &memoryPredictionStore{err: errors.New("insert failed")}

	summary, err := NewService(DefaultServiceConfig(), history, store, zerolog.Nop()).RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 0, summary.PredictionsSaved)
}

func TestService_FitTimeout(t *testing.T) {
	history := &fakeHistory{
		routes: []string{"SEA-LAX"},
		rates:  map[string][]contracts.RateObservation{"SEA-LAX": trendObs(45, 2.0)},
		delay:  200 * time.Millisecond,
	}
	cfg := DefaultServiceConfig()
	cfg.FitTimeout = 10 * time.Millisecond

	summary, err := NewService(cfg, history, &memoryPredictionStore{}, zerolog.Nop()).RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Contains(t, summary.Routes[0].Error, context.DeadlineExceeded.Error())
}

func TestService_PredictRoute(t *testing.T) {
	history := &fakeHistory{
		rates: map[string][]contracts.RateObservation{
			"SEA-LAX": trendObs(60, 2.0),
		},
	}
	store := &memoryPredictionStore{}
	svc := NewService(DefaultServiceConfig(), history, store, zerolog.Nop(),
		WithForecasterOptions(WithClock(fixedClock)))

	points, diag, err := svc.PredictRoute(context.Background(), "SEA-LAX", 3)
	require.NoError(t, err)
	assert.Equal(t, StatusTrained, diag.Status)
	assertInvariants(t, points, day(60), 3)
	assert.Empty(t, store.saved, "on-demand prediction must not persist")

	points, diag, err = svc.PredictRoute(context.Background(), "UNKNOWN", 2)
	require.NoError(t, err)
	assert.Equal(t, StatusInsufficientData, diag.Status)
	assert.Equal(t, FallbackForecast(fixedNow, 2), points)
}
