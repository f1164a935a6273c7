package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/wonny/freightcast/backend/internal/contracts"
	"github.com/wonny/freightcast/backend/internal/forecast"
	"github.com/wonny/freightcast/backend/pkg/redis"
)

// Prediction sources
const (
	SourceStored   = "stored"
	SourceModel    = "model"
	SourceFallback = "fallback"
)

// RoutePredictor 노선 on-demand 예측
type RoutePredictor interface {
	PredictRoute(ctx context.Context, route string, horizon int) ([]contracts.ForecastPoint, forecast.Diagnostic, error)
}

// ResponseCache 조회 결과 캐시
type ResponseCache interface {
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, fn func() (interface{}, error)) error
}

// HealthChecker 의존 서비스 상태 확인
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type noCache struct{}

func (noCache) GetOrSet(_ context.Context, _ string, dest interface{}, _ time.Duration, fn func() (interface{}, error)) error {
	v, err := fn()
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// FreightHandler handles the rate query API
// ⭐ SSOT: 운임 조회 API 핸들러는 이 구조체에서만
type FreightHandler struct {
	queries      contracts.ShipmentQueries
	predictions  contracts.PredictionStore
	predictor    RoutePredictor
	database     HealthChecker
	cache        ResponseCache
	cacheTTL     time.Duration
	modelVersion string
	now          func() time.Time
	log          zerolog.Logger
}

// FreightDeps FreightHandler 의존성
type FreightDeps struct {
	Queries      contracts.ShipmentQueries
	Predictions  contracts.PredictionStore
	Predictor    RoutePredictor
	Database     HealthChecker
	Cache        ResponseCache // nil: 캐시 없음
	CacheTTL     time.Duration
	ModelVersion string
	Now          func() time.Time
}

// NewFreightHandler creates a new freight handler
func NewFreightHandler(deps FreightDeps, log zerolog.Logger) *FreightHandler {
	h := &FreightHandler{
		queries:      deps.Queries,
		predictions:  deps.Predictions,
		predictor:    deps.Predictor,
		database:     deps.Database,
		cache:        deps.Cache,
		cacheTTL:     deps.CacheTTL,
		modelVersion: deps.ModelVersion,
		now:          deps.Now,
		log:          log.With().Str("component", "api.freight").Logger(),
	}
	if h.cache == nil {
		h.cache = noCache{}
	}
	if h.cacheTTL <= 0 {
		h.cacheTTL = redis.TTLMedium
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// Root returns service info
// GET /
func (h *FreightHandler) Root(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"service": "Freight Rate Prediction API",
		"version": "1.0.0",
		"status":  "operational",
	})
}

// Health pings the database
// GET /health
func (h *FreightHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.database.Ping(ctx); err != nil {
		h.log.Error().Err(err).Msg("health check failed")
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "unhealthy",
			"database": "disconnected",
			"error":    "Service unhealthy",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": h.now().UTC().Format(time.RFC3339),
		"database":  "connected",
	})
}

// PredictRequest GET /api/predict
type PredictRequest struct {
	Route    string  `query:"route" validate:"required"`
	WeightKg float64 `query:"weight_kg" validate:"required,gte=50,lte=10000"`
}

// PredictResponse 다음날 운임 예측
type PredictResponse struct {
	Route           string  `json:"route"`
	WeightKg        float64 `json:"weight_kg"`
	PredictedRate   float64 `json:"predicted_rate"`
	ConfidenceLower float64 `json:"confidence_lower"`
	ConfidenceUpper float64 `json:"confidence_upper"`
	PredictionDate  string  `json:"prediction_date"`
	TotalCost       float64 `json:"total_cost"`
	Source          string  `json:"source"`
	ModelVersion    string  `json:"model_version,omitempty"`
}

// Predict returns the next-day rate for a route
// GET /api/predict?route=LAX-NYC&weight_kg=1000
func (h *FreightHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if errs := bindQuery(r.URL.Query(), &req); errs != nil {
		respondInvalid(w, errs)
		return
	}

	point, source, version, err := h.nextDay(r.Context(), req.Route)
	if err != nil {
		h.log.Error().Err(err).Str("route", req.Route).Msg("failed to predict rate")
		respondError(w, http.StatusInternalServerError, "failed to predict rate")
		return
	}

	respondJSON(w, http.StatusOK, PredictResponse{
		Route:           req.Route,
		WeightKg:        req.WeightKg,
		PredictedRate:   point.PredictedRate,
		ConfidenceLower: point.ConfidenceLower,
		ConfidenceUpper: point.ConfidenceUpper,
		PredictionDate:  point.Date.Format("2006-01-02"),
		TotalCost:       point.PredictedRate * req.WeightKg,
		Source:          source,
		ModelVersion:    version,
	})
}

// BulkPredictRequest POST /api/bulk-predict
type BulkPredictRequest struct {
	Routes   []string `query:"routes" validate:"required,min=1,max=50,dive,required"`
	WeightKg float64  `query:"weight_kg" validate:"required,gte=50,lte=10000"`
}

// BulkPredictionItem 노선별 예측
type BulkPredictionItem struct {
	Route         string  `json:"route"`
	PredictedRate float64 `json:"predicted_rate"`
	TotalCost     float64 `json:"total_cost"`
	Source        string  `json:"source"`
}

// BulkPredictionError 노선별 실패
type BulkPredictionError struct {
	Route string `json:"route"`
	Error string `json:"error"`
}

// BulkPredictResponse 일괄 예측 결과
type BulkPredictResponse struct {
	WeightKg    float64               `json:"weight_kg"`
	Predictions []BulkPredictionItem  `json:"predictions"`
	Errors      []BulkPredictionError `json:"errors,omitempty"`
	Timestamp   time.Time             `json:"timestamp"`
}

// BulkPredict predicts several routes at one weight; duplicates are ignored
// POST /api/bulk-predict?routes=A&routes=B&weight_kg=1000
func (h *FreightHandler) BulkPredict(w http.ResponseWriter, r *http.Request) {
	var req BulkPredictRequest
	if errs := bindQuery(r.URL.Query(), &req); errs != nil {
		respondInvalid(w, errs)
		return
	}

	resp := BulkPredictResponse{
		WeightKg:    req.WeightKg,
		Predictions: []BulkPredictionItem{},
		Timestamp:   h.now().UTC(),
	}

	seen := make(map[string]struct{}, len(req.Routes))
	for _, route := range req.Routes {
		if _, dup := seen[route]; dup {
			continue
		}
		seen[route] = struct{}{}

		point, source, _, err := h.nextDay(r.Context(), route)
		if err != nil {
			h.log.Warn().Err(err).Str("route", route).Msg("bulk prediction failed for route")
			resp.Errors = append(resp.Errors, BulkPredictionError{Route: route, Error: err.Error()})
			continue
		}
		resp.Predictions = append(resp.Predictions, BulkPredictionItem{
			Route:         route,
			PredictedRate: point.PredictedRate,
			TotalCost:     point.PredictedRate * req.WeightKg,
			Source:        source,
		})
	}

	respondJSON(w, http.StatusOK, resp)
}

// nextDay prefers a stored prediction for tomorrow, then an on-demand fit.
func (h *FreightHandler) nextDay(ctx context.Context, route string) (contracts.ForecastPoint, string, string, error) {
	tomorrow := truncateDay(h.now()).AddDate(0, 0, 1)

	stored, err := h.predictions.LatestPredictions(ctx, route, tomorrow)
	if err != nil {
		h.log.Warn().Err(err).Str("route", route).Msg("stored prediction lookup failed")
	} else if len(stored) > 0 && stored[0].Date.Equal(tomorrow) {
		return stored[0].ForecastPoint, SourceStored, stored[0].ModelVersion, nil
	}

	points, diag, err := h.predictor.PredictRoute(ctx, route, 1)
	if err != nil {
		return contracts.ForecastPoint{}, "", "", err
	}
	if len(points) == 0 {
		return contracts.ForecastPoint{}, "", "", errors.New("predictor returned no points")
	}
	if diag.Status != forecast.StatusTrained {
		return points[0], SourceFallback, "", nil
	}
	return points[0], SourceModel, h.modelVersion, nil
}

// HistoricalRequest GET /api/historical/{route}
type HistoricalRequest struct {
	Days int `query:"days" default:"30" validate:"gte=1,lte=365"`
}

// HistoricalResponse 노선 일별 이력 + 요약
type HistoricalResponse struct {
	Route      string                          `json:"route"`
	PeriodDays int                             `json:"period_days"`
	Records    []contracts.HistoricalRatePoint `json:"records"`
	Summary    contracts.HistoricalSummary     `json:"summary"`
}

// Historical returns daily aggregates for a route
// GET /api/historical/{route}?days=30
func (h *FreightHandler) Historical(w http.ResponseWriter, r *http.Request) {
	route := mux.Vars(r)["route"]
	var req HistoricalRequest
	if errs := bindQuery(r.URL.Query(), &req); errs != nil {
		respondInvalid(w, errs)
		return
	}

	var resp HistoricalResponse
	err := h.cache.GetOrSet(r.Context(), redis.HistoricalKey(route, req.Days), &resp, h.cacheTTL, func() (interface{}, error) {
		points, err := h.queries.HistoricalRates(r.Context(), route, req.Days)
		if err != nil {
			return nil, err
		}
		if points == nil {
			points = []contracts.HistoricalRatePoint{}
		}
		return HistoricalResponse{
			Route:      route,
			PeriodDays: req.Days,
			Records:    points,
			Summary:    contracts.Summarize(points),
		}, nil
	})
	if err != nil {
		h.log.Error().Err(err).Str("route", route).Msg("failed to get historical rates")
		respondError(w, http.StatusInternalServerError, "failed to get historical rates")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Carrier returns carrier performance
// GET /api/carriers/{carrier}
func (h *FreightHandler) Carrier(w http.ResponseWriter, r *http.Request) {
	carrier := mux.Vars(r)["carrier"]

	var stats contracts.CarrierStats
	err := h.cache.GetOrSet(r.Context(), redis.CarrierKey(carrier), &stats, h.cacheTTL, func() (interface{}, error) {
		return h.queries.CarrierStats(r.Context(), carrier)
	})
	if errors.Is(err, contracts.ErrNotFound) {
		respondError(w, http.StatusNotFound, "carrier not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("carrier", carrier).Msg("failed to get carrier stats")
		respondError(w, http.StatusInternalServerError, "failed to get carrier stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// RoutesResponse 노선 통계 목록
type RoutesResponse struct {
	TotalRoutes int                     `json:"total_routes"`
	Routes      []contracts.RouteMetric `json:"routes"`
}

// Routes lists route metrics
// GET /api/routes
func (h *FreightHandler) Routes(w http.ResponseWriter, r *http.Request) {
	var resp RoutesResponse
	err := h.cache.GetOrSet(r.Context(), redis.RoutesKey(), &resp, h.cacheTTL, func() (interface{}, error) {
		metrics, err := h.queries.RouteMetrics(r.Context())
		if err != nil {
			return nil, err
		}
		if metrics == nil {
			metrics = []contracts.RouteMetric{}
		}
		return RoutesResponse{TotalRoutes: len(metrics), Routes: metrics}, nil
	})
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list routes")
		respondError(w, http.StatusInternalServerError, "failed to list routes")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// ForecastsRequest GET /api/forecasts/{route}
type ForecastsRequest struct {
	Days int `query:"days" default:"7" validate:"gte=1,lte=90"`
}

// ForecastsResponse 저장된 향후 예측
type ForecastsResponse struct {
	Route       string                     `json:"route"`
	Predictions []contracts.RatePrediction `json:"predictions"`
}

// Forecasts returns stored predictions from tomorrow on
// GET /api/forecasts/{route}?days=7
func (h *FreightHandler) Forecasts(w http.ResponseWriter, r *http.Request) {
	route := mux.Vars(r)["route"]
	var req ForecastsRequest
	if errs := bindQuery(r.URL.Query(), &req); errs != nil {
		respondInvalid(w, errs)
		return
	}

	from := truncateDay(h.now()).AddDate(0, 0, 1)
	preds, err := h.predictions.LatestPredictions(r.Context(), route, from)
	if err != nil {
		h.log.Error().Err(err).Str("route", route).Msg("failed to get stored predictions")
		respondError(w, http.StatusInternalServerError, "failed to get predictions")
		return
	}

	end := from.AddDate(0, 0, req.Days)
	preds = slices.DeleteFunc(preds, func(p contracts.RatePrediction) bool {
		return !p.Date.Before(end)
	})
	if preds == nil {
		preds = []contracts.RatePrediction{}
	}

	respondJSON(w, http.StatusOK, ForecastsResponse{Route: route, Predictions: preds})
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
