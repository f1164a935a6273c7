package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/wonny/freightcast/backend/internal/contracts"
	"github.com/wonny/freightcast/backend/internal/forecast/arima"
)

const (
	// MinObservations 학습에 필요한 최소 관측일 수
	MinObservations = 20

	MinRate = 0.5
	MaxRate = 5.0

	// 모델이 없을 때 사용하는 고정 예측값
	FallbackRate  = 2.5
	FallbackLower = 2.2
	FallbackUpper = 2.8

	// ConfidenceAlpha 85% 신뢰구간
	ConfidenceAlpha = 0.15
)

// Status 마지막 학습 시도 결과
type Status string

const (
	StatusUntrained        Status = "untrained"
	StatusTrained          Status = "trained"
	StatusInsufficientData Status = "insufficient_data"
	StatusFitFailed        Status = "fit_failed"
	StatusAlreadyTrained   Status = "already_trained"
)

// Diagnostic explains the outcome of the last Train call.
type Diagnostic struct {
	Status       Status
	Observations int // distinct dates
	SeriesLength int // days after gap filling
	AIC          float64
	Err          error
}

// Order ARIMA (p, d, q)
type Order struct {
	P int `json:"p" yaml:"p"`
	D int `json:"d" yaml:"d"`
	Q int `json:"q" yaml:"q"`
}

// DefaultOrder returns ARIMA(1,1,1).
func DefaultOrder() Order {
	return Order{P: 1, D: 1, Q: 1}
}

// Validate rejects negative components.
func (o Order) Validate() error {
	if o.P < 0 || o.D < 0 || o.Q < 0 {
		return fmt.Errorf("invalid ARIMA order %s: components must be non-negative", o)
	}
	return nil
}

func (o Order) String() string {
	return fmt.Sprintf("(%d,%d,%d)", o.P, o.D, o.Q)
}

// FittedModel 학습된 모델 (불변)
type FittedModel interface {
	Forecast(steps int, alpha float64) (mean, lower, upper []float64, err error)
}

// Fitter 시계열 → 모델
type Fitter interface {
	Fit(series []float64, order Order) (FittedModel, error)
}

// ARIMAFitter fits models with the arima package.
type ARIMAFitter struct{}

// Fit implements Fitter.
func (ARIMAFitter) Fit(series []float64, order Order) (FittedModel, error) {
	m, err := arima.Fit(series, arima.Order{P: order.P, D: order.D, Q: order.Q})
	if err != nil {
		return nil, err
	}
	return arimaModel{m: m}, nil
}

type arimaModel struct {
	m *arima.Model
}

func (a arimaModel) Forecast(steps int, alpha float64) ([]float64, []float64, []float64, error) {
	fc, err := a.m.Forecast(steps, alpha)
	if err != nil {
		return nil, nil, nil, err
	}
	return fc.Mean, fc.Lower, fc.Upper, nil
}

func (a arimaModel) AIC() float64 { return a.m.AIC() }

// Option RateForecaster 옵션
type Option func(*RateForecaster)

// WithFitter replaces the ARIMA fitter.
func WithFitter(f Fitter) Option {
	return func(rf *RateForecaster) { rf.fitter = f }
}

// WithClock sets the clock used to date fallback forecasts.
func WithClock(now func() time.Time) Option {
	return func(rf *RateForecaster) { rf.now = now }
}

// RateForecaster 노선 1개에 대한 ARIMA 운임 예측기
// 상태: Untrained → Trained (재학습 불가), 동시 사용 불가
type RateForecaster struct {
	order  Order
	fitter Fitter
	now    func() time.Time

	model  FittedModel
	anchor time.Time
	diag   Diagnostic
}

// NewRateForecaster creates an untrained forecaster for the given order.
func NewRateForecaster(order Order, opts ...Option) (*RateForecaster, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}

	rf := &RateForecaster{
		order:  order,
		fitter: ARIMAFitter{},
		now:    time.Now,
		diag:   Diagnostic{Status: StatusUntrained},
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf, nil
}

// Order returns the configured order.
func (f *RateForecaster) Order() Order { return f.order }

// Trained reports whether a model is held.
func (f *RateForecaster) Trained() bool { return f.model != nil }

// Anchor returns the last date of the training series (zero if untrained).
func (f *RateForecaster) Anchor() time.Time { return f.anchor }

// Diagnostic returns the outcome of the last Train call.
func (f *RateForecaster) Diagnostic() Diagnostic { return f.diag }

// Train fits the model. It returns false when there are fewer than
// MinObservations distinct dates, when fitting fails, or when the instance
// is already trained. It never panics.
func (f *RateForecaster) Train(obs []contracts.RateObservation) bool {
	if f.model != nil {
		f.diag.Status = StatusAlreadyTrained
		f.diag.Err = nil
		return false
	}

	distinct := DistinctDates(obs)
	f.diag = Diagnostic{Status: StatusUntrained, Observations: distinct}
	if distinct < MinObservations {
		f.diag.Status = StatusInsufficientData
		return false
	}

	series := PrepareSeries(obs)
	f.diag.SeriesLength = series.Len()

	model, err := f.fit(series.Values)
	if err != nil {
		f.diag.Status = StatusFitFailed
		f.diag.Err = err
		return false
	}

	f.model = model
	f.anchor = series.End()
	f.diag.Status = StatusTrained
	if a, ok := model.(interface{ AIC() float64 }); ok {
		f.diag.AIC = a.AIC()
	}
	return true
}

func (f *RateForecaster) fit(values []float64) (model FittedModel, err error) {
	defer func() {
		if r := recover(); r != nil {
			model = nil
			err = fmt.Errorf("fit panicked: %v", r)
		}
	}()

	model, err = f.fitter.Fit(values, f.order)
	if err == nil && model == nil {
		err = errors.New("fitter returned nil model")
	}
	return model, err
}

// Forecast returns exactly horizon daily points in ascending date order,
// every value clamped to [MinRate, MaxRate]. Without a model the fixed
// fallback is dated from tomorrow. horizon ≤ 0 yields an empty slice.
func (f *RateForecaster) Forecast(horizon int) []contracts.ForecastPoint {
	if horizon <= 0 {
		return []contracts.ForecastPoint{}
	}
	if f.model == nil {
		return fallbackPoints(truncateDay(f.now()), horizon)
	}

	mean, lower, upper, err := f.predict(horizon)
	if err != nil || len(mean) < horizon || len(lower) < horizon || len(upper) < horizon {
		return fallbackPoints(f.anchor, horizon)
	}

	points := make([]contracts.ForecastPoint, horizon)
	for i := 0; i < horizon; i++ {
		m, lo, hi := mean[i], lower[i], upper[i]
		if !finite(m) || !finite(lo) || !finite(hi) {
			m, lo, hi = FallbackRate, FallbackLower, FallbackUpper
		}
		lo = math.Min(lo, m)
		hi = math.Max(hi, m)

		points[i] = contracts.ForecastPoint{
			Date:            f.anchor.AddDate(0, 0, i+1),
			PredictedRate:   clampRate(m),
			ConfidenceLower: clampRate(lo),
			ConfidenceUpper: clampRate(hi),
		}
	}
	return points
}

func (f *RateForecaster) predict(horizon int) (mean, lower, upper []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("forecast panicked: %v", r)
		}
	}()
	return f.model.Forecast(horizon, ConfidenceAlpha)
}

// FallbackForecast returns the fixed forecast dated from the day after base.
func FallbackForecast(base time.Time, horizon int) []contracts.ForecastPoint {
	if horizon <= 0 {
		return []contracts.ForecastPoint{}
	}
	return fallbackPoints(truncateDay(base), horizon)
}

func fallbackPoints(base time.Time, horizon int) []contracts.ForecastPoint {
	points := make([]contracts.ForecastPoint, horizon)
	for i := range points {
		points[i] = contracts.ForecastPoint{
			Date:            base.AddDate(0, 0, i+1),
			PredictedRate:   FallbackRate,
			ConfidenceLower: FallbackLower,
			ConfidenceUpper: FallbackUpper,
		}
	}
	return points
}

func clampRate(v float64) float64 {
	return math.Max(MinRate, math.Min(MaxRate, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
