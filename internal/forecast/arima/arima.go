// Package arima fits ARIMA(p,d,q) models by conditional sum of squares and
// produces mean forecasts with normal prediction intervals.
package arima

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrInvalidOrder     = errors.New("arima: invalid order")
	ErrInsufficientData = errors.New("arima: insufficient data for order")
	ErrNonFinite        = errors.New("arima: series contains non-finite values")
	ErrNotConverged     = errors.New("arima: optimizer did not converge")
	ErrNonStationary    = errors.New("arima: AR polynomial is not stationary")
	ErrNonInvertible    = errors.New("arima: MA polynomial is not invertible")
	ErrInvalidHorizon   = errors.New("arima: steps must be at least 1")
	ErrInvalidAlpha     = errors.New("arima: alpha must be in (0, 1)")
)

const (
	// 차분 시계열 분산이 이 값 이하이면 추정할 동학이 없는 것으로 본다
	degenerateVariance = 1e-12

	maxFuncEvaluations = 20000
	infeasiblePenalty  = 1e10
)

// Order ARIMA 차수 (p, d, q)
type Order struct {
	P int // AR lag
	D int // differencing degree
	Q int // MA lag
}

func (o Order) String() string {
	return fmt.Sprintf("(%d,%d,%d)", o.P, o.D, o.Q)
}

// Validate rejects negative components.
func (o Order) Validate() error {
	if o.P < 0 || o.D < 0 || o.Q < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidOrder, o)
	}
	return nil
}

// MinObservations is the shortest series Fit accepts for this order.
func (o Order) MinObservations() int {
	return o.P + o.D + o.Q + 10
}

// Model 학습 완료된 ARIMA 모델 (불변)
type Model struct {
	order  Order
	ar     []float64
	ma     []float64
	mean   float64 // 차분 시계열 평균 (d>0 이면 drift)
	sigma2 float64
	levels [][]float64 // levels[k]: k번 차분한 시계열, k = 0..d
	resid  []float64
	logLik float64
	aic    float64
}

// Forecast 예측 결과 (스텝별 평균과 구간)
type Forecast struct {
	Mean   []float64
	Lower  []float64
	Upper  []float64
	StdErr []float64
}

// Fit estimates an ARIMA model of the given order on series.
func Fit(series []float64, order Order) (*Model, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	for _, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrNonFinite
		}
	}
	if len(series) < order.MinObservations() {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientData, len(series), order.MinObservations())
	}

	levels := make([][]float64, order.D+1)
	levels[0] = append([]float64(nil), series...)
	for k := 1; k <= order.D; k++ {
		levels[k] = difference(levels[k-1])
	}
	w := levels[order.D]

	m := &Model{
		order:  order,
		ar:     make([]float64, order.P),
		ma:     make([]float64, order.Q),
		levels: levels,
	}

	mean, variance := stat.MeanVariance(w, nil)
	m.mean = mean

	if (order.P == 0 && order.Q == 0) || variance <= degenerateVariance*math.Max(1, mean*mean) {
		// 상수/선형 시계열: drift만 남김
		m.resid = make([]float64, len(w))
		sse := 0.0
		for i, v := range w {
			m.resid[i] = v - mean
			sse += m.resid[i] * m.resid[i]
		}
		m.sigma2 = sse / float64(len(w))
	} else if err := m.estimate(w); err != nil {
		return nil, err
	}

	m.computeLikelihood()
	return m, nil
}

// estimate minimises the conditional sum of squares over (mean, phi, theta).
func (m *Model) estimate(w []float64) error {
	p, q := m.order.P, m.order.Q
	n := len(w)

	x0 := make([]float64, 1+p+q)
	x0[0] = m.mean
	copy(x0[1:1+p], initialAR(w, p))
	for j := 0; j < q; j++ {
		x0[1+p+j] = 0.1
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			mu, phi, theta := unpack(x, p, q)
			if !isStationary(phi) || !isInvertible(theta) {
				return infeasiblePenalty
			}
			sse := conditionalSSE(w, mu, phi, theta, nil)
			if math.IsNaN(sse) || math.IsInf(sse, 0) {
				return infeasiblePenalty
			}
			return sse / float64(n-p)
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: maxFuncEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Relative:   1e-10,
			Iterations: 100,
		},
	}

	result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotConverged, err)
	}
	if !converged(result.Status) {
		return fmt.Errorf("%w: status=%v", ErrNotConverged, result.Status)
	}

	mu, phi, theta := unpack(result.X, p, q)
	for _, v := range result.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrNonFinite
		}
	}
	if !isStationary(phi) {
		return ErrNonStationary
	}
	if !isInvertible(theta) {
		return ErrNonInvertible
	}

	resid := make([]float64, n)
	sse := conditionalSSE(w, mu, phi, theta, resid)
	sigma2 := sse / float64(n-p)
	if math.IsNaN(sigma2) || math.IsInf(sigma2, 0) || sigma2 < 0 {
		return fmt.Errorf("%w: residual variance %v", ErrNonFinite, sigma2)
	}

	m.mean = mu
	copy(m.ar, phi)
	copy(m.ma, theta)
	m.resid = resid
	m.sigma2 = sigma2
	return nil
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success,
		optimize.FunctionConvergence,
		optimize.FunctionThreshold,
		optimize.GradientThreshold,
		optimize.StepConvergence,
		optimize.MethodConverge:
		return true
	}
	return false
}

// Forecast returns steps-ahead means and a two-sided (1-alpha) interval.
func (m *Model) Forecast(steps int, alpha float64) (*Forecast, error) {
	if steps < 1 {
		return nil, ErrInvalidHorizon
	}
	if !(alpha > 0 && alpha < 1) {
		return nil, ErrInvalidAlpha
	}

	p, q := m.order.P, m.order.Q
	w := m.levels[m.order.D]
	n := len(w)

	ext := make([]float64, n+steps)
	copy(ext, w)
	for h := 0; h < steps; h++ {
		t := n + h
		pred := m.mean
		for i := 1; i <= p; i++ {
			pred += m.ar[i-1] * (ext[t-i] - m.mean)
		}
		// 미래 잔차의 기댓값은 0
		for j := 1; j <= q; j++ {
			if t-j < n {
				pred += m.ma[j-1] * m.resid[t-j]
			}
		}
		ext[t] = pred
	}

	out := &Forecast{
		Mean:   m.integrate(ext[n:]),
		Lower:  make([]float64, steps),
		Upper:  make([]float64, steps),
		StdErr: make([]float64, steps),
	}

	z := distuv.UnitNormal.Quantile(1 - alpha/2)
	psi := m.psiWeights(steps)
	acc := 0.0
	for h := 0; h < steps; h++ {
		acc += psi[h] * psi[h]
		se := math.Sqrt(m.sigma2 * acc)
		out.StdErr[h] = se
		out.Lower[h] = out.Mean[h] - z*se
		out.Upper[h] = out.Mean[h] + z*se
	}

	return out, nil
}

// integrate undoes d rounds of differencing, innermost level first.
func (m *Model) integrate(fc []float64) []float64 {
	out := append([]float64(nil), fc...)
	for k := m.order.D - 1; k >= 0; k-- {
		level := m.levels[k]
		last := level[len(level)-1]
		for h := range out {
			last += out[h]
			out[h] = last
		}
	}
	return out
}

// psiWeights returns the MA(∞) weights of the integrated process,
// psi[0] = 1, used for h-step forecast variance.
func (m *Model) psiWeights(steps int) []float64 {
	arPoly := make([]float64, m.order.P+1)
	arPoly[0] = 1
	for i, v := range m.ar {
		arPoly[i+1] = -v
	}
	for k := 0; k < m.order.D; k++ {
		arPoly = convolve(arPoly, []float64{1, -1})
	}

	psi := make([]float64, steps)
	psi[0] = 1
	for j := 1; j < steps; j++ {
		v := 0.0
		if j <= m.order.Q {
			v = m.ma[j-1]
		}
		for i := 1; i < len(arPoly) && i <= j; i++ {
			v += -arPoly[i] * psi[j-i]
		}
		psi[j] = v
	}
	return psi
}

func (m *Model) computeLikelihood() {
	n := float64(len(m.resid) - m.order.P)
	k := float64(m.order.P + m.order.Q + 1)
	if m.sigma2 <= 0 || n <= 0 {
		m.logLik = math.Inf(1)
		m.aic = math.Inf(-1)
		return
	}
	m.logLik = -0.5 * n * (math.Log(2*math.Pi*m.sigma2) + 1)
	m.aic = -2*m.logLik + 2*k
}

// Order returns the fitted order.
func (m *Model) Order() Order { return m.order }

// AR returns a copy of the AR coefficients.
func (m *Model) AR() []float64 { return append([]float64(nil), m.ar...) }

// MA returns a copy of the MA coefficients.
func (m *Model) MA() []float64 { return append([]float64(nil), m.ma...) }

// Mean returns the mean (drift) of the differenced series.
func (m *Model) Mean() float64 { return m.mean }

// Sigma2 returns the innovation variance estimate.
func (m *Model) Sigma2() float64 { return m.sigma2 }

// AIC returns the Akaike information criterion (-Inf for a perfect fit).
func (m *Model) AIC() float64 { return m.aic }

// NObs returns the length of the training series.
func (m *Model) NObs() int { return len(m.levels[0]) }

// conditionalSSE runs the ARMA residual recursion with pre-sample residuals
// fixed at zero. resid, when non-nil, receives the residuals.
func conditionalSSE(w []float64, mu float64, phi, theta []float64, resid []float64) float64 {
	p := len(phi)
	n := len(w)
	e := resid
	if e == nil {
		e = make([]float64, n)
	}

	sse := 0.0
	for t := p; t < n; t++ {
		pred := 0.0
		for i := 1; i <= p; i++ {
			pred += phi[i-1] * (w[t-i] - mu)
		}
		for j := 1; j <= len(theta); j++ {
			if t-j >= 0 {
				pred += theta[j-1] * e[t-j]
			}
		}
		e[t] = (w[t] - mu) - pred
		sse += e[t] * e[t]
	}
	return sse
}

func unpack(x []float64, p, q int) (float64, []float64, []float64) {
	return x[0], x[1 : 1+p], x[1+p : 1+p+q]
}

func difference(x []float64) []float64 {
	if len(x) < 2 {
		return nil
	}
	out := make([]float64, len(x)-1)
	for i := 1; i < len(x); i++ {
		out[i-1] = x[i] - x[i-1]
	}
	return out
}

func convolve(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, av := range a {
		for j, bv := range b {
			out[i+j] += av * bv
		}
	}
	return out
}
