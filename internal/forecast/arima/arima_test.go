package arima

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simulateAR1(n int, phi, mean float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	prev := 0.0
	for i := range out {
		prev = phi*prev + rng.NormFloat64()*0.1
		out[i] = mean + prev
	}
	return out
}

func TestOrder_Validate(t *testing.T) {
	tests := []struct {
		name    string
		order   Order
		wantErr bool
	}{
		{"default", Order{1, 1, 1}, false},
		{"white noise", Order{0, 0, 0}, false},
		{"negative p", Order{-1, 1, 1}, true},
		{"negative d", Order{1, -1, 1}, true},
		{"negative q", Order{1, 1, -2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidOrder)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFit_InputErrors(t *testing.T) {
	short := make([]float64, 12)
	for i := range short {
		short[i] = 2.0 + float64(i)*0.01
	}

	_, err := Fit(short, Order{1, 1, 1})
	assert.ErrorIs(t, err, ErrInsufficientData)

	withNaN := simulateAR1(40, 0.5, 2.0, 1)
	withNaN[10] = math.NaN()
	_, err = Fit(withNaN, Order{1, 1, 1})
	assert.ErrorIs(t, err, ErrNonFinite)

	_, err = Fit(simulateAR1(40, 0.5, 2.0, 1), Order{P: -1})
	assert.ErrorIs(t, err, ErrInvalidOrder)
}

func TestFit_RecoversAR1(t *testing.T) {
	series := simulateAR1(500, 0.6, 2.5, 42)

	m, err := Fit(series, Order{1, 0, 0})
	require.NoError(t, err)

	ar := m.AR()
	require.Len(t, ar, 1)
	assert.InDelta(t, 0.6, ar[0], 0.12)
	assert.InDelta(t, 2.5, m.Mean(), 0.05)
	assert.Greater(t, m.Sigma2(), 0.0)
	assert.False(t, math.IsInf(m.AIC(), 0))
	assert.Equal(t, 500, m.NObs())
}

func TestFit_ConstantSeries(t *testing.T) {
	series := make([]float64, 25)
	for i := range series {
		series[i] = 2.0
	}

	m, err := Fit(series, Order{1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.Sigma2())

	fc, err := m.Forecast(7, 0.15)
	require.NoError(t, err)
	for i := 0; i < 7; i++ {
		assert.InDelta(t, 2.0, fc.Mean[i], 1e-12)
		assert.InDelta(t, fc.Mean[i], fc.Lower[i], 1e-12)
		assert.InDelta(t, fc.Mean[i], fc.Upper[i], 1e-12)
	}
}

func TestFit_LinearTrendExtrapolates(t *testing.T) {
	series := make([]float64, 120)
	for i := range series {
		series[i] = 1.0 + 0.01*float64(i)
	}

	m, err := Fit(series, Order{1, 1, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.01, m.Mean(), 1e-9)

	fc, err := m.Forecast(7, 0.15)
	require.NoError(t, err)
	last := series[len(series)-1]
	for h := 0; h < 7; h++ {
		assert.InDelta(t, last+0.01*float64(h+1), fc.Mean[h], 1e-9)
	}
}

func TestForecast_RandomWalkIntervalsWiden(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	series := make([]float64, 60)
	level := 2.0
	for i := range series {
		level += rng.NormFloat64() * 0.05
		series[i] = level
	}

	m, err := Fit(series, Order{0, 1, 0})
	require.NoError(t, err)

	fc, err := m.Forecast(5, 0.15)
	require.NoError(t, err)

	// ψ_j = 1 이므로 표준오차는 sqrt(h) 비율로 증가
	for h := 1; h < 5; h++ {
		ratio := fc.StdErr[h] / fc.StdErr[0]
		assert.InDelta(t, math.Sqrt(float64(h+1)), ratio, 1e-9)
		assert.Greater(t, fc.Upper[h]-fc.Lower[h], fc.Upper[h-1]-fc.Lower[h-1])
	}
}

func TestForecast_ARIMA111(t *testing.T) {
	base := simulateAR1(150, 0.4, 0, 99)
	series := make([]float64, len(base))
	level := 2.5
	for i, d := range base {
		level += d
		series[i] = level
	}

	m, err := Fit(series, Order{1, 1, 1})
	require.NoError(t, err)

	fc, err := m.Forecast(7, 0.15)
	require.NoError(t, err)
	require.Len(t, fc.Mean, 7)
	for h := 0; h < 7; h++ {
		assert.False(t, math.IsNaN(fc.Mean[h]))
		assert.LessOrEqual(t, fc.Lower[h], fc.Mean[h])
		assert.GreaterOrEqual(t, fc.Upper[h], fc.Mean[h])
	}
}

func TestForecast_ArgumentErrors(t *testing.T) {
	m, err := Fit(simulateAR1(50, 0.3, 2.0, 3), Order{0, 1, 0})
	require.NoError(t, err)

	_, err = m.Forecast(0, 0.15)
	assert.ErrorIs(t, err, ErrInvalidHorizon)

	_, err = m.Forecast(3, 0)
	assert.ErrorIs(t, err, ErrInvalidAlpha)

	_, err = m.Forecast(3, 1)
	assert.ErrorIs(t, err, ErrInvalidAlpha)
}

func TestPsiWeights(t *testing.T) {
	ar1 := &Model{order: Order{1, 0, 0}, ar: []float64{0.5}}
	assert.InDeltaSlice(t, []float64{1, 0.5, 0.25, 0.125}, ar1.psiWeights(4), 1e-12)

	ma1 := &Model{order: Order{0, 1, 1}, ma: []float64{0.3}}
	// (1-B)^-1 (1+0.3B) = 1 + 1.3B + 1.3B^2 + ...
	assert.InDeltaSlice(t, []float64{1, 1.3, 1.3, 1.3}, ma1.psiWeights(4), 1e-12)
}

func TestStationarity(t *testing.T) {
	tests := []struct {
		name   string
		coeffs []float64
		want   bool
	}{
		{"empty", nil, true},
		{"ar1 inside", []float64{0.5}, true},
		{"ar1 unit root", []float64{1.0}, false},
		{"ar1 explosive", []float64{-1.2}, false},
		{"ar2 stationary", []float64{0.5, 0.3}, true},
		{"ar2 nonstationary", []float64{0.5, 0.6}, false},
		{"nan", []float64{math.NaN()}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isStationary(tt.coeffs))
		})
	}

	assert.True(t, isInvertible([]float64{0.4}))
	assert.False(t, isInvertible([]float64{-1.5}))
}

func TestInitialAR(t *testing.T) {
	series := simulateAR1(400, 0.7, 0, 11)
	phi := initialAR(series, 1)
	require.Len(t, phi, 1)
	assert.InDelta(t, 0.7, phi[0], 0.15)

	flat := make([]float64, 30)
	assert.Equal(t, []float64{0, 0}, initialAR(flat, 2))
}
