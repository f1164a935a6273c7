package arima

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// AR 초기값 축소 한계
const maxInitialCoef = 0.9

// isStationary reports whether 1 - Σ phi_i B^i has all roots outside the
// unit circle, i.e. every companion-matrix eigenvalue has modulus < 1.
func isStationary(phi []float64) bool {
	return rootsOutsideUnitCircle(phi)
}

// isInvertible applies the same test to 1 + Σ theta_j B^j.
func isInvertible(theta []float64) bool {
	neg := make([]float64, len(theta))
	for i, v := range theta {
		neg[i] = -v
	}
	return rootsOutsideUnitCircle(neg)
}

func rootsOutsideUnitCircle(coeffs []float64) bool {
	k := len(coeffs)
	for _, v := range coeffs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	switch k {
	case 0:
		return true
	case 1:
		return math.Abs(coeffs[0]) < 1
	}

	companion := mat.NewDense(k, k, nil)
	for j, v := range coeffs {
		companion.Set(0, j, v)
	}
	for i := 1; i < k; i++ {
		companion.Set(i, i-1, 1)
	}

	var eig mat.Eigen
	if ok := eig.Factorize(companion, mat.EigenNone); !ok {
		return false
	}
	for _, v := range eig.Values(nil) {
		if cmplx.Abs(v) >= 1 {
			return false
		}
	}
	return true
}

// initialAR derives Yule-Walker AR estimates through Levinson-Durbin and
// shrinks them into the stationary region.
func initialAR(w []float64, p int) []float64 {
	phi := make([]float64, p)
	if p == 0 {
		return phi
	}

	r := autocorrelation(w, p)
	if r == nil {
		return phi
	}

	prev := make([]float64, p+1)
	cur := make([]float64, p+1)
	v := 1.0
	for k := 1; k <= p; k++ {
		acc := r[k]
		for j := 1; j < k; j++ {
			acc -= prev[j] * r[k-j]
		}
		if v <= 0 {
			return phi
		}
		kappa := acc / v
		cur[k] = kappa
		for j := 1; j < k; j++ {
			cur[j] = prev[j] - kappa*prev[k-j]
		}
		v *= 1 - kappa*kappa
		copy(prev, cur)
	}

	for i := 0; i < p; i++ {
		phi[i] = math.Max(-maxInitialCoef, math.Min(maxInitialCoef, prev[i+1]))
	}
	if !isStationary(phi) {
		return make([]float64, p)
	}
	return phi
}

// autocorrelation returns r[0..maxLag] normalised by r[0] = 1, or nil when
// the series has no variance.
func autocorrelation(w []float64, maxLag int) []float64 {
	n := len(w)
	if n <= maxLag {
		return nil
	}
	mean := stat.Mean(w, nil)
	denom := 0.0
	for _, v := range w {
		denom += (v - mean) * (v - mean)
	}
	if denom == 0 {
		return nil
	}

	r := make([]float64, maxLag+1)
	r[0] = 1
	for lag := 1; lag <= maxLag; lag++ {
		num := 0.0
		for t := lag; t < n; t++ {
			num += (w[t] - mean) * (w[t-lag] - mean)
		}
		r[lag] = num / denom
	}
	return r
}
