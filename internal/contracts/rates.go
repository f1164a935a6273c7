package contracts

import "time"

// ⭐ SSOT: 운임 예측 입출력 타입은 여기서만 정의

// RateObservation 관측된 운임 (route 단위, 날짜는 비연속/중복 가능)
type RateObservation struct {
	Date time.Time `json:"date"`
	Rate float64   `json:"rate"` // USD/kg
}

// ForecastPoint 하루 단위 예측값 (생성 후 불변)
type ForecastPoint struct {
	Date            time.Time `json:"prediction_date"`
	PredictedRate   float64   `json:"predicted_rate"`
	ConfidenceLower float64   `json:"confidence_lower"`
	ConfidenceUpper float64   `json:"confidence_upper"`
}

// Ordered reports lower ≤ predicted ≤ upper.
func (p ForecastPoint) Ordered() bool {
	return p.ConfidenceLower <= p.PredictedRate && p.PredictedRate <= p.ConfidenceUpper
}

// Within reports whether all three values lie in [lo, hi].
func (p ForecastPoint) Within(lo, hi float64) bool {
	for _, v := range []float64{p.PredictedRate, p.ConfidenceLower, p.ConfidenceUpper} {
		if v < lo || v > hi {
			return false
		}
	}
	return true
}

// RatePrediction 저장용 예측 레코드 (route + model version 태그)
type RatePrediction struct {
	ID           int64     `json:"id,omitempty"`
	Route        string    `json:"route"`
	ModelVersion string    `json:"model_version"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	ForecastPoint
}

// TagPredictions attaches route and model version to forecast points.
func TagPredictions(route, modelVersion string, points []ForecastPoint) []RatePrediction {
	out := make([]RatePrediction, 0, len(points))
	for _, p := range points {
		out = append(out, RatePrediction{
			Route:         route,
			ModelVersion:  modelVersion,
			ForecastPoint: p,
		})
	}
	return out
}
