package etl

import (
	"math"
	"slices"

	"github.com/wonny/freightcast/backend/internal/contracts"
)

// 정제 범위
const (
	MinRatePerKg = 0.5
	MaxRatePerKg = 5.0
	MinWeightKg  = 50.0
	MaxWeightKg  = 10000.0
)

// CleanStats 정제 단계별 건수
type CleanStats struct {
	Input              int `json:"input"`
	DroppedInvalidDate int `json:"dropped_invalid_date"`
	DroppedMissingKey  int `json:"dropped_missing_key"`
	DroppedDuplicate   int `json:"dropped_duplicate"`
	DroppedUnfillable  int `json:"dropped_unfillable"`
	FilledWeight       int `json:"filled_weight"`
	FilledRate         int `json:"filled_rate"`
	FilledDistance     int `json:"filled_distance"`
	FilledStatus       int `json:"filled_status"`
	ClippedRate        int `json:"clipped_rate"`
	ClippedWeight      int `json:"clipped_weight"`
	Output             int `json:"output"`
}

// Clean drops undated rows, fills numeric nulls with the column median and
// a null status with "unknown", keeps the first row per shipment_id, and
// clips rate and weight into their valid ranges.
func Clean(records []contracts.ShipmentRecord) ([]contracts.Shipment, CleanStats) {
	stats := CleanStats{Input: len(records)}

	dated := make([]contracts.ShipmentRecord, 0, len(records))
	for _, r := range records {
		if r.Date == nil {
			stats.DroppedInvalidDate++
			continue
		}
		if r.ShipmentID == "" || r.Route == "" || r.Carrier == "" {
			stats.DroppedMissingKey++
			continue
		}
		dated = append(dated, r)
	}

	weightMed := median(collect(dated, func(r contracts.ShipmentRecord) *float64 { return r.WeightKg }))
	rateMed := median(collect(dated, func(r contracts.ShipmentRecord) *float64 { return r.RatePerKg }))
	distMed := median(collect(dated, func(r contracts.ShipmentRecord) *float64 { return r.DistanceKm }))

	seen := make(map[string]struct{}, len(dated))
	out := make([]contracts.Shipment, 0, len(dated))

	for _, r := range dated {
		if _, ok := seen[r.ShipmentID]; ok {
			stats.DroppedDuplicate++
			continue
		}
		seen[r.ShipmentID] = struct{}{}

		weight, wFilled := fill(r.WeightKg, weightMed)
		rate, rFilled := fill(r.RatePerKg, rateMed)
		if weight == nil || rate == nil {
			// 컬럼 전체가 null 이면 median 도 없음
			stats.DroppedUnfillable++
			continue
		}
		if wFilled {
			stats.FilledWeight++
		}
		if rFilled {
			stats.FilledRate++
		}

		dist, dFilled := fill(r.DistanceKm, distMed)
		if dFilled {
			stats.FilledDistance++
		}

		status := contracts.StatusUnknown
		if r.Status != nil {
			status = *r.Status
		} else {
			stats.FilledStatus++
		}

		clippedRate := clip(*rate, MinRatePerKg, MaxRatePerKg)
		if clippedRate != *rate {
			stats.ClippedRate++
		}
		clippedWeight := clip(*weight, MinWeightKg, MaxWeightKg)
		if clippedWeight != *weight {
			stats.ClippedWeight++
		}

		out = append(out, contracts.Shipment{
			ShipmentID:     r.ShipmentID,
			Route:          r.Route,
			Carrier:        r.Carrier,
			WeightKg:       clippedWeight,
			Date:           *r.Date,
			RatePerKg:      clippedRate,
			Status:         status,
			DistanceKm:     dist,
			DaysToDelivery: r.DaysToDelivery,
		})
	}

	stats.Output = len(out)
	return out, stats
}

func collect(records []contracts.ShipmentRecord, field func(contracts.ShipmentRecord) *float64) []float64 {
	var vals []float64
	for _, r := range records {
		if v := field(r); v != nil {
			vals = append(vals, *v)
		}
	}
	return vals
}

// median averages the two middle values for even lengths; nil when empty.
func median(vals []float64) *float64 {
	if len(vals) == 0 {
		return nil
	}
	sorted := slices.Clone(vals)
	slices.Sort(sorted)

	mid := len(sorted) / 2
	m := sorted[mid]
	if len(sorted)%2 == 0 {
		m = (sorted[mid-1] + sorted[mid]) / 2
	}
	return &m
}

func fill(v, fallback *float64) (*float64, bool) {
	if v != nil {
		return v, false
	}
	if fallback == nil {
		return nil, false
	}
	f := *fallback
	return &f, true
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
