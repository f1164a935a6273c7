package contracts

import "time"

// HistoricalRatePoint 일별 운임 집계
type HistoricalRatePoint struct {
	Date          time.Time `json:"date"`
	AvgRate       float64   `json:"avg_rate"`
	MinRate       float64   `json:"min_rate"`
	MaxRate       float64   `json:"max_rate"`
	ShipmentCount int       `json:"shipment_count"`
}

// HistoricalSummary 기간 요약
type HistoricalSummary struct {
	AvgRate        float64 `json:"avg_rate"`
	MinRate        float64 `json:"min_rate"`
	MaxRate        float64 `json:"max_rate"`
	TotalShipments int     `json:"total_shipments"`
}

// Summarize aggregates daily points; AvgRate is weighted by shipment count.
func Summarize(points []HistoricalRatePoint) HistoricalSummary {
	var s HistoricalSummary
	if len(points) == 0 {
		return s
	}

	weighted := 0.0
	s.MinRate = points[0].MinRate
	s.MaxRate = points[0].MaxRate
	for _, p := range points {
		weighted += p.AvgRate * float64(p.ShipmentCount)
		s.TotalShipments += p.ShipmentCount
		if p.MinRate < s.MinRate {
			s.MinRate = p.MinRate
		}
		if p.MaxRate > s.MaxRate {
			s.MaxRate = p.MaxRate
		}
	}
	if s.TotalShipments > 0 {
		s.AvgRate = weighted / float64(s.TotalShipments)
	}
	return s
}

// CarrierStats 운송사 통계 (on-time = delivered 비율)
type CarrierStats struct {
	Carrier          string  `json:"carrier"`
	AvgRate          float64 `json:"avg_rate"`
	TotalShipments   int     `json:"total_shipments"`
	OnTimePercentage float64 `json:"on_time_percentage"`
	ReliabilityScore float64 `json:"reliability_score"`
}

// RouteMetric 노선 통계
type RouteMetric struct {
	Route            string    `json:"route"`
	AvgRate          float64   `json:"avg_rate"`
	MinRate          float64   `json:"min_rate"`
	MaxRate          float64   `json:"max_rate"`
	ShipmentCount    int       `json:"shipment_count"`
	OnTimePercentage float64   `json:"on_time_percentage"`
	LastUpdated      time.Time `json:"last_updated"`
}
