package contracts

import "time"

// Shipment status values
const (
	StatusDelivered = "delivered"
	StatusUnknown   = "unknown"
)

// Weight buckets
const (
	WeightLight  = "light"
	WeightMedium = "medium"
	WeightHeavy  = "heavy"
)

// ShipmentRecord 원본 CSV 한 행 (파싱 실패 값은 nil)
type ShipmentRecord struct {
	ShipmentID     string     `csv:"shipment_id" validate:"required"`
	Route          string     `csv:"route" validate:"required"`
	Carrier        string     `csv:"carrier" validate:"required"`
	WeightKg       *float64   `csv:"weight_kg" validate:"required,gt=0"`
	Date           *time.Time `csv:"date" validate:"required"`
	RatePerKg      *float64   `csv:"rate_per_kg" validate:"required,gt=0,lte=10"`
	Status         *string    `csv:"status" validate:"omitempty"`
	DistanceKm     *float64   `csv:"distance_km" validate:"omitempty,gte=0"`
	DaysToDelivery *int       `csv:"days_to_delivery" validate:"omitempty,gte=0"`
}

// Shipment 정제 + 피처 추가가 끝난 레코드
type Shipment struct {
	ShipmentID     string    `json:"shipment_id"`
	Route          string    `json:"route"`
	Carrier        string    `json:"carrier"`
	WeightKg       float64   `json:"weight_kg"`
	Date           time.Time `json:"date"`
	RatePerKg      float64   `json:"rate_per_kg"`
	Status         string    `json:"status"`
	DistanceKm     *float64  `json:"distance_km,omitempty"`
	DaysToDelivery *int      `json:"days_to_delivery,omitempty"`

	Features ShipmentFeatures `json:"features"`
}

// ShipmentFeatures 파생 피처
type ShipmentFeatures struct {
	Month        int     `json:"month"`
	DayOfWeek    int     `json:"day_of_week"` // Monday=0
	Quarter      int     `json:"quarter"`
	IsWeekend    bool    `json:"is_weekend"`
	ShipmentCost float64 `json:"shipment_cost"` // rate * weight
	RatePerTon   float64 `json:"rate_per_ton"`
	WeightBucket string  `json:"weight_bucket"` // light/medium/heavy
}
