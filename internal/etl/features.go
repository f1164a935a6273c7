package etl

import (
	"time"

	"github.com/wonny/freightcast/backend/internal/contracts"
)

// AddFeatures fills the derived feature columns in place.
func AddFeatures(shipments []contracts.Shipment) {
	for i := range shipments {
		shipments[i].Features = Features(shipments[i])
	}
}

// Features derives calendar, cost and weight-bucket features.
func Features(s contracts.Shipment) contracts.ShipmentFeatures {
	month := int(s.Date.Month())
	dow := mondayFirst(s.Date.Weekday())

	return contracts.ShipmentFeatures{
		Month:        month,
		DayOfWeek:    dow,
		Quarter:      (month-1)/3 + 1,
		IsWeekend:    dow >= 5,
		ShipmentCost: s.RatePerKg * s.WeightKg,
		RatePerTon:   s.RatePerKg * 1000,
		WeightBucket: WeightBucket(s.WeightKg),
	}
}

// WeightBucket light (0,500], medium (500,2000], heavy (2000,10000];
// outside those bins it is empty.
func WeightBucket(kg float64) string {
	switch {
	case kg <= 0:
		return ""
	case kg <= 500:
		return contracts.WeightLight
	case kg <= 2000:
		return contracts.WeightMedium
	case kg <= 10000:
		return contracts.WeightHeavy
	default:
		return ""
	}
}

// Monday=0 ... Sunday=6
func mondayFirst(d time.Weekday) int {
	return (int(d) + 6) % 7
}
