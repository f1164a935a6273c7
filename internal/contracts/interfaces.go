package contracts

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a lookup has no rows.
var ErrNotFound = errors.New("not found")

// ⭐ SSOT: 저장소 인터페이스 정의는 여기서만

// ShipmentStore 적재 + 학습 데이터 조회
type ShipmentStore interface {
	InsertShipments(ctx context.Context, shipments []Shipment) (int, error)
	DistinctRoutes(ctx context.Context, limit int) ([]string, error)
	RouteRates(ctx context.Context, route string) ([]RateObservation, error)
	RefreshMetrics(ctx context.Context) error
}

// ShipmentQueries API 조회용
type ShipmentQueries interface {
	HistoricalRates(ctx context.Context, route string, days int) ([]HistoricalRatePoint, error)
	CarrierStats(ctx context.Context, carrier string) (*CarrierStats, error)
	RouteMetrics(ctx context.Context) ([]RouteMetric, error)
}

// PredictionStore 예측 결과 저장소
type PredictionStore interface {
	SavePredictions(ctx context.Context, predictions []RatePrediction) (int, error)
	LatestPredictions(ctx context.Context, route string, from time.Time) ([]RatePrediction, error)
}

// ObjectStore 원본/가공 CSV 저장소 (S3)
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte, contentType string) error
}
