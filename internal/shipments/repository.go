// Package shipments persists cleaned shipments and serves the aggregate
// queries used by training and the query API.
package shipments

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/freightcast/backend/internal/contracts"
)

// insertBatchSize pgx.Batch 한 번에 보내는 행 수
const insertBatchSize = 1000

// Repository shipments / route_metrics / carrier_metrics 저장소
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository 새 저장소 생성
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertShipments 신규 shipment만 적재 (shipment_id 중복은 무시)
// Returns the number of rows actually inserted.
func (r *Repository) InsertShipments(ctx context.Context, shipments []contracts.Shipment) (int, error) {
	query := `
		INSERT INTO shipments
			(shipment_id, route, carrier, weight_kg, date, rate_per_kg, status, distance_km, days_to_delivery)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (shipment_id) DO NOTHING`

	inserted := 0
	for start := 0; start < len(shipments); start += insertBatchSize {
		end := min(start+insertBatchSize, len(shipments))
		chunk := shipments[start:end]

		batch := &pgx.Batch{}
		for _, s := range chunk {
			batch.Queue(query, s.ShipmentID, s.Route, s.Carrier, s.WeightKg, s.Date,
				s.RatePerKg, s.Status, s.DistanceKm, s.DaysToDelivery)
		}

		n, err := r.sendInsertBatch(ctx, batch, len(chunk))
		inserted += n
		if err != nil {
			return inserted, err
		}
	}

	return inserted, nil
}

func (r *Repository) sendInsertBatch(ctx context.Context, batch *pgx.Batch, size int) (int, error) {
	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	inserted := 0
	for i := 0; i < size; i++ {
		tag, err := br.Exec()
		if err != nil {
			return inserted, fmt.Errorf("insert shipment: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// DistinctRoutes 물동량 상위 노선 (limit ≤ 0 이면 전체)
func (r *Repository) DistinctRoutes(ctx context.Context, limit int) ([]string, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}

	rows, err := r.pool.Query(ctx, `
		SELECT route
		FROM shipments
		GROUP BY route
		ORDER BY COUNT(*) DESC, route
		LIMIT $1`, lim)
	if err != nil {
		return nil, fmt.Errorf("query routes: %w", err)
	}

	routes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan routes: %w", err)
	}
	return routes, nil
}

// RouteRates 노선 운임 이력 (날짜순)
func (r *Repository) RouteRates(ctx context.Context, route string) ([]contracts.RateObservation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date, rate_per_kg
		FROM shipments
		WHERE route = $1
		ORDER BY date`, route)
	if err != nil {
		return nil, fmt.Errorf("query route rates: %w", err)
	}
	defer rows.Close()

	var obs []contracts.RateObservation
	for rows.Next() {
		var o contracts.RateObservation
		if err := rows.Scan(&o.Date, &o.Rate); err != nil {
			return nil, fmt.Errorf("scan route rate: %w", err)
		}
		obs = append(obs, o)
	}
	return obs, rows.Err()
}

// HistoricalRates 최근 N일 일별 집계
func (r *Repository) HistoricalRates(ctx context.Context, route string, days int) ([]contracts.HistoricalRatePoint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date, AVG(rate_per_kg), MIN(rate_per_kg), MAX(rate_per_kg), COUNT(*)
		FROM shipments
		WHERE route = $1 AND date >= CURRENT_DATE - $2::int
		GROUP BY date
		ORDER BY date`, route, days)
	if err != nil {
		return nil, fmt.Errorf("query historical rates: %w", err)
	}
	defer rows.Close()

	var points []contracts.HistoricalRatePoint
	for rows.Next() {
		var p contracts.HistoricalRatePoint
		if err := rows.Scan(&p.Date, &p.AvgRate, &p.MinRate, &p.MaxRate, &p.ShipmentCount); err != nil {
			return nil, fmt.Errorf("scan historical rate: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// CarrierStats 운송사 통계. 배송 건이 없으면 contracts.ErrNotFound
func (r *Repository) CarrierStats(ctx context.Context, carrier string) (*contracts.CarrierStats, error) {
	var (
		total     int
		delivered int
		avgRate   float64
	)
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = $2),
		       COALESCE(AVG(rate_per_kg), 0)
		FROM shipments
		WHERE carrier = $1`, carrier, contracts.StatusDelivered).Scan(&total, &delivered, &avgRate)
	if err != nil {
		return nil, fmt.Errorf("query carrier stats: %w", err)
	}
	if total == 0 {
		return nil, fmt.Errorf("carrier %s: %w", carrier, contracts.ErrNotFound)
	}

	onTime := OnTimePercentage(delivered, total)
	return &contracts.CarrierStats{
		Carrier:          carrier,
		AvgRate:          avgRate,
		TotalShipments:   total,
		OnTimePercentage: onTime,
		ReliabilityScore: onTime,
	}, nil
}

// RouteMetrics route_metrics 전체 (avg_rate 내림차순)
func (r *Repository) RouteMetrics(ctx context.Context) ([]contracts.RouteMetric, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT route, avg_rate, min_rate, max_rate, shipment_count, on_time_percentage, last_updated
		FROM route_metrics
		ORDER BY avg_rate DESC`)
	if err != nil {
		return nil, fmt.Errorf("query route metrics: %w", err)
	}
	defer rows.Close()

	var metrics []contracts.RouteMetric
	for rows.Next() {
		var m contracts.RouteMetric
		if err := rows.Scan(&m.Route, &m.AvgRate, &m.MinRate, &m.MaxRate,
			&m.ShipmentCount, &m.OnTimePercentage, &m.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan route metric: %w", err)
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// RefreshMetrics route_metrics / carrier_metrics 재계산 (단일 트랜잭션)
func (r *Repository) RefreshMetrics(ctx context.Context) error {
	routeUpsert := `
		INSERT INTO route_metrics
			(route, avg_rate, min_rate, max_rate, shipment_count, on_time_percentage, last_updated)
		SELECT route,
		       AVG(rate_per_kg), MIN(rate_per_kg), MAX(rate_per_kg), COUNT(*),
		       100.0 * COUNT(*) FILTER (WHERE status = $1) / COUNT(*),
		       $2
		FROM shipments
		GROUP BY route
		ON CONFLICT (route) DO UPDATE SET
			avg_rate = EXCLUDED.avg_rate,
			min_rate = EXCLUDED.min_rate,
			max_rate = EXCLUDED.max_rate,
			shipment_count = EXCLUDED.shipment_count,
			on_time_percentage = EXCLUDED.on_time_percentage,
			last_updated = EXCLUDED.last_updated`

	carrierUpsert := `
		INSERT INTO carrier_metrics
			(carrier, avg_rate, on_time_percentage, shipment_count, reliability_score, last_updated)
		SELECT carrier,
		       AVG(rate_per_kg),
		       100.0 * COUNT(*) FILTER (WHERE status = $1) / COUNT(*),
		       COUNT(*),
		       100.0 * COUNT(*) FILTER (WHERE status = $1) / COUNT(*),
		       $2
		FROM shipments
		GROUP BY carrier
		ON CONFLICT (carrier) DO UPDATE SET
			avg_rate = EXCLUDED.avg_rate,
			on_time_percentage = EXCLUDED.on_time_percentage,
			shipment_count = EXCLUDED.shipment_count,
			reliability_score = EXCLUDED.reliability_score,
			last_updated = EXCLUDED.last_updated`

	now := time.Now()
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, routeUpsert, contracts.StatusDelivered, now); err != nil {
			return fmt.Errorf("refresh route metrics: %w", err)
		}
		if _, err := tx.Exec(ctx, carrierUpsert, contracts.StatusDelivered, now); err != nil {
			return fmt.Errorf("refresh carrier metrics: %w", err)
		}
		return nil
	})
}

// OnTimePercentage delivered 비율 (0~100)
func OnTimePercentage(delivered, total int) float64 {
	if total <= 0 {
		return 0
	}
	return 100 * float64(delivered) / float64(total)
}
