package database

import (
	"context"
	"fmt"
)

// schemaStatements 테이블 부트스트랩 (멱등)
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS shipments (
		id               BIGSERIAL PRIMARY KEY,
		shipment_id      VARCHAR(50) NOT NULL UNIQUE,
		route            VARCHAR(100) NOT NULL,
		carrier          VARCHAR(100) NOT NULL,
		weight_kg        DOUBLE PRECISION NOT NULL,
		date             DATE NOT NULL,
		rate_per_kg      DOUBLE PRECISION NOT NULL,
		status           VARCHAR(20),
		distance_km      DOUBLE PRECISION,
		days_to_delivery INTEGER,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_shipments_route_date ON shipments (route, date)`,
	`CREATE INDEX IF NOT EXISTS idx_shipments_carrier ON shipments (carrier)`,
	`CREATE TABLE IF NOT EXISTS rate_predictions (
		id               BIGSERIAL PRIMARY KEY,
		route            VARCHAR(100) NOT NULL,
		prediction_date  DATE NOT NULL,
		predicted_rate   DOUBLE PRECISION NOT NULL,
		confidence_lower DOUBLE PRECISION NOT NULL,
		confidence_upper DOUBLE PRECISION NOT NULL,
		model_version    VARCHAR(50) NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rate_predictions_route_date ON rate_predictions (route, prediction_date)`,
	`CREATE TABLE IF NOT EXISTS route_metrics (
		id                 BIGSERIAL PRIMARY KEY,
		route              VARCHAR(100) NOT NULL UNIQUE,
		avg_rate           DOUBLE PRECISION NOT NULL,
		min_rate           DOUBLE PRECISION NOT NULL,
		max_rate           DOUBLE PRECISION NOT NULL,
		shipment_count     INTEGER NOT NULL,
		on_time_percentage DOUBLE PRECISION NOT NULL,
		last_updated       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS carrier_metrics (
		id                 BIGSERIAL PRIMARY KEY,
		carrier            VARCHAR(100) NOT NULL UNIQUE,
		avg_rate           DOUBLE PRECISION NOT NULL,
		on_time_percentage DOUBLE PRECISION NOT NULL,
		shipment_count     INTEGER NOT NULL,
		reliability_score  DOUBLE PRECISION NOT NULL,
		last_updated       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates the freight tables and indexes if they do not exist.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
