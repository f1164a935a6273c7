package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/freightcast/backend/internal/contracts"
)

// Repository rate_predictions 저장소
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository 새 저장소 생성
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SavePredictions 예측 일괄 저장
func (r *Repository) SavePredictions(ctx context.Context, predictions []contracts.RatePrediction) (int, error) {
	if len(predictions) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO rate_predictions
			(route, prediction_date, predicted_rate, confidence_lower, confidence_upper, model_version)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for _, p := range predictions {
		batch.Queue(query, p.Route, p.Date, p.PredictedRate,
			p.ConfidenceLower, p.ConfidenceUpper, p.ModelVersion)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	saved := 0
	for range predictions {
		tag, err := br.Exec()
		if err != nil {
			return saved, fmt.Errorf("insert prediction: %w", err)
		}
		saved += int(tag.RowsAffected())
	}

	return saved, nil
}

// LatestPredictions from 이후 날짜별 최신 예측 조회
func (r *Repository) LatestPredictions(ctx context.Context, route string, from time.Time) ([]contracts.RatePrediction, error) {
	// 같은 날짜에 여러 실행 결과가 있으면 가장 최근 것만
	query := `
		SELECT DISTINCT ON (prediction_date)
			id, route, prediction_date, predicted_rate, confidence_lower, confidence_upper,
			model_version, created_at
		FROM rate_predictions
		WHERE route = $1 AND prediction_date >= $2
		ORDER BY prediction_date, created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, route, from)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	var out []contracts.RatePrediction
	for rows.Next() {
		var p contracts.RatePrediction
		if err := rows.Scan(
			&p.ID, &p.Route, &p.Date, &p.PredictedRate,
			&p.ConfidenceLower, &p.ConfidenceUpper,
			&p.ModelVersion, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		out = append(out, p)
	}

	return out, rows.Err()
}
