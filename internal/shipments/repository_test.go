package shipments

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/freightcast/backend/internal/contracts"
	"github.com/wonny/freightcast/backend/pkg/database"
)

func TestOnTimePercentage(t *testing.T) {
	tests := []struct {
		delivered, total int
		want             float64
	}{
		{0, 0, 0},
		{3, 4, 75},
		{5, 5, 100},
		{0, 10, 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_of_%d", tt.delivered, tt.total), func(t *testing.T) {
			assert.InDelta(t, tt.want, OnTimePercentage(tt.delivered, tt.total), 1e-9)
		})
	}
}

func TestRepository_Integration(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" || testing.Short() {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	require.NoError(t, (&database.DB{Pool: pool}).EnsureSchema(ctx))

	suffix := time.Now().Format("150405.000000")
	route := "IT-ROUTE-" + suffix
	carrier := "IT-CARRIER-" + suffix
	today := time.Now().UTC().Truncate(24 * time.Hour)

	var shipments []contracts.Shipment
	for i := 0; i < 4; i++ {
		status := contracts.StatusDelivered
		if i == 3 {
			status = "delayed"
		}
		shipments = append(shipments, contracts.Shipment{
			ShipmentID: fmt.Sprintf("IT-%s-%d", suffix, i),
			Route:      route,
			Carrier:    carrier,
			WeightKg:   500,
			Date:       today.AddDate(0, 0, -i),
			RatePerKg:  2.0 + float64(i)*0.1,
			Status:     status,
		})
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM shipments WHERE route = $1`, route)
		_, _ = pool.Exec(ctx, `DELETE FROM route_metrics WHERE route = $1`, route)
		_, _ = pool.Exec(ctx, `DELETE FROM carrier_metrics WHERE carrier = $1`, carrier)
	})

	repo := NewRepository(pool)

	n, err := repo.InsertShipments(ctx, shipments)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	// 재적재 시 중복은 무시
	n, err = repo.InsertShipments(ctx, shipments)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	obs, err := repo.RouteRates(ctx, route)
	require.NoError(t, err)
	require.Len(t, obs, 4)
	assert.True(t, obs[0].Date.Before(obs[3].Date))

	hist, err := repo.HistoricalRates(ctx, route, 30)
	require.NoError(t, err)
	assert.Len(t, hist, 4)

	stats, err := repo.CarrierStats(ctx, carrier)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalShipments)
	assert.InDelta(t, 75.0, stats.OnTimePercentage, 1e-9)
	assert.Equal(t, stats.OnTimePercentage, stats.ReliabilityScore)

	_, err = repo.CarrierStats(ctx, "missing-"+suffix)
	assert.ErrorIs(t, err, contracts.ErrNotFound)

	require.NoError(t, repo.RefreshMetrics(ctx))
	metrics, err := repo.RouteMetrics(ctx)
	require.NoError(t, err)

	var found bool
	for _, m := range metrics {
		if m.Route == route {
			found = true
			assert.Equal(t, 4, m.ShipmentCount)
			assert.InDelta(t, 2.0, m.MinRate, 1e-9)
		}
	}
	assert.True(t, found)
}
