package etl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/freightcast/backend/internal/contracts"
)

func TestMedian(t *testing.T) {
	assert.Nil(t, median(nil))
	assert.Equal(t, 2.0, *median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, *median([]float64{4, 1, 3, 2}))
}

func TestClean(t *testing.T) {
	undated := validRecord("S0")
	undated.Date = nil

	noCarrier := validRecord("S9")
	noCarrier.Carrier = ""

	noWeight := validRecord("S2")
	noWeight.WeightKg = nil
	noWeight.DistanceKm = nil

	highRate := validRecord("S3")
	highRate.RatePerKg = ptr(9.0)
	highRate.WeightKg = ptr(20000.0)
	highRate.DistanceKm = ptr(1000.0)

	first := validRecord("S1")
	first.Status = ptr(contracts.StatusDelivered)
	first.WeightKg = ptr(400.0)
	first.DistanceKm = ptr(3000.0)

	dup := validRecord("S1")
	dup.WeightKg = ptr(999.0)

	out, stats := Clean([]contracts.ShipmentRecord{undated, noCarrier, first, noWeight, highRate, dup})

	require.Len(t, out, 3)
	assert.Equal(t, CleanStats{
		Input:              6,
		DroppedInvalidDate: 1,
		DroppedMissingKey:  1,
		DroppedDuplicate:   1,
		FilledWeight:       1,
		FilledDistance:     1,
		FilledStatus:       2,
		ClippedRate:        1,
		ClippedWeight:      1,
		Output:             3,
	}, stats)

	assert.Equal(t, "S1", out[0].ShipmentID)
	assert.Equal(t, 400.0, out[0].WeightKg, "first occurrence wins")
	assert.Equal(t, contracts.StatusDelivered, out[0].Status)

	// weights among dated rows: 400, 20000, 999 → median 999
	assert.Equal(t, 999.0, out[1].WeightKg)
	assert.Equal(t, contracts.StatusUnknown, out[1].Status)
	require.NotNil(t, out[1].DistanceKm)
	assert.Equal(t, 2000.0, *out[1].DistanceKm)

	assert.Equal(t, MaxRatePerKg, out[2].RatePerKg)
	assert.Equal(t, MaxWeightKg, out[2].WeightKg)
}

func TestClean_UnfillableColumn(t *testing.T) {
	a := validRecord("A")
	a.RatePerKg = nil
	b := validRecord("B")
	b.RatePerKg = nil

	out, stats := Clean([]contracts.ShipmentRecord{a, b})
	assert.Empty(t, out)
	assert.Equal(t, 2, stats.DroppedUnfillable)
}

func TestClean_KeepsDate(t *testing.T) {
	r := validRecord("S1")
	r.Date = ptr(time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC))
	out, _ := Clean([]contracts.ShipmentRecord{r})
	require.Len(t, out, 1)
	assert.Equal(t, *r.Date, out[0].Date)
}
