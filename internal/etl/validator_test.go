package etl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/freightcast/backend/internal/contracts"
)

func ptr[T any](v T) *T { return &v }

func validRecord(id string) contracts.ShipmentRecord {
	return contracts.ShipmentRecord{
		ShipmentID: id,
		Route:      "LAX-NYC",
		Carrier:    "FastFreight",
		WeightKg:   ptr(800.0),
		Date:       ptr(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)),
		RatePerKg:  ptr(2.1),
	}
}

func issueKinds(r Report) []string {
	kinds := make([]string, len(r.Issues))
	for i, issue := range r.Issues {
		kinds[i] = issue.Kind
	}
	return kinds
}

func TestValidate(t *testing.T) {
	v := NewValidator()

	t.Run("clean input", func(t *testing.T) {
		report := v.Validate([]contracts.ShipmentRecord{validRecord("S1"), validRecord("S2")}, RequiredColumns)
		assert.True(t, report.Valid())
		assert.Equal(t, 2, report.Rows)
	})

	t.Run("missing columns and empty", func(t *testing.T) {
		report := v.Validate(nil, []string{ColShipmentID, ColRoute})
		assert.Equal(t, []string{IssueMissingColumns, IssueEmpty}, issueKinds(report))
		assert.Equal(t, 4, report.Issues[0].Count)
	})

	t.Run("duplicates nulls and ranges", func(t *testing.T) {
		noRate := validRecord("S2")
		noRate.RatePerKg = nil

		badRate := validRecord("S3")
		badRate.RatePerKg = ptr(12.0)

		negDist := validRecord("S4")
		negDist.DistanceKm = ptr(-1.0)

		records := []contracts.ShipmentRecord{validRecord("S1"), validRecord("S1"), noRate, badRate, negDist}
		report := v.Validate(records, RequiredColumns)

		assert.Equal(t, []string{IssueDuplicateIDs, IssueNulls, IssueInvalidRates, IssueInvalidValues}, issueKinds(report))
		assert.Equal(t, 1, report.Issues[0].Count)
		assert.Equal(t, ColRatePerKg, report.Issues[1].Field)
		assert.Equal(t, "Found 1 invalid rates", report.Issues[2].Message)
		assert.Equal(t, ColDistanceKm, report.Issues[3].Field)
		assert.Len(t, report.Messages(), 4)
	})
}
