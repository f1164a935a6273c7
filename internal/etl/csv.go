// Package etl turns the raw shipment CSV into cleaned, feature-enriched
// shipments and orchestrates the daily load-and-train pipeline.
package etl

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/freightcast/backend/internal/contracts"
)

// Column names
const (
	ColShipmentID     = "shipment_id"
	ColRoute          = "route"
	ColCarrier        = "carrier"
	ColWeightKg       = "weight_kg"
	ColDate           = "date"
	ColRatePerKg      = "rate_per_kg"
	ColStatus         = "status"
	ColDistanceKm     = "distance_km"
	ColDaysToDelivery = "days_to_delivery"
)

// RequiredColumns 원본 CSV 필수 컬럼
var RequiredColumns = []string{ColShipmentID, ColRoute, ColCarrier, ColWeightKg, ColDate, ColRatePerKg}

// ProcessedColumns 가공 CSV 컬럼 순서
var ProcessedColumns = []string{
	ColShipmentID, ColRoute, ColCarrier, ColWeightKg, ColDate, ColRatePerKg,
	ColStatus, ColDistanceKm, ColDaysToDelivery,
	"month", "day_of_week", "quarter", "is_weekend", "shipment_cost", "rate_per_ton", "weight_bucket",
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
}

// ReadCSV parses a header-first shipment CSV. Unparseable numbers and dates
// become nil instead of errors. Only a malformed CSV stream is an error.
func ReadCSV(r io.Reader) ([]contracts.ShipmentRecord, []string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		header[i] = h
		index[h] = i
	}

	var records []contracts.ShipmentRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, header, fmt.Errorf("read csv row %d: %w", len(records)+2, err)
		}

		get := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		records = append(records, contracts.ShipmentRecord{
			ShipmentID:     get(ColShipmentID),
			Route:          get(ColRoute),
			Carrier:        get(ColCarrier),
			WeightKg:       parseFloat(get(ColWeightKg)),
			Date:           parseDate(get(ColDate)),
			RatePerKg:      parseFloat(get(ColRatePerKg)),
			Status:         parseString(get(ColStatus)),
			DistanceKm:     parseFloat(get(ColDistanceKm)),
			DaysToDelivery: parseInt(get(ColDaysToDelivery)),
		})
	}

	return records, header, nil
}

// WriteCSV writes shipments with features in ProcessedColumns order.
func WriteCSV(w io.Writer, shipments []contracts.Shipment) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(ProcessedColumns); err != nil {
		return err
	}

	for _, s := range shipments {
		f := s.Features
		row := []string{
			s.ShipmentID,
			s.Route,
			s.Carrier,
			formatFloat(s.WeightKg),
			s.Date.Format("2006-01-02"),
			formatFloat(s.RatePerKg),
			s.Status,
			formatOptionalFloat(s.DistanceKm),
			formatOptionalInt(s.DaysToDelivery),
			strconv.Itoa(f.Month),
			strconv.Itoa(f.DayOfWeek),
			strconv.Itoa(f.Quarter),
			strconv.FormatBool(f.IsWeekend),
			formatFloat(f.ShipmentCost),
			formatFloat(f.RatePerTon),
			f.WeightBucket,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func isNullToken(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "null", "none", "na", "n/a":
		return true
	}
	return false
}

func parseString(s string) *string {
	if isNullToken(s) {
		return nil
	}
	return &s
}

func parseFloat(s string) *float64 {
	if isNullToken(s) {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func parseInt(s string) *int {
	f := parseFloat(s)
	if f == nil || *f != math.Trunc(*f) {
		return nil
	}
	v := int(*f)
	return &v
}

func parseDate(s string) *time.Time {
	if isNullToken(s) {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &d
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatOptionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
