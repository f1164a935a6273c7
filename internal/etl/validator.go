package etl

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wonny/freightcast/backend/internal/contracts"
)

// Issue kinds
const (
	IssueMissingColumns = "missing_columns"
	IssueEmpty          = "empty"
	IssueDuplicateIDs   = "duplicate_ids"
	IssueNulls          = "nulls"
	IssueInvalidRates   = "invalid_rates"
	IssueInvalidValues  = "invalid_values"
)

// Issue 검증 경고 1건
type Issue struct {
	Kind    string `json:"kind"`
	Field   string `json:"field,omitempty"`
	Count   int    `json:"count"`
	Message string `json:"message"`
}

func (i Issue) String() string { return i.Message }

// Report 검증 결과 (경고만, 파이프라인을 멈추지 않음)
type Report struct {
	Rows   int     `json:"rows"`
	Issues []Issue `json:"issues"`
}

// Valid reports whether no issue was found.
func (r Report) Valid() bool { return len(r.Issues) == 0 }

// Messages returns issue messages in report order.
func (r Report) Messages() []string {
	out := make([]string, len(r.Issues))
	for i, issue := range r.Issues {
		out[i] = issue.Message
	}
	return out
}

// Validator 원본 레코드 검증기
type Validator struct {
	validate *validator.Validate
}

// NewValidator reports field errors under their CSV column names.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("csv"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate checks header columns, emptiness, duplicate ids, nulls in
// required columns and out-of-range rates.
func (v *Validator) Validate(records []contracts.ShipmentRecord, header []string) Report {
	report := Report{Rows: len(records)}

	var missing []string
	for _, col := range RequiredColumns {
		if !slices.Contains(header, col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		report.Issues = append(report.Issues, Issue{
			Kind:    IssueMissingColumns,
			Count:   len(missing),
			Message: fmt.Sprintf("Missing required columns: %s", strings.Join(missing, ", ")),
		})
	}

	if len(records) == 0 {
		report.Issues = append(report.Issues, Issue{
			Kind:    IssueEmpty,
			Message: "Input has no records",
		})
		return report
	}

	seen := make(map[string]struct{}, len(records))
	duplicates := 0
	nulls := make(map[string]int)
	invalid := make(map[string]int)
	invalidRates := 0

	for _, rec := range records {
		if rec.ShipmentID != "" {
			if _, ok := seen[rec.ShipmentID]; ok {
				duplicates++
			}
			seen[rec.ShipmentID] = struct{}{}
		}

		err := v.validate.Struct(rec)
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			continue
		}
		for _, fe := range fieldErrs {
			switch {
			case fe.Tag() == "required":
				nulls[fe.Field()]++
			case fe.Field() == ColRatePerKg:
				invalidRates++
			default:
				invalid[fe.Field()]++
			}
		}
	}

	if duplicates > 0 {
		report.Issues = append(report.Issues, Issue{
			Kind:    IssueDuplicateIDs,
			Field:   ColShipmentID,
			Count:   duplicates,
			Message: fmt.Sprintf("Found %d duplicate shipment IDs", duplicates),
		})
	}

	for _, col := range RequiredColumns {
		if n := nulls[col]; n > 0 {
			report.Issues = append(report.Issues, Issue{
				Kind:    IssueNulls,
				Field:   col,
				Count:   n,
				Message: fmt.Sprintf("Column %s has %d null values", col, n),
			})
		}
	}

	if invalidRates > 0 {
		report.Issues = append(report.Issues, Issue{
			Kind:    IssueInvalidRates,
			Field:   ColRatePerKg,
			Count:   invalidRates,
			Message: fmt.Sprintf("Found %d invalid rates", invalidRates),
		})
	}

	for _, col := range []string{ColWeightKg, ColDistanceKm, ColDaysToDelivery} {
		if n := invalid[col]; n > 0 {
			report.Issues = append(report.Issues, Issue{
				Kind:    IssueInvalidValues,
				Field:   col,
				Count:   n,
				Message: fmt.Sprintf("Column %s has %d out-of-range values", col, n),
			})
		}
	}

	return report
}
