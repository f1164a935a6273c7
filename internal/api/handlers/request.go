package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("query"), ",", 2)[0]
	})
	return v
}

// FieldError 요청 파라미터 검증 오류
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// bindQuery fills `query`-tagged fields from URL values, applies `default`
// tags and validates. Slice fields accept repeated or comma-separated values.
func bindQuery(values url.Values, dst interface{}) []FieldError {
	rv := reflect.ValueOf(dst).Elem()
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		name := strings.SplitN(f.Tag.Get("query"), ",", 2)[0]
		raw, ok := values[name]
		if name == "" || !ok || len(raw) == 0 {
			continue
		}
		if err := setField(rv.Field(i), raw); err != nil {
			return []FieldError{{Field: name, Code: "ERR_TYPE", Message: fmt.Sprintf("%s: %v", name, err)}}
		}
	}

	if err := defaults.Set(dst); err != nil {
		return []FieldError{{Code: "ERR_UNKNOWN", Message: err.Error()}}
	}

	return validationErrors(validate.Struct(dst))
}

func setField(v reflect.Value, raw []string) error {
	switch v.Kind() {
	case reflect.String:
		v.SetString(strings.TrimSpace(raw[0]))
	case reflect.Int:
		n, err := strconv.Atoi(strings.TrimSpace(raw[0]))
		if err != nil {
			return errors.New("must be an integer")
		}
		v.SetInt(int64(n))
	case reflect.Float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw[0]), 64)
		if err != nil {
			return errors.New("must be a number")
		}
		v.SetFloat(f)
	case reflect.Slice:
		var items []string
		for _, r := range raw {
			for _, part := range strings.Split(r, ",") {
				if part = strings.TrimSpace(part); part != "" {
					items = append(items, part)
				}
			}
		}
		v.Set(reflect.ValueOf(items))
	default:
		return fmt.Errorf("unsupported kind %s", v.Kind())
	}
	return nil
}

func validationErrors(err error) []FieldError {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []FieldError{{Code: "ERR_UNKNOWN", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, FieldError{
			Field:   fe.Field(),
			Code:    "ERR_" + strings.ToUpper(fe.Tag()),
			Message: fieldMessage(fe),
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func respondInvalid(w http.ResponseWriter, errs []FieldError) {
	respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"error":  "invalid request parameters",
		"fields": errs,
	})
}
