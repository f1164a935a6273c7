package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counters(t *testing.T) {
	r := New()

	r.ObserveTraining("trained", 120*time.Millisecond)
	r.ObserveTraining("trained", 80*time.Millisecond)
	r.ObserveTraining("fit_failed", 10*time.Millisecond)
	r.AddForecastPoints(14)
	r.AddRows("loaded", 250)
	r.ObserveJob("etl_pipeline", true)
	r.ObserveJob("etl_pipeline", false)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.trainingTotal.WithLabelValues("trained")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.trainingTotal.WithLabelValues("fit_failed")))
	assert.Equal(t, 14.0, testutil.ToFloat64(r.forecastPoints))
	assert.Equal(t, 250.0, testutil.ToFloat64(r.rowsTotal.WithLabelValues("loaded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.jobRuns.WithLabelValues("etl_pipeline", "failure")))
	assert.Greater(t, testutil.ToFloat64(r.jobLastSuccess.WithLabelValues("etl_pipeline")), 0.0)
}

func TestRecorder_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.AddForecastPoints(3)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.forecastPoints))
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.ObserveHTTP("/api/predict", http.MethodGet, http.StatusOK, 15*time.Millisecond)
	r.ObserveETLStep("extract", time.Second)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `freightcast_http_request_duration_seconds_count{class="2xx",method="GET",route="/api/predict"} 1`))
	assert.True(t, strings.Contains(body, `freightcast_etl_step_duration_seconds_count{step="extract"} 1`))
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{200: "2xx", 201: "2xx", 404: "4xx", 503: "5xx", 0: "5xx"}
	for code, want := range tests {
		assert.Equal(t, want, statusClass(code), code)
	}
}
