package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder Prometheus 메트릭 기록기 (인스턴스별 registry)
type Recorder struct {
	registry *prometheus.Registry

	trainingTotal    *prometheus.CounterVec
	trainingDuration *prometheus.HistogramVec
	forecastPoints   prometheus.Counter
	etlStepDuration  *prometheus.HistogramVec
	rowsTotal        *prometheus.CounterVec
	jobRuns          *prometheus.CounterVec
	jobLastSuccess   *prometheus.GaugeVec
	httpDuration     *prometheus.HistogramVec
}

// New creates a recorder with its own registry plus Go/process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		trainingTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freightcast_model_training_total",
				Help: "Route model training attempts by outcome",
			},
			[]string{"status"},
		),
		trainingDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "freightcast_model_training_duration_seconds",
				Help:    "Route model train+forecast duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"status"},
		),
		forecastPoints: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "freightcast_forecast_points_total",
				Help: "Forecast points persisted",
			},
		),
		etlStepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "freightcast_etl_step_duration_seconds",
				Help:    "ETL pipeline step duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"step"},
		),
		rowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freightcast_etl_rows_total",
				Help: "Rows handled by ETL stage",
			},
			[]string{"stage"},
		),
		jobRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "freightcast_scheduler_job_runs_total",
				Help: "Scheduled job runs by result",
			},
			[]string{"job", "result"},
		),
		jobLastSuccess: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "freightcast_scheduler_job_last_success_timestamp",
				Help: "Unix time of the last successful job run",
			},
			[]string{"job"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "freightcast_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method", "class"},
		),
	}
}

// ObserveTraining records one route training outcome.
func (r *Recorder) ObserveTraining(status string, elapsed time.Duration) {
	r.trainingTotal.WithLabelValues(status).Inc()
	r.trainingDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

// AddForecastPoints counts persisted forecast points.
func (r *Recorder) AddForecastPoints(n int) {
	r.forecastPoints.Add(float64(n))
}

// ObserveETLStep records an ETL step duration.
func (r *Recorder) ObserveETLStep(step string, elapsed time.Duration) {
	r.etlStepDuration.WithLabelValues(step).Observe(elapsed.Seconds())
}

// AddRows counts rows handled by an ETL stage (extracted, cleaned, loaded).
func (r *Recorder) AddRows(stage string, n int) {
	r.rowsTotal.WithLabelValues(stage).Add(float64(n))
}

// ObserveJob records a scheduler job run.
func (r *Recorder) ObserveJob(job string, success bool) {
	result := "failure"
	if success {
		result = "success"
		r.jobLastSuccess.WithLabelValues(job).SetToCurrentTime()
	}
	r.jobRuns.WithLabelValues(job, result).Inc()
}

// ObserveHTTP records request latency. route should be a template to keep
// label cardinality low.
func (r *Recorder) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	r.httpDuration.WithLabelValues(route, method, statusClass(status)).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Server returns an HTTP server exposing /metrics on addr.
func (r *Recorder) Server(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "5xx"
	}
	return strconv.Itoa(code/100) + "xx"
}
