package contracts

import "time"

// ForecastRunSummary 노선별 학습 실행 결과
type ForecastRunSummary struct {
	RoutesConsidered int            `json:"routes_considered"`
	Trained          int            `json:"models_trained"`
	Skipped          int            `json:"skipped"`
	Failed           int            `json:"failed"`
	PredictionsSaved int            `json:"predictions_saved"`
	ModelVersion     string         `json:"model_version"`
	Duration         time.Duration  `json:"duration"`
	Routes           []RouteOutcome `json:"routes,omitempty"`
}

// RouteOutcome 노선 단위 결과
type RouteOutcome struct {
	Route        string `json:"route"`
	Status       string `json:"status"` // trained / skipped / insufficient_data / fit_failed / error
	Observations int    `json:"observations"`
	Predictions  int    `json:"predictions"`
	Error        string `json:"error,omitempty"`
}

// PipelineResult ETL 파이프라인 실행 결과
type PipelineResult struct {
	RunID            string             `json:"run_id"`
	Message          string             `json:"message"`
	RecordsProcessed int                `json:"records_processed"`
	ShipmentsLoaded  int                `json:"shipments_loaded"`
	ModelsTrained    int                `json:"models_trained"`
	ValidationIssues []string           `json:"validation_issues,omitempty"`
	ProcessedKey     string             `json:"processed_key,omitempty"`
	Forecast         ForecastRunSummary `json:"forecast"`
	Timestamp        time.Time          `json:"timestamp"`
}
