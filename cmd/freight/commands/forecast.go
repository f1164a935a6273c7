package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/freightcast/backend/internal/contracts"
)

// forecastCmd represents the forecast command
var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "노선별 운임 예측",
	Long: `노선별 ARIMA 모델 학습 및 예측.

Subcommands:
  run      - 상위 노선 학습 + 예측 저장
  predict  - 단일 노선 예측 (저장하지 않음)

Example:
  go run ./cmd/freight forecast run
  go run ./cmd/freight forecast predict --route LAX-NYC --days 14`,
}

var (
	forecastRunCmd = &cobra.Command{
		Use:   "run",
		Short: "상위 노선 학습 + 예측 저장",
		RunE:  runForecast,
	}

	forecastPredictCmd = &cobra.Command{
		Use:   "predict",
		Short: "단일 노선 예측 (저장하지 않음)",
		RunE:  runPredict,
	}

	predictRoute string
	predictDays  int
)

func init() {
	rootCmd.AddCommand(forecastCmd)
	forecastCmd.AddCommand(forecastRunCmd)
	forecastCmd.AddCommand(forecastPredictCmd)

	forecastPredictCmd.Flags().StringVar(&predictRoute, "route", "", "노선 (예: LAX-NYC)")
	forecastPredictCmd.Flags().IntVar(&predictDays, "days", 0, "예측 일수 (기본: FORECAST_HORIZON)")
	_ = forecastPredictCmd.MarkFlagRequired("route")
}

func runForecast(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	PrintJobHeader("Route Forecast", time.Now())

	summary, err := a.forecaster.RunAll(ctx)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintKeyValue("Model version", summary.ModelVersion, 16)
	PrintKeyValue("Routes", fmt.Sprintf("%d", summary.RoutesConsidered), 16)
	PrintKeyValue("Trained", fmt.Sprintf("%d", summary.Trained), 16)
	PrintKeyValue("Skipped", fmt.Sprintf("%d", summary.Skipped), 16)
	PrintKeyValue("Failed", fmt.Sprintf("%d", summary.Failed), 16)
	PrintKeyValue("Predictions", fmt.Sprintf("%d", summary.PredictionsSaved), 16)

	printRouteOutcomes(summary.Routes)
	PrintCompletion("Forecast run completed", summary.Duration)
	return nil
}

func runPredict(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	horizon := predictDays
	if horizon <= 0 {
		horizon = a.cfg.Forecast.Horizon
	}

	points, diag, err := a.forecaster.PredictRoute(ctx, predictRoute, horizon)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintJobHeader("Forecast: "+predictRoute, time.Now())
	PrintKeyValue("Status", string(diag.Status), 14)
	PrintKeyValue("Observations", fmt.Sprintf("%d", diag.Observations), 14)
	if diag.Err != nil {
		PrintKeyValue("Error", diag.Err.Error(), 14)
	}
	PrintSeparator()
	printForecastTable(points)
	return nil
}

func printRouteOutcomes(routes []contracts.RouteOutcome) {
	if len(routes) == 0 {
		return
	}
	fmt.Println()
	widths := []int{16, 18, 6, 6, 30}
	PrintTableHeader([]string{"ROUTE", "STATUS", "OBS", "PRED", "ERROR"}, widths)
	for _, r := range routes {
		PrintTableRow([]string{
			r.Route,
			r.Status,
			fmt.Sprintf("%d", r.Observations),
			fmt.Sprintf("%d", r.Predictions),
			r.Error,
		}, widths)
	}
}

func printForecastTable(points []contracts.ForecastPoint) {
	widths := []int{12, 10, 10, 10}
	PrintTableHeader([]string{"DATE", "RATE", "LOWER", "UPPER"}, widths)
	for _, p := range points {
		PrintTableRow([]string{
			p.Date.Format("2006-01-02"),
			fmt.Sprintf("%.4f", p.PredictedRate),
			fmt.Sprintf("%.4f", p.ConfidenceLower),
			fmt.Sprintf("%.4f", p.ConfidenceUpper),
		}, widths)
	}
}
