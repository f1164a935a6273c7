package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// etlCmd represents the etl command
var etlCmd = &cobra.Command{
	Use:   "etl",
	Short: "ETL 파이프라인",
}

var etlRunCmd = &cobra.Command{
	Use:   "run",
	Short: "ETL 파이프라인 1회 실행",
	Long: `S3 원본 CSV → 검증 → 정제 → 피처 → DB 적재 → 집계 갱신 → 노선 학습 → 가공 CSV 업로드.

Example:
  go run ./cmd/freight etl run`,
	RunE: runETL,
}

func init() {
	rootCmd.AddCommand(etlCmd)
	etlCmd.AddCommand(etlRunCmd)
}

func runETL(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	p, err := a.pipeline(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Scheduler.JobTimeout)
	defer cancel()

	PrintJobHeader("ETL Pipeline", time.Now())
	start := time.Now()

	result, err := p.Run(ctx)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	PrintKeyValue("Run ID", result.RunID, 18)
	PrintKeyValue("Records processed", fmt.Sprintf("%d", result.RecordsProcessed), 18)
	PrintKeyValue("Shipments loaded", fmt.Sprintf("%d", result.ShipmentsLoaded), 18)
	PrintKeyValue("Models trained", fmt.Sprintf("%d", result.ModelsTrained), 18)
	PrintKeyValue("Processed key", result.ProcessedKey, 18)

	if len(result.ValidationIssues) > 0 {
		PrintWarning("Validation issues")
		PrintList(result.ValidationIssues)
	}

	printRouteOutcomes(result.Forecast.Routes)
	PrintCompletion(result.Message, time.Since(start))
	return nil
}
