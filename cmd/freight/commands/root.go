package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	envFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "freight",
	Short: "freightcast - 노선별 운임 예측 시스템",
	Long: `freightcast Unified CLI

S3 원본 CSV 적재 → 정제 → 노선별 ARIMA 학습 → 예측 저장 → 조회 API.

Usage:
  go run ./cmd/freight [command]

Examples:
  go run ./cmd/freight api
  go run ./cmd/freight etl run
  go run ./cmd/freight forecast predict --route LAX-NYC
  go run ./cmd/freight scheduler start
  go run ./cmd/freight test-db`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			return os.Setenv("LOG_LEVEL", "debug")
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load before .env lookup")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
