package config_test

import (
	"fmt"

	"github.com/wonny/freightcast/backend/pkg/config"
)

// Example demonstrates how to use the config package
func Example() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	// Access configuration values
	fmt.Printf("Server running on port: %s\n", cfg.Port)
	fmt.Printf("Environment: %s\n", cfg.Env)
	fmt.Printf("Raw data: s3://%s/%s\n", cfg.S3.Bucket, cfg.S3.RawKey)
	fmt.Printf("Model: ARIMA(%d,%d,%d) %s\n", cfg.Forecast.P, cfg.Forecast.D, cfg.Forecast.Q, cfg.Forecast.ModelVersion)
}
