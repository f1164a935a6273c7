package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/freightcast/backend/internal/api"
	"github.com/wonny/freightcast/backend/internal/api/handlers"
	"github.com/wonny/freightcast/backend/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `운임 조회 REST API 서버를 시작합니다.

Endpoints:
  GET  /                          - 서비스 정보
  GET  /health                    - Health check (DB)
  GET  /api/predict               - 다음날 운임 예측 (?route=&weight_kg=)
  POST /api/bulk-predict          - 여러 노선 일괄 예측 (?routes=&weight_kg=)
  GET  /api/historical/{route}    - 노선 일별 이력 (?days=30)
  GET  /api/carriers/{carrier}    - 운송사 통계
  GET  /api/routes                - 노선 통계 목록
  GET  /api/forecasts/{route}     - 저장된 예측 (?days=7)

Example:
  go run ./cmd/freight api
  go run ./cmd/freight api --port 8000`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== freightcast API Server ===")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	handler := handlers.NewFreightHandler(handlers.FreightDeps{
		Queries:      a.shipments,
		Predictions:  a.predictions,
		Predictor:    a.forecaster,
		Database:     a.db,
		Cache:        a.cache,
		CacheTTL:     a.cfg.API.CacheTTL,
		ModelVersion: a.cfg.Forecast.ModelVersion,
	}, a.log.Zerolog())

	var limiter api.Limiter
	if a.redis.Enabled() {
		limiter = api.NewRedisLimiter(redis.NewRateLimiter(a.redis, cachePrefix), a.cfg.API.RateLimitPerMinute)
	} else if a.cfg.API.RateLimitPerMinute > 0 {
		limiter = api.NewLocalLimiter(a.cfg.API.RateLimitPerMinute)
	}

	router := api.NewRouter(handler, api.RouterConfig{
		Limiter:            limiter,
		RateLimitPerMinute: a.cfg.API.RateLimitPerMinute,
		Observer:           a.metrics,
	}, a.log.Zerolog())

	server := api.New(a.cfg, a.log.Zerolog(), router)
	stopMetrics := a.startMetricsServer()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-quit:
	}

	a.log.Info("Shutting down server...")
	shutdownCtx, cancel := shutdownContext()
	defer cancel()

	stopMetrics(shutdownCtx)
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
