package commands

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"github.com/wonny/freightcast/backend/internal/etl"
	"github.com/wonny/freightcast/backend/internal/forecast"
	"github.com/wonny/freightcast/backend/internal/shipments"
	"github.com/wonny/freightcast/backend/pkg/config"
	"github.com/wonny/freightcast/backend/pkg/database"
	"github.com/wonny/freightcast/backend/pkg/logger"
	"github.com/wonny/freightcast/backend/pkg/metrics"
	"github.com/wonny/freightcast/backend/pkg/objectstore"
	"github.com/wonny/freightcast/backend/pkg/redis"
)

// cachePrefix redis 키 prefix
const cachePrefix = "freightcast"

// app 커맨드 공용 의존성
type app struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *database.DB
	redis       *redis.Client
	cache       *redis.Cache
	metrics     *metrics.Recorder
	shipments   *shipments.Repository
	predictions *forecast.Repository
	forecaster  *forecast.Service
}

// newApp loads config and connects to postgres and redis.
func newApp(ctx context.Context) (*app, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	db, err := database.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	rdb, err := redis.New(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	a := &app{
		cfg:         cfg,
		log:         log,
		db:          db,
		redis:       rdb,
		cache:       redis.NewCache(rdb, cachePrefix),
		metrics:     metrics.New(),
		shipments:   shipments.NewRepository(db.Pool),
		predictions: forecast.NewRepository(db.Pool),
	}
	a.forecaster = forecast.NewService(
		serviceConfig(cfg.Forecast),
		a.shipments,
		a.predictions,
		log.Zerolog(),
		forecast.WithRecorder(a.metrics),
	)

	log.WithFields(map[string]interface{}{
		"env":   cfg.Env,
		"redis": rdb.Enabled(),
		"order": a.forecaster.Config().Order.String(),
	}).Debug("Dependencies initialized")

	return a, nil
}

func (a *app) close() {
	_ = a.redis.Close()
	a.db.Close()
}

// pipeline builds the ETL pipeline; S3 is only needed here.
func (a *app) pipeline(ctx context.Context) (*etl.Pipeline, error) {
	store, err := objectstore.NewS3(ctx, a.cfg.S3)
	if err != nil {
		return nil, fmt.Errorf("init s3: %w", err)
	}

	return etl.NewPipeline(
		etl.PipelineConfig{RawKey: a.cfg.S3.RawKey, ProcessedPrefix: a.cfg.S3.ProcessedPrefix},
		a.db,
		store,
		a.shipments,
		a.forecaster,
		a.log.Zerolog(),
		etl.WithCache(a.cache),
		etl.WithStepRecorder(a.metrics),
	), nil
}

// startMetricsServer exposes /metrics when enabled. The returned func stops it.
func (a *app) startMetricsServer() func(context.Context) {
	if !a.cfg.MetricsEnabled {
		return func(context.Context) {}
	}

	srv := a.metrics.Server(":" + a.cfg.MetricsPort)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.WithError(err).Error("Metrics server failed")
		}
	}()
	a.log.WithField("port", a.cfg.MetricsPort).Info("Metrics server started")

	return func(ctx context.Context) { _ = srv.Shutdown(ctx) }
}

func serviceConfig(fc config.ForecastConfig) forecast.ServiceConfig {
	return forecast.ServiceConfig{
		Order:           forecast.Order{P: fc.P, D: fc.D, Q: fc.Q},
		Horizon:         fc.Horizon,
		RouteLimit:      fc.RouteLimit,
		MinRouteHistory: fc.MinRouteHistory,
		ModelVersion:    fc.ModelVersion,
		Workers:         fc.Workers,
		FitTimeout:      fc.FitTimeout,
	}
}

func shutdownContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
