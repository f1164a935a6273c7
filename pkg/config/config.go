package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Object storage
	S3 S3Config

	// Forecasting
	Forecast ForecastConfig

	// Scheduler
	Scheduler SchedulerConfig

	// API
	API APIConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// S3Config holds raw/processed CSV storage configuration
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // MinIO/LocalStack 등 (비어 있으면 AWS)
	UsePathStyle    bool
	AccessKeyID     string // 비어 있으면 기본 credential chain
	SecretAccessKey string
	RawKey          string
	ProcessedPrefix string
}

// ForecastConfig holds route model training configuration
type ForecastConfig struct {
	P               int
	D               int
	Q               int
	Horizon         int
	RouteLimit      int
	MinRouteHistory int
	ModelVersion    string
	Workers         int
	FitTimeout      time.Duration

	// 선택: YAML 모델 파일 (값 덮어쓰기 + 해시를 버전에 부착)
	ModelFile string
	ModelHash string
}

// SchedulerConfig holds cron specs (seconds field included)
type SchedulerConfig struct {
	ETLSpec     string
	MetricsSpec string
	JobTimeout  time.Duration
}

// APIConfig holds HTTP API limits
type APIConfig struct {
	RateLimitPerMinute int
	CacheTTL           time.Duration
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		S3: S3Config{
			Bucket:          getEnv("S3_BUCKET", "freight-rate-data"),
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			UsePathStyle:    getEnvAsBool("S3_USE_PATH_STYLE", false),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			RawKey:          getEnv("S3_RAW_KEY", "raw/freight_data.csv"),
			ProcessedPrefix: getEnv("S3_PROCESSED_PREFIX", "processed"),
		},

		Forecast: ForecastConfig{
			P:               getEnvAsInt("FORECAST_ORDER_P", 1),
			D:               getEnvAsInt("FORECAST_ORDER_D", 1),
			Q:               getEnvAsInt("FORECAST_ORDER_Q", 1),
			Horizon:         getEnvAsInt("FORECAST_HORIZON", 7),
			RouteLimit:      getEnvAsInt("FORECAST_ROUTE_LIMIT", 5),
			MinRouteHistory: getEnvAsInt("FORECAST_MIN_ROUTE_HISTORY", 30),
			ModelVersion:    getEnv("FORECAST_MODEL_VERSION", "v1"),
			Workers:         getEnvAsInt("FORECAST_WORKERS", 2),
			FitTimeout:      getEnvAsDuration("FORECAST_FIT_TIMEOUT", "30s"),
			ModelFile:       getEnv("FORECAST_MODEL_FILE", ""),
		},

		Scheduler: SchedulerConfig{
			ETLSpec:     getEnv("SCHEDULER_ETL_SPEC", "0 0 6 * * *"),
			MetricsSpec: getEnv("SCHEDULER_METRICS_SPEC", "0 0 * * * *"),
			JobTimeout:  getEnvAsDuration("SCHEDULER_JOB_TIMEOUT", "30m"),
		},

		API: APIConfig{
			RateLimitPerMinute: getEnvAsInt("API_RATE_LIMIT_PER_MINUTE", 120),
			CacheTTL:           getEnvAsDuration("API_CACHE_TTL", "5m"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	if cfg.Forecast.ModelFile != "" {
		if err := cfg.applyModelFile(cfg.Forecast.ModelFile); err != nil {
			return nil, fmt.Errorf("model file: %w", err)
		}
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Database URL is required
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Forecast.P < 0 || c.Forecast.D < 0 || c.Forecast.Q < 0 {
		return fmt.Errorf("FORECAST_ORDER_P/D/Q must be non-negative")
	}

	if c.Forecast.Horizon < 1 {
		return fmt.Errorf("FORECAST_HORIZON must be at least 1")
	}

	if c.Forecast.Workers < 1 {
		return fmt.Errorf("FORECAST_WORKERS must be at least 1")
	}

	return nil
}

// IsProduction reports ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",         // Current directory
		"backend/.env", // From project root
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
