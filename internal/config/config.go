package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kapu/palette-index-go/internal/constants"
)

type Config struct {
	Catalog  CatalogConfig
	HTTP     HTTPConfig
	Palette  PaletteConfig
	Pipeline PipelineConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	Logging  LoggingConfig
}

type CatalogConfig struct {
	BaseURL       string
	SpriteBaseURL string
	PageSize      int
	Limit         int
	Offset        int
}

type HTTPConfig struct {
	Timeout          time.Duration
	MaxRetries       int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	UserAgent        string
	FailureThreshold int
	ResetTimeout     time.Duration
}

type PaletteConfig struct {
	TargetSize     int
	SwatchCount    int
	BucketSize     int
	AlphaThreshold int
}

type PipelineConfig struct {
	Concurrency   int
	ProgressEvery int
	OutputPath    string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

// Enabled reports whether the optional Redis palette tier is configured.
func (r RedisConfig) Enabled() bool {
	return r.Host != ""
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// Enabled reports whether the optional PostgreSQL mirror is configured.
func (p PostgresConfig) Enabled() bool {
	return p.Host != ""
}

type LoggingConfig struct {
	Level string
	File  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Catalog: CatalogConfig{
			BaseURL:       strings.TrimRight(getEnv("CATALOG_BASE_URL", constants.APIConfig.CatalogBaseURL), "/"),
			SpriteBaseURL: strings.TrimRight(getEnv("SPRITE_BASE_URL", constants.APIConfig.SpriteBaseURL), "/"),
			PageSize:      getEnvInt("CATALOG_PAGE_SIZE", constants.APIConfig.CatalogPageSize),
			Limit:         getEnvInt("LIMIT", 0),
			Offset:        getEnvInt("OFFSET", 0),
		},
		HTTP: HTTPConfig{
			Timeout:          time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", int(constants.APIConfig.RequestTimeout/time.Second))) * time.Second,
			MaxRetries:       getEnvInt("HTTP_MAX_RETRIES", constants.RetryConfig.MaxAttempts),
			RetryBaseDelay:   time.Duration(getEnvInt("HTTP_RETRY_BASE_MS", int(constants.RetryConfig.BaseDelay/time.Millisecond))) * time.Millisecond,
			RetryMaxDelay:    time.Duration(getEnvInt("HTTP_RETRY_MAX_MS", int(constants.RetryConfig.MaxDelay/time.Millisecond))) * time.Millisecond,
			UserAgent:        getEnv("USER_AGENT", constants.APIConfig.UserAgent),
			FailureThreshold: getEnvInt("CIRCUIT_FAILURE_THRESHOLD", constants.CircuitBreakerConfig.FailureThreshold),
			ResetTimeout:     time.Duration(getEnvInt("CIRCUIT_RESET_SECONDS", int(constants.CircuitBreakerConfig.ResetTimeout/time.Second))) * time.Second,
		},
		Palette: PaletteConfig{
			TargetSize:     getEnvInt("SIZE", constants.PaletteConfig.TargetSize),
			SwatchCount:    getEnvInt("SWATCHES", constants.PaletteConfig.SwatchCount),
			BucketSize:     getEnvInt("BUCKET_SIZE", constants.PaletteConfig.BucketSize),
			AlphaThreshold: getEnvInt("ALPHA_THRESHOLD", constants.PaletteConfig.AlphaThreshold),
		},
		Pipeline: PipelineConfig{
			Concurrency:   getEnvInt("CONCURRENCY", constants.PipelineConfig.Concurrency),
			ProgressEvery: getEnvInt("PROGRESS_EVERY", constants.PipelineConfig.ProgressEvery),
			OutputPath:    getEnv("OUTPUT_PATH", constants.PipelineConfig.OutputPath),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      time.Duration(getEnvInt("REDIS_TTL_HOURS", int(constants.CacheTTL.Palette/time.Hour))) * time.Hour,
		},
		Postgres: PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", ""),
			Port:     getEnvInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "palette"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Database: getEnv("POSTGRES_DB", "palette_index"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("CATALOG_BASE_URL is required")
	}
	if c.Catalog.PageSize < 1 {
		return fmt.Errorf("CATALOG_PAGE_SIZE must be positive, got %d", c.Catalog.PageSize)
	}
	if c.Catalog.Limit < 0 || c.Catalog.Offset < 0 {
		return fmt.Errorf("LIMIT and OFFSET must not be negative")
	}
	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("CONCURRENCY must be at least 1, got %d", c.Pipeline.Concurrency)
	}
	if c.Pipeline.ProgressEvery < 1 {
		return fmt.Errorf("PROGRESS_EVERY must be at least 1, got %d", c.Pipeline.ProgressEvery)
	}
	if c.Pipeline.OutputPath == "" {
		return fmt.Errorf("OUTPUT_PATH is required")
	}
	if c.Palette.SwatchCount < 1 {
		return fmt.Errorf("SWATCHES must be at least 1, got %d", c.Palette.SwatchCount)
	}
	if c.Palette.TargetSize < 1 {
		return fmt.Errorf("SIZE must be at least 1, got %d", c.Palette.TargetSize)
	}
	if c.Palette.BucketSize < 1 || c.Palette.BucketSize > 256 {
		return fmt.Errorf("BUCKET_SIZE must be within 1..256, got %d", c.Palette.BucketSize)
	}
	if c.Palette.AlphaThreshold < 0 || c.Palette.AlphaThreshold > 255 {
		return fmt.Errorf("ALPHA_THRESHOLD must be within 0..255, got %d", c.Palette.AlphaThreshold)
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("HTTP_MAX_RETRIES must not be negative")
	}
	if c.HTTP.FailureThreshold < 1 {
		return fmt.Errorf("CIRCUIT_FAILURE_THRESHOLD must be at least 1, got %d", c.HTTP.FailureThreshold)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return intVal
		}
	}
	return defaultValue
}
