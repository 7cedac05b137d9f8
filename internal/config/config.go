// Package config loads process settings from the environment and the
// curation rules from a yaml file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	// Paths
	OutputDir   string `validate:"required"`
	RulesPath   string
	SourcesPath string `validate:"required"`

	// Item cache settings
	CacheBackend  string `validate:"oneof=file memory redis postgres"`
	CacheDir      string
	CacheTTL      time.Duration `validate:"gt=0"`
	RedisAddr     string        `validate:"required_if=CacheBackend redis"`
	RedisPassword string
	RedisDB       int    `validate:"gte=0"`
	DatabaseURL   string `validate:"required_if=CacheBackend postgres"`

	// Gemini settings
	GeminiAPIKey      string
	GeminiModel       string
	UseSentimentAPI   bool
	MaxGeminiRequests int           `validate:"gte=0"` // per day, 0 disables the remote oracle
	SentimentTimeout  time.Duration `validate:"gt=0"`

	// RSS settings
	FetchConcurrency int           `validate:"gte=1"`
	FetchTimeout     time.Duration `validate:"gt=0"`
	MaxAge           time.Duration `validate:"gt=0"`

	// App settings
	Personalize          bool
	LogLevel             string
	Debug                bool
	EnableHTTPMonitoring bool
	MonitoringPort       string `validate:"required_if=EnableHTTPMonitoring true"`
}

var validate = validator.New()

func Load() (*Config, error) {
	cfg := &Config{
		OutputDir:            getEnvOrDefault("OUTPUT_DIR", "output"),
		RulesPath:            os.Getenv("RULES_PATH"),
		SourcesPath:          getEnvOrDefault("SOURCES_PATH", "configs/sources.yaml"),
		CacheBackend:         strings.ToLower(getEnvOrDefault("CACHE_BACKEND", "file")),
		CacheTTL:             time.Duration(getEnvIntOrDefault("CACHE_TTL_SECONDS", 1800)) * time.Second,
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              getEnvIntOrDefault("REDIS_DB", 0),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		UseSentimentAPI:      getEnvBoolOrDefault("USE_SENTIMENT_API", false),
		MaxGeminiRequests:    getEnvIntOrDefault("MAX_GEMINI_REQUESTS", 50),
		SentimentTimeout:     time.Duration(getEnvFloatOrDefault("SENTIMENT_TIMEOUT_SECONDS", 10) * float64(time.Second)),
		FetchConcurrency:     getEnvIntOrDefault("FETCH_CONCURRENCY", 4),
		FetchTimeout:         time.Duration(getEnvIntOrDefault("FETCH_TIMEOUT_SECONDS", 20)) * time.Second,
		MaxAge:               time.Duration(getEnvIntOrDefault("MAX_AGE_DAYS", 7)) * 24 * time.Hour,
		Personalize:          getEnvBoolOrDefault("PERSONALIZE", false),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		Debug:                getEnvBoolOrDefault("DEBUG", false),
		EnableHTTPMonitoring: getEnvBoolOrDefault("ENABLE_HTTP_MONITORING", false),
		MonitoringPort:       getEnvOrDefault("MONITORING_PORT", "8080"),
	}
	cfg.CacheDir = getEnvOrDefault("CACHE_DIR", cfg.OutputDir+"/cache")
	if cfg.Debug && os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = "debug"
	}

	return cfg, cfg.Validate()
}

// SentimentEnabled reports whether the remote oracle should be built.
func (c *Config) SentimentEnabled() bool {
	return c.UseSentimentAPI && c.GeminiAPIKey != "" && c.MaxGeminiRequests > 0
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.UseSentimentAPI && c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required when USE_SENTIMENT_API is set")
	}
	return nil
}
