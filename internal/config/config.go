// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultPricesSource is the CSV file read when no source is configured.
const DefaultPricesSource = "prices.csv"

// Config holds application configuration
type Config struct {
	PricesSource    string // CSV path, sqlite://path or s3://bucket/key
	Steps           int    // Grid points evaluated over [0, 1]
	Workers         int    // 0 evaluates the grid sequentially
	Port            int
	RefreshSchedule string // Cron expression for the background refresh, empty disables it
	LogLevel        string
	LogPretty       bool
	S3              S3Config
}

// S3Config holds object storage settings for s3:// price sources
type S3Config struct {
	Region          string
	Endpoint        string // Custom endpoint (MinIO, R2); forces path-style addressing
	AccessKeyID     string
	SecretAccessKey string
}

// HasStaticCredentials reports whether explicit keys were configured.
// Without them the SDK default credential chain is used.
func (c S3Config) HasStaticCredentials() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		PricesSource:    getEnv("BLEND_PRICES_SOURCE", DefaultPricesSource),
		Steps:           getEnvAsInt("BLEND_STEPS", 101),
		Workers:         getEnvAsInt("BLEND_WORKERS", 0),
		Port:            getEnvAsInt("BLEND_PORT", 8001),
		RefreshSchedule: strings.TrimSpace(getEnv("BLEND_REFRESH_SCHEDULE", "")),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogPretty:       getEnvAsBool("LOG_PRETTY", true),
		S3: S3Config{
			Region:          getEnv("BLEND_S3_REGION", "us-east-1"),
			Endpoint:        getEnv("BLEND_S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("BLEND_S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("BLEND_S3_SECRET_ACCESS_KEY", ""),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if strings.TrimSpace(c.PricesSource) == "" {
		return fmt.Errorf("prices source must not be empty")
	}
	if c.Steps < 2 {
		return fmt.Errorf("steps must be at least 2, got %d", c.Steps)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	if (c.S3.AccessKeyID == "") != (c.S3.SecretAccessKey == "") {
		return fmt.Errorf("both BLEND_S3_ACCESS_KEY_ID and BLEND_S3_SECRET_ACCESS_KEY must be set together")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
