// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir       string  // Base directory for all databases (always absolute)
	LogLevel      string  // debug, info, warn, error
	Port          int     // HTTP listen port
	DevMode       bool    // Pretty logging, permissive CORS
	PercentageCap float64 // Upper bound for global adjustment percentages
	WorkspaceTTL  time.Duration
	Export        ExportConfig
}

// ExportConfig holds audit export upload settings. Uploads are disabled
// unless S3Bucket is set.
type ExportConfig struct {
	Dir      string // Local directory for generated export files
	S3Bucket string
	S3Region string
	S3Prefix string // Key prefix inside the bucket (e.g., "forecastdesk/audit")
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("FORECASTDESK_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory %q: %w", dataDir, err)
	}

	port, err := getEnvInt("FORECASTDESK_PORT", 8090)
	if err != nil {
		return nil, err
	}

	cap, err := getEnvFloat("FORECASTDESK_PERCENTAGE_CAP", 50)
	if err != nil {
		return nil, err
	}
	if cap <= 0 || cap > 100 {
		return nil, fmt.Errorf("FORECASTDESK_PERCENTAGE_CAP must be in (0, 100], got %v", cap)
	}

	ttlMinutes, err := getEnvInt("FORECASTDESK_WORKSPACE_TTL_MINUTES", 240)
	if err != nil {
		return nil, err
	}
	if ttlMinutes <= 0 {
		return nil, fmt.Errorf("FORECASTDESK_WORKSPACE_TTL_MINUTES must be positive, got %d", ttlMinutes)
	}

	cfg := &Config{
		DataDir:       absDataDir,
		LogLevel:      getEnv("FORECASTDESK_LOG_LEVEL", "info"),
		Port:          port,
		DevMode:       getEnv("FORECASTDESK_DEV_MODE", "false") == "true",
		PercentageCap: cap,
		WorkspaceTTL:  time.Duration(ttlMinutes) * time.Minute,
		Export: ExportConfig{
			Dir:      getEnv("FORECASTDESK_EXPORT_DIR", filepath.Join(absDataDir, "exports")),
			S3Bucket: getEnv("FORECASTDESK_EXPORT_S3_BUCKET", ""),
			S3Region: getEnv("FORECASTDESK_EXPORT_S3_REGION", "eu-central-1"),
			S3Prefix: getEnv("FORECASTDESK_EXPORT_S3_PREFIX", "audit"),
		},
	}
	return cfg, nil
}

// AuditDBPath returns the path of the append-only audit database
func (c *Config) AuditDBPath() string {
	return filepath.Join(c.DataDir, "audit.db")
}

// CacheDBPath returns the path of the ephemeral snapshot cache database
func (c *Config) CacheDBPath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q: %w", key, value, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q: %w", key, value, err)
	}
	return f, nil
}
