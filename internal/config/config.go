// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Reconcile ReconcileConfig
	Storage   StorageConfig
	Upload    UploadConfig
	History   HistoryConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 60s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"60s"`

	// WriteTimeout is the maximum duration for writing response (default: 0, runs are long)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// ReconcileConfig holds engine tuning.
type ReconcileConfig struct {
	RowMatchThreshold      int           `env:"ROW_MATCH_THRESHOLD" default:"2"`
	HeaderMatchThreshold   float64       `env:"HEADER_MATCH_THRESHOLD" default:"0.5"`
	EnableWraparound       bool          `env:"ENABLE_WRAPAROUND_SEARCH" default:"true"`
	MaxHeaderScanRows      int           `env:"MAX_HEADER_SCAN_ROWS" default:"20"`
	FuzzyMatchThreshold    float64       `env:"FUZZY_MATCH_THRESHOLD" default:"0.8"`
	KeyColumn              string        `env:"KEY_COLUMN" default:"序号"`
	Strategy               string        `env:"MATCH_STRATEGY" default:"auto"`
	HeaderFallbackFirstRow bool          `env:"HEADER_FALLBACK_FIRST_ROW" default:"false"`
	OutputSuffix           string        `env:"OUTPUT_SUFFIX" default:"(修改后)"`
	RunTimeout             time.Duration `env:"RUN_TIMEOUT" default:"5m"`

	// VocabularyFile is an optional YAML file of header keywords
	VocabularyFile string `env:"VOCABULARY_FILE"`
}

// StorageConfig holds file locations and retention.
type StorageConfig struct {
	// UploadDir receives uploaded workbooks (default: data/uploads)
	UploadDir string `env:"UPLOAD_DIR" default:"data/uploads"`

	// OutputDir receives corrected copies (default: data/output)
	OutputDir string `env:"OUTPUT_DIR" default:"data/output"`

	// FileRetention is how long uploads and outputs are kept (default: 24h)
	FileRetention time.Duration `env:"FILE_RETENTION" default:"24h"`

	// CleanupInterval is how often the cleanup job runs (default: 1h)
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" default:"1h"`
}

// UploadConfig holds workbook upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed workbook size in bytes (default: 50MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"52428800"`

	// MaxConcurrent is the maximum number of parallel runs (default: 4)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for a run slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`
}

// HistoryConfig selects the run history backend.
type HistoryConfig struct {
	// Driver is memory, sqlite or postgres (default: sqlite)
	Driver string `env:"HISTORY_DRIVER" default:"sqlite"`

	// DSN is the sqlite file path or the postgres connection string.
	// DATABASE_URL is accepted for postgres deployments.
	DSN string `env:"HISTORY_DSN" envAlt:"DATABASE_URL" default:"data/history.db"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the rate limit per IP (default: 60)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"60"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey enables X-API-Key checks on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
