// Package api provides the HTTP API server implementation for the OrderStream
// service.
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/orderstream-io/orderstream/internal/config"
	"github.com/orderstream-io/orderstream/internal/storage"
)

const (
	defaultPort           int    = 3002
	maxPort               int    = 65535
	defaultHost           string = "0.0.0.0"
	defaultBatchSize      int    = 100
	maxBatchSize          int    = 1000
	defaultCORSMaxAge     int    = 86400
	defaultReadTimeout           = 30 * time.Second
	defaultShutdownTimeout       = 30 * time.Second
	defaultLogLevel              = slog.LevelInfo
	defaultMaxRequestSize int64  = 10485760 // 10 MB (1000 orders with headroom)
	defaultSSEHeartbeat          = 30 * time.Second
)

// DefaultConfigPath is the default location for the optional configuration
// file overlay. Hidden-file convention, same as .eslintrc and friends.
const DefaultConfigPath = ".orderstream.yaml"

// ConfigPathEnvVar is the environment variable naming a custom config path.
const ConfigPathEnvVar = "ORDERSTREAM_CONFIG_PATH"

var (
	// ErrInvalidPort indicates the port number is outside valid range (1-65535).
	ErrInvalidPort = errors.New("invalid port")

	// ErrEmptyHost indicates the server host address is empty.
	ErrEmptyHost = errors.New("host cannot be empty")

	// ErrInvalidReadTimeout indicates the read timeout is zero or negative.
	ErrInvalidReadTimeout = errors.New("read timeout must be positive")

	// ErrInvalidShutdownTimeout indicates the shutdown timeout is zero or negative.
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")

	// ErrInvalidMaxRequestSize indicates the max request size is zero or negative.
	ErrInvalidMaxRequestSize = errors.New("max request size must be positive")

	// ErrInvalidHeartbeat indicates the SSE heartbeat interval is zero or negative.
	ErrInvalidHeartbeat = errors.New("SSE heartbeat interval must be positive")
)

type (
	// ServerConfig holds HTTP server configuration.
	// Pure configuration only - no runtime dependencies.
	//
	// There is deliberately no server-wide write timeout: the SSE stream
	// endpoint holds its response open indefinitely.
	ServerConfig struct {
		Port            int
		Host            string
		BatchSize       int
		ReadTimeout     time.Duration
		ShutdownTimeout time.Duration
		LogLevel        slog.Level
		MaxRequestSize  int64
		SSEHeartbeat    time.Duration

		OrderCacheTTL    time.Duration
		OrderCacheSweep  time.Duration
		IdempotencyTTL   time.Duration
		IdempotencySweep time.Duration

		CORSAllowedOrigins []string
		CORSAllowedMethods []string
		CORSAllowedHeaders []string
		CORSMaxAge         int
	}

	// CORSConfig holds CORS configuration options.
	// This is defined here to keep CORS configuration centralized.
	CORSConfig struct {
		AllowedOrigins []string
		AllowedMethods []string
		AllowedHeaders []string
		MaxAge         int
	}

	// fileConfig is the optional YAML overlay. Pointer fields distinguish
	// "absent" from zero values; only fields present in the file override the
	// environment.
	fileConfig struct {
		Port           *int    `yaml:"port"`
		Host           *string `yaml:"host"`
		BatchSize      *int    `yaml:"batch_size"`
		ReadTimeout    *string `yaml:"read_timeout"`
		SSEHeartbeat   *string `yaml:"sse_heartbeat"`
		OrderCacheTTL  *string `yaml:"order_cache_ttl"`
		IdempotencyTTL *string `yaml:"idempotency_ttl"`
	}
)

// LoadServerConfig loads server configuration from environment variables with
// sensible defaults, then applies the optional YAML file overlay. A missing
// or malformed file degrades gracefully to the environment values.
func LoadServerConfig() *ServerConfig {
	cfg := &ServerConfig{
		Port:            config.GetEnvInt("PORT", defaultPort),
		Host:            config.GetEnvStr("HOST", defaultHost),
		BatchSize:       clampBatchSize(config.GetEnvInt("BATCH_SIZE", defaultBatchSize)),
		ReadTimeout:     config.GetEnvDuration("READ_TIMEOUT", defaultReadTimeout),
		ShutdownTimeout: config.GetEnvDuration("SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		LogLevel:        config.GetEnvLogLevel("LOG_LEVEL", defaultLogLevel),
		MaxRequestSize:  config.GetEnvInt64("MAX_REQUEST_SIZE", defaultMaxRequestSize),
		SSEHeartbeat:    config.GetEnvDuration("SSE_HEARTBEAT_INTERVAL", defaultSSEHeartbeat),

		OrderCacheTTL:    config.GetEnvDuration("ORDER_CACHE_TTL", storage.DefaultOrderCacheTTL),
		OrderCacheSweep:  config.GetEnvDuration("ORDER_CACHE_SWEEP_INTERVAL", storage.DefaultOrderCacheSweep),
		IdempotencyTTL:   config.GetEnvDuration("IDEMPOTENCY_TTL", storage.DefaultIdempotencyTTL),
		IdempotencySweep: config.GetEnvDuration("IDEMPOTENCY_SWEEP_INTERVAL", storage.DefaultIdempotencySweep),

		CORSAllowedOrigins: config.ParseCommaSeparatedList(
			config.GetEnvStr("CORS_ALLOWED_ORIGINS", "*"),
		), // "*" is a development default - restrict in production
		CORSAllowedMethods: config.ParseCommaSeparatedList(
			config.GetEnvStr("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
		),
		CORSAllowedHeaders: config.ParseCommaSeparatedList(
			config.GetEnvStr("CORS_ALLOWED_HEADERS", "Content-Type,Idempotency-Key,X-Correlation-ID"),
		),
		CORSMaxAge: config.GetEnvInt("CORS_MAX_AGE", defaultCORSMaxAge),
	}

	applyFileOverlay(cfg, config.GetEnvStr(ConfigPathEnvVar, DefaultConfigPath))

	return cfg
}

// applyFileOverlay merges the optional YAML config file into cfg.
// Missing files are expected; unreadable or unparsable files log a warning
// and leave cfg untouched.
func applyFileOverlay(cfg *ServerConfig, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("Config file not found, using environment configuration",
				slog.String("path", path))

			return
		}

		slog.Warn("Failed to read config file, using environment configuration",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return
	}

	if len(data) == 0 {
		return
	}

	var overlay fileConfig
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		slog.Warn("Failed to parse config file, using environment configuration",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return
	}

	if overlay.Port != nil {
		cfg.Port = *overlay.Port
	}

	if overlay.Host != nil {
		cfg.Host = *overlay.Host
	}

	if overlay.BatchSize != nil {
		cfg.BatchSize = clampBatchSize(*overlay.BatchSize)
	}

	overlayDuration(&cfg.ReadTimeout, overlay.ReadTimeout)
	overlayDuration(&cfg.SSEHeartbeat, overlay.SSEHeartbeat)
	overlayDuration(&cfg.OrderCacheTTL, overlay.OrderCacheTTL)
	overlayDuration(&cfg.IdempotencyTTL, overlay.IdempotencyTTL)
}

// overlayDuration parses an optional duration string into dst, ignoring
// absent or malformed values.
func overlayDuration(dst *time.Duration, raw *string) {
	if raw == nil {
		return
	}

	if d, err := time.ParseDuration(*raw); err == nil {
		*dst = d
	}
}

// clampBatchSize forces the default chunk size into [1, 1000].
func clampBatchSize(n int) int {
	if n < 1 {
		return 1
	}

	if n > maxBatchSize {
		return maxBatchSize
	}

	return n
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ToCORSConfig converts ServerConfig CORS fields to middleware.CORSConfig.
func (c *ServerConfig) ToCORSConfig() *CORSConfig {
	return &CORSConfig{
		AllowedOrigins: c.CORSAllowedOrigins,
		AllowedMethods: c.CORSAllowedMethods,
		AllowedHeaders: c.CORSAllowedHeaders,
		MaxAge:         c.CORSMaxAge,
	}
}

// GetAllowedOrigins returns the allowed origins for CORS.
func (c *CORSConfig) GetAllowedOrigins() []string {
	return c.AllowedOrigins
}

// GetAllowedMethods returns the allowed methods for CORS.
func (c *CORSConfig) GetAllowedMethods() []string {
	return c.AllowedMethods
}

// GetAllowedHeaders returns the allowed headers for CORS.
func (c *CORSConfig) GetAllowedHeaders() []string {
	return c.AllowedHeaders
}

// GetMaxAge returns the max age for CORS preflight cache.
func (c *CORSConfig) GetMaxAge() int {
	return c.MaxAge
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > maxPort {
		return fmt.Errorf("%w: %d, must be between 1 and %d", ErrInvalidPort, c.Port, maxPort)
	}

	if c.Host == "" {
		return ErrEmptyHost
	}

	if c.ReadTimeout <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidReadTimeout, c.ReadTimeout)
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidShutdownTimeout, c.ShutdownTimeout)
	}

	if c.MaxRequestSize <= 0 {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidMaxRequestSize, c.MaxRequestSize)
	}

	if c.SSEHeartbeat <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidHeartbeat, c.SSEHeartbeat)
	}

	return nil
}
