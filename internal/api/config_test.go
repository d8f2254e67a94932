package api

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	// Point the overlay at a path that does not exist so only environment
	// defaults apply.
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "absent.yaml"))

	cfg := LoadServerConfig()

	assert.Equal(t, 3002, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.SSEHeartbeat)
	assert.Equal(t, 5*time.Minute, cfg.OrderCacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)

	assert.NoError(t, cfg.Validate())
}

func TestLoadServerConfigFromEnv(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("PORT", "9090")
	t.Setenv("BATCH_SIZE", "250")
	t.Setenv("ORDER_CACHE_TTL", "90s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg := LoadServerConfig()

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 250, cfg.BatchSize)
	assert.Equal(t, 90*time.Second, cfg.OrderCacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestLoadServerConfigBatchSizeClamped(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("BATCH_SIZE", "5000")

	cfg := LoadServerConfig()
	assert.Equal(t, maxBatchSize, cfg.BatchSize)

	t.Setenv("BATCH_SIZE", "-3")

	cfg = LoadServerConfig()
	assert.Equal(t, 1, cfg.BatchSize)
}

func TestConfigFileOverlay(t *testing.T) {
	t.Run("file values override environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "orderstream.yaml")
		require.NoError(t, os.WriteFile(path, []byte(
			"port: 8080\nbatch_size: 50\nsse_heartbeat: 10s\n"), 0o600))

		t.Setenv(ConfigPathEnvVar, path)
		t.Setenv("PORT", "9090")

		cfg := LoadServerConfig()

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, 50, cfg.BatchSize)
		assert.Equal(t, 10*time.Second, cfg.SSEHeartbeat)
		// Fields absent from the file keep their environment values.
		assert.Equal(t, "0.0.0.0", cfg.Host)
	})

	t.Run("malformed file degrades to environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "orderstream.yaml")
		require.NoError(t, os.WriteFile(path, []byte("port: [not a number"), 0o600))

		t.Setenv(ConfigPathEnvVar, path)
		t.Setenv("PORT", "9090")

		cfg := LoadServerConfig()
		assert.Equal(t, 9090, cfg.Port)
	})

	t.Run("empty file is a no-op", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "orderstream.yaml")
		require.NoError(t, os.WriteFile(path, nil, 0o600))

		t.Setenv(ConfigPathEnvVar, path)

		cfg := LoadServerConfig()
		assert.Equal(t, 3002, cfg.Port)
	})
}

func TestServerConfigValidate(t *testing.T) {
	valid := func() *ServerConfig {
		return &ServerConfig{
			Port:            3002,
			Host:            "0.0.0.0",
			BatchSize:       100,
			ReadTimeout:     time.Second,
			ShutdownTimeout: time.Second,
			MaxRequestSize:  1024,
			SSEHeartbeat:    time.Second,
		}
	}

	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("bad port", func(t *testing.T) {
		cfg := valid()
		cfg.Port = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidPort)

		cfg.Port = 70000
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidPort)
	})

	t.Run("empty host", func(t *testing.T) {
		cfg := valid()
		cfg.Host = ""
		assert.ErrorIs(t, cfg.Validate(), ErrEmptyHost)
	})

	t.Run("non-positive timeouts", func(t *testing.T) {
		cfg := valid()
		cfg.ReadTimeout = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidReadTimeout)

		cfg = valid()
		cfg.ShutdownTimeout = -time.Second
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidShutdownTimeout)

		cfg = valid()
		cfg.SSEHeartbeat = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidHeartbeat)
	})

	t.Run("non-positive request size", func(t *testing.T) {
		cfg := valid()
		cfg.MaxRequestSize = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidMaxRequestSize)
	})
}

func TestServerConfigAddress(t *testing.T) {
	cfg := &ServerConfig{Host: "127.0.0.1", Port: 8080}
	assert.Equal(t, "127.0.0.1:8080", cfg.Address())
}
