package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chrisql.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, BackendFS, cfg.Backend)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Zero(t, cfg.CacheSize)
	assert.GreaterOrEqual(t, cfg.Import.PoolSize, 1)
	assert.Equal(t, 3, cfg.Import.MaxRetries)
	assert.Equal(t, time.Second, cfg.Import.RetryDelay)
	assert.Equal(t, 100, cfg.Import.ReportInterval)
	require.NoError(t, cfg.Validate())
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("with options", func(t *testing.T) {
		cfg := NewConfig(
			WithDataDir("/var/lib/chrisql"),
			WithBackend(BackendBadger),
			WithLogLevel("debug"),
			WithCacheSize(1<<20),
			WithImportPoolSize(8),
			WithImportRetries(5, 10*time.Millisecond),
			WithImportReportInterval(10),
		)

		assert.Equal(t, "/var/lib/chrisql", cfg.DataDir)
		assert.Equal(t, BackendBadger, cfg.Backend)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, int64(1<<20), cfg.CacheSize)
		assert.Equal(t, 8, cfg.Import.PoolSize)
		assert.Equal(t, 5, cfg.Import.MaxRetries)
		assert.Equal(t, 10*time.Millisecond, cfg.Import.RetryDelay)
		assert.Equal(t, 10, cfg.Import.ReportInterval)
		require.NoError(t, cfg.Validate())
	})
}

func TestLoad(t *testing.T) {
	path := writeConfigFile(t, `
data_dir: /srv/db
backend: badger
log_level: warn
cache_size: 1048576
import:
  pool_size: 4
  retry_delay: 250ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/db", cfg.DataDir)
	assert.Equal(t, BackendBadger, cfg.Backend)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, int64(1048576), cfg.CacheSize)
	assert.Equal(t, 4, cfg.Import.PoolSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Import.RetryDelay)
	// Unset keys keep their defaults
	assert.Equal(t, 3, cfg.Import.MaxRetries)
	assert.Equal(t, 100, cfg.Import.ReportInterval)
	require.NoError(t, cfg.Validate())
}

func TestLoad_OptionsOverrideFile(t *testing.T) {
	path := writeConfigFile(t, "data_dir: /srv/db\nbackend: badger\n")

	cfg, err := Load(path, WithDataDir("override"), WithBackend(BackendFS))
	require.NoError(t, err)
	assert.Equal(t, "override", cfg.DataDir)
	assert.Equal(t, BackendFS, cfg.Backend)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_UnknownKey(t *testing.T) {
	_, err := Load(writeConfigFile(t, "data_directory: /srv/db\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"empty data dir", WithDataDir("  ")},
		{"unknown backend", WithBackend("sqlite")},
		{"unknown log level", WithLogLevel("verbose")},
		{"negative cache size", WithCacheSize(-1)},
		{"zero pool size", WithImportPoolSize(0)},
		{"zero retries", WithImportRetries(0, time.Second)},
		{"negative retry delay", WithImportRetries(3, -time.Second)},
		{"zero report interval", WithImportReportInterval(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewConfig(tt.opt).Validate()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestValidate_Normalizes(t *testing.T) {
	cfg := NewConfig(WithBackend(" Badger "), WithLogLevel("DEBUG"), WithDataDir(" db "))
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendBadger, cfg.Backend)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "db", cfg.DataDir)
}

func TestParseLogLevel(t *testing.T) {
	levels := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for name, want := range levels {
		got, err := ParseLogLevel(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseLogLevel("trace")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
