// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package config holds chrisql runtime configuration.
//
// A Config starts from DefaultConfig, may be loaded from a YAML file with
// Load, and is adjusted with functional options. Command-line flags are
// applied as options on top of the file so they always win.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends
const (
	// BackendFS stores one file per record under DataDir.
	BackendFS = "fs"
	// BackendBadger stores records in an embedded BadgerDB under DataDir.
	BackendBadger = "badger"
)

// ValidBackends lists the accepted Backend values.
var ValidBackends = []string{BackendFS, BackendBadger}

// ValidLogLevels lists the accepted LogLevel values.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// ErrInvalidConfig indicates a configuration failed validation or could not be loaded.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds configuration for a chrisql database and its tools.
type Config struct {
	// DataDir is the database root directory. Relative paths resolve
	// against the working directory.
	DataDir string `yaml:"data_dir"`

	// Backend selects the record store implementation: "fs" or "badger".
	// Default: "fs"
	Backend string `yaml:"backend"`

	// LogLevel is one of debug, info, warn, error.
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// CacheSize is the read cache capacity in bytes. Zero disables caching.
	CacheSize int64 `yaml:"cache_size"`

	// Import configures bulk imports.
	Import ImportConfig `yaml:"import"`
}

// ImportConfig holds configuration for bulk imports.
type ImportConfig struct {
	// PoolSize is the number of concurrent record writers.
	// Default: runtime.NumCPU() / 2, with a minimum of 1
	PoolSize int `yaml:"pool_size"`

	// MaxRetries is the maximum number of attempts per record write
	MaxRetries int `yaml:"max_retries"`

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration `yaml:"retry_delay"`

	// ReportInterval is how often to report progress (number of records)
	ReportInterval int `yaml:"report_interval"`
}

// Option is a functional option for configuring a Config.
type Option func(*Config)

// WithDataDir sets the database root directory.
func WithDataDir(dir string) Option {
	return func(c *Config) {
		c.DataDir = dir
	}
}

// WithBackend sets the record store backend.
func WithBackend(backend string) Option {
	return func(c *Config) {
		c.Backend = backend
	}
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) Option {
	return func(c *Config) {
		c.LogLevel = level
	}
}

// WithCacheSize sets the read cache capacity in bytes.
func WithCacheSize(size int64) Option {
	return func(c *Config) {
		c.CacheSize = size
	}
}

// WithImportPoolSize sets the number of concurrent import writers.
func WithImportPoolSize(size int) Option {
	return func(c *Config) {
		c.Import.PoolSize = size
	}
}

// WithImportRetries sets the retry policy for import writes.
func WithImportRetries(maxRetries int, delay time.Duration) Option {
	return func(c *Config) {
		c.Import.MaxRetries = maxRetries
		c.Import.RetryDelay = delay
	}
}

// WithImportReportInterval sets how often import progress is reported.
func WithImportReportInterval(interval int) Option {
	return func(c *Config) {
		c.Import.ReportInterval = interval
	}
}

// DefaultConfig returns a Config with sensible defaults for a local database.
func DefaultConfig() *Config {
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	return &Config{
		DataDir:  "data",
		Backend:  BackendFS,
		LogLevel: "info",
		Import: ImportConfig{
			PoolSize:       poolSize,
			MaxRetries:     3,
			RetryDelay:     1 * time.Second,
			ReportInterval: 100,
		},
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithDataDir("/var/lib/chrisql"),
//	    WithBackend(BackendBadger),
//	)
func NewConfig(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Load reads a YAML configuration file over the defaults and then applies opts.
// Unknown keys are rejected. An empty file yields the defaults.
func Load(path string, opts ...Option) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}

	for _, opt := range opts {
		opt(cfg)
	}
	return cfg, nil
}

// Normalize puts string settings in canonical form.
func (c *Config) Normalize() {
	c.DataDir = strings.TrimSpace(c.DataDir)
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir is required", ErrInvalidConfig)
	}
	if !slices.Contains(ValidBackends, c.Backend) {
		return fmt.Errorf("%w: backend %q must be one of %v", ErrInvalidConfig, c.Backend, ValidBackends)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("%w: cache_size must not be negative", ErrInvalidConfig)
	}
	if c.Import.PoolSize < 1 {
		return fmt.Errorf("%w: import.pool_size must be greater than 0", ErrInvalidConfig)
	}
	if c.Import.MaxRetries < 1 {
		return fmt.Errorf("%w: import.max_retries must be greater than 0", ErrInvalidConfig)
	}
	if c.Import.RetryDelay < 0 {
		return fmt.Errorf("%w: import.retry_delay must not be negative", ErrInvalidConfig)
	}
	if c.Import.ReportInterval < 1 {
		return fmt.Errorf("%w: import.report_interval must be greater than 0", ErrInvalidConfig)
	}
	return nil
}

// ParseLogLevel maps a level name to a slog.Level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: invalid log level %q: must be one of %s",
			ErrInvalidConfig, level, strings.Join(ValidLogLevels, ", "))
	}
}
