// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and POWERWATCH_ environment variables on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/text/language"

	"github.com/okian/powerwatch/pkg/logger"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text, json or tint.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file. Empty keeps everything in memory.
	DBPath string `koanf:"db_path"`

	// ImportQueueSize bounds the pending import batches.
	ImportQueueSize int `koanf:"import_queue_size"`

	// WorkerCount sets the number of import workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many import batch ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// Locale drives number grouping in rendered magnitudes.
	Locale string `koanf:"locale"`

	// AdminToken and RecruiterToken grant write capabilities. Empty
	// disables the capability.
	AdminToken     string `koanf:"admin_token"`
	RecruiterToken string `koanf:"recruiter_token"`

	// CORSOrigins lists allowed browser origins. Empty allows any.
	CORSOrigins []string `koanf:"cors_origins"`

	// ShutdownTimeoutMS bounds graceful shutdown.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms"`

	// MetricsEnabled switches the Prometheus recorders on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsRefreshMS is the period background gauge updaters run at.
	MetricsRefreshMS int `koanf:"metrics_refresh_ms"`
}

// New creates a Config holding the defaults. Context is accepted first to
// satisfy the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         logger.FormatText,
		Addr:              ":9080",
		ImportQueueSize:   64,
		WorkerCount:       runtime.NumCPU(),
		DedupeSize:        10_000,
		Locale:            "en",
		ShutdownTimeoutMS: 10_000,
		MetricsEnabled:    true,
		MetricsRefreshMS:  10_000,
	}
}

// ShutdownTimeout returns ShutdownTimeoutMS as a duration.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// MetricsRefresh returns MetricsRefreshMS as a duration.
func (c *Config) MetricsRefresh() time.Duration {
	return time.Duration(c.MetricsRefreshMS) * time.Millisecond
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ImportQueueSize <= 0:
		return fmt.Errorf("%w: import_queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.DedupeSize <= 0:
		return fmt.Errorf("%w: dedupe_size must be positive", ErrInvalidConfig)
	case c.ShutdownTimeoutMS <= 0:
		return fmt.Errorf("%w: shutdown_timeout_ms must be positive", ErrInvalidConfig)
	case c.MetricsRefreshMS <= 0:
		return fmt.Errorf("%w: metrics_refresh_ms must be positive", ErrInvalidConfig)
	}
	switch c.LogFormat {
	case logger.FormatText, logger.FormatJSON, logger.FormatTint:
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if _, err := language.Parse(c.Locale); err != nil {
		return fmt.Errorf("%w: locale %q: %v", ErrInvalidConfig, c.Locale, err)
	}
	return nil
}
