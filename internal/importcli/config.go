// Package importcli submits alliance power files to a running powerwatch
// server as import batches.
package importcli

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/spf13/pflag"
)

// Config holds configuration for an import run.
type Config struct {
	BaseURL string        // Base URL of the service
	Token   string        // Admin bearer token
	Date    string        // Date applied to every file; empty reads it from the file name
	BatchID string        // Explicit batch id; only valid with a single file
	Files   []string      // JSON files of [{"tag","name","power"}]
	Workers int           // Concurrent submissions
	Timeout time.Duration // HTTP request timeout
	Verbose bool          // Enable debug logging
}

// TokenEnv is read when --token is not given.
const TokenEnv = "POWERWATCH_ADMIN_TOKEN"

// ParseFlags parses args (without the program name) into a Config.
func ParseFlags(args []string) (*Config, error) {
	cfg := &Config{}
	fs := pflag.NewFlagSet("powerwatch-import", pflag.ContinueOnError)
	fs.StringVarP(&cfg.BaseURL, "url", "u", "http://localhost:9080", "base URL of the service")
	fs.StringVarP(&cfg.Token, "token", "t", "", "admin bearer token (default $"+TokenEnv+")")
	fs.StringVarP(&cfg.Date, "date", "d", "", "snapshot date YYYY-MM-DD (default: taken from each file name)")
	fs.StringVar(&cfg.BatchID, "batch-id", "", "explicit batch id (default: derived from content)")
	fs.IntVarP(&cfg.Workers, "workers", "w", runtime.NumCPU(), "concurrent submissions")
	fs.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "HTTP request timeout")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "enable verbose logging")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: powerwatch-import [flags] FILE...\n\nFlags:\n%s", fs.FlagUsages())
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.Files = fs.Args()
	if cfg.Token == "" {
		cfg.Token = os.Getenv(TokenEnv)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case len(c.Files) == 0:
		return errors.New("at least one file is required")
	case c.Token == "":
		return fmt.Errorf("missing token; use --token or $%s", TokenEnv)
	case c.BatchID != "" && len(c.Files) > 1:
		return errors.New("--batch-id needs exactly one file")
	case c.Workers < 1:
		return errors.New("--workers must be at least 1")
	}
	return nil
}
