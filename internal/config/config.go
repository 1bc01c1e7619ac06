// Package config loads runtime settings from TIDE_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/ngmaloney/tide-terminal/internal/database"
)

const prefix = "TIDE"

// Config holds every tunable used by the commands.
type Config struct {
	DataDir       string `split_words:"true"`
	HarmonicsFile string `split_words:"true" default:"harmonics.json"`
	// TZBoundaryURL is the zipped time zone boundary shapefile loaded by
	// "tidepredict zones".
	TZBoundaryURL string `envconfig:"TZ_BOUNDARY_URL" default:"https://github.com/evansiroky/timezone-boundary-builder/releases/download/2025b/timezones-with-oceans.shapefile.zip"`

	DefaultSpan   time.Duration `split_words:"true" default:"72h"`
	GraphSpan     time.Duration `split_words:"true" default:"48h"`
	Epoch         time.Time     `default:"2000-01-01T00:00:00Z"` // for new fits and records without an epoch
	SampleStep    time.Duration `split_words:"true" default:"30s"`
	RootTolerance time.Duration `split_words:"true" default:"1ms"`

	FTPHost    string        `envconfig:"FTP_HOST" default:"ftp.soest.hawaii.edu:21"`
	FTPTimeout time.Duration `envconfig:"FTP_TIMEOUT" default:"30s"`
	FTPRetries int           `envconfig:"FTP_RETRIES" default:"3"`

	// GeocoderURL is the Nominatim search endpoint used for place names.
	GeocoderURL string `envconfig:"GEOCODER_URL" default:"https://nominatim.openstreetmap.org/search"`

	HTTPAddr     string        `envconfig:"HTTP_ADDR" default:"0.0.0.0:8080"`
	HTTPCacheTTL time.Duration `envconfig:"HTTP_CACHE_TTL" default:"10m"`

	LogLevel  string `split_words:"true" default:"info"`
	LogFormat string `split_words:"true" default:"text"`
}

// Load reads the environment. DataDir defaults to ~/.tidepredict.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".tidepredict")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that envconfig cannot.
func (c *Config) Validate() error {
	if c.DefaultSpan <= 0 {
		return fmt.Errorf("default span must be positive, got %s", c.DefaultSpan)
	}
	if c.GraphSpan <= 0 {
		return fmt.Errorf("graph span must be positive, got %s", c.GraphSpan)
	}
	if c.SampleStep <= 0 || c.RootTolerance <= 0 {
		return fmt.Errorf("sample step and root tolerance must be positive")
	}
	if c.RootTolerance >= c.SampleStep {
		return fmt.Errorf("root tolerance %s must be below sample step %s", c.RootTolerance, c.SampleStep)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.FTPRetries < 0 {
		return fmt.Errorf("ftp retries must not be negative, got %d", c.FTPRetries)
	}
	return nil
}

// DBPath returns the SQLite database location.
func (c *Config) DBPath() string {
	return database.DBPath(c.DataDir)
}

// HarmonicsPath returns the harmonics JSON file location.
func (c *Config) HarmonicsPath() string {
	if filepath.IsAbs(c.HarmonicsFile) {
		return c.HarmonicsFile
	}
	return filepath.Join(c.DataDir, "harmdata", c.HarmonicsFile)
}
