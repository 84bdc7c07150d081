package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/gyeh/logstats/internal/logfile"
	"github.com/gyeh/logstats/internal/stats"
)

// DefaultFile is the config file read when --config is not given.
const DefaultFile = "config.json"

// TemplateName is the report template looked up in ReportDir when Template is empty.
const TemplateName = "report.html"

// Config holds all runtime configuration for a logstats run. Field names in
// the file are upper-case, matching the JSON config format logstats reads.
type Config struct {
	ReportSize        int     `yaml:"REPORT_SIZE"`
	ReportDir         string  `yaml:"REPORT_DIR"`
	LogDir            string  `yaml:"LOG_DIR"`
	Template          string  `yaml:"TEMPLATE"`
	TSFile            string  `yaml:"TS_FILE"`
	LogFile           string  `yaml:"LOG_FILE"`
	LogFormat         string  `yaml:"LOG_FORMAT"` // "text" or "json"
	LogLevel          string  `yaml:"LOG_LEVEL"`
	LogPrefix         string  `yaml:"LOG_PREFIX"`
	Precision         int     `yaml:"PRECISION"`
	ErrorLimitPercent float64 `yaml:"ERROR_LIMIT_PERCENT"`
	WarmupLines       int     `yaml:"WARMUP_LINES"`
	TieOrder          string  `yaml:"TIE_ORDER"`
	Chart             bool    `yaml:"CHART"`
	ParquetDir        string  `yaml:"PARQUET_DIR"`
	MetricsFile       string  `yaml:"METRICS_FILE"`
	DSN               string  `yaml:"DSN"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ReportSize:        1000,
		ReportDir:         "./reports",
		LogDir:            "./log",
		LogFormat:         "text",
		LogLevel:          "info",
		LogPrefix:         logfile.DefaultPrefix,
		Precision:         stats.DefaultPrecision,
		ErrorLimitPercent: 10,
		WarmupLines:       100,
		TieOrder:          string(stats.TieDiscovery),
	}
}

// LoadFromFile reads a JSON or YAML config file and merges its values into c.
// Keys absent from the file keep their current values.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// LoadOptional merges path into c. A missing file is only an error when
// explicit is true.
func (c *Config) LoadOptional(path string, explicit bool) error {
	err := c.LoadFromFile(path)
	if err != nil && !explicit && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// TemplatePath returns the report template location.
func (c *Config) TemplatePath() string {
	if c.Template != "" {
		return c.Template
	}
	return filepath.Join(c.ReportDir, TemplateName)
}

// Validate checks field ranges and returns an error if the config is invalid.
func (c *Config) Validate() error {
	if c.ReportSize <= 0 {
		return fmt.Errorf("REPORT_SIZE must be positive, got %d", c.ReportSize)
	}
	if c.ReportDir == "" {
		return fmt.Errorf("REPORT_DIR is required")
	}
	if c.LogDir == "" {
		return fmt.Errorf("LOG_DIR is required")
	}
	if c.LogPrefix == "" {
		return fmt.Errorf("LOG_PREFIX is required")
	}
	if c.Precision < 0 || c.Precision > 15 {
		return fmt.Errorf("PRECISION must be within 0..15, got %d", c.Precision)
	}
	if c.ErrorLimitPercent < 0 || c.ErrorLimitPercent > 100 {
		return fmt.Errorf("ERROR_LIMIT_PERCENT must be within 0..100, got %g", c.ErrorLimitPercent)
	}
	if c.WarmupLines < 0 {
		return fmt.Errorf("WARMUP_LINES must not be negative, got %d", c.WarmupLines)
	}
	if _, err := stats.ParseTieOrder(c.TieOrder); err != nil {
		return fmt.Errorf("TIE_ORDER: %w", err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}
