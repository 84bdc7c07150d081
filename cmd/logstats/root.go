package main

import (
	"context"
	"errors"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gyeh/logstats/internal/aggregate"
	"github.com/gyeh/logstats/internal/analyze"
	"github.com/gyeh/logstats/internal/config"
	"github.com/gyeh/logstats/internal/exitcode"
	"github.com/gyeh/logstats/internal/logfile"
	"github.com/gyeh/logstats/internal/logging"
	"github.com/gyeh/logstats/internal/report"
	"github.com/gyeh/logstats/internal/stats"
)

const dsnEnv = "LOGSTATS_DSN"

var (
	cfg        = config.Default()
	configPath string
	closeLog   = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:           "logstats",
	Short:         "nginx access log → per-URL latency report",
	Long:          "Reads the newest nginx access log, aggregates request time per URL and renders a static HTML report.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", config.DefaultFile, "Config file (JSON or YAML)")
	pf.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text or json")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	pf.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "Directory holding nginx access logs")
	pf.StringVar(&cfg.DSN, "dsn", "", "Postgres connection string (or set "+dsnEnv+")")
}

// loadConfig layers defaults, the config file, the environment and finally
// any flags set on the command line. It returns an exit code on failure.
func loadConfig(cmd *cobra.Command) (int, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	flags := cfg
	loaded := config.Default()
	explicit := cmd.Flags().Changed("config")
	if err := loaded.LoadOptional(configPath, explicit); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return exitcode.UsageError, err
		}
		return exitcode.ConfigError, err
	}
	if loaded.DSN == "" {
		loaded.DSN = os.Getenv(dsnEnv)
	}

	cmd.Flags().Visit(func(f *pflag.Flag) {
		applyFlag(&loaded, &flags, f.Name)
	})
	cfg = loaded

	if err := cfg.Validate(); err != nil {
		return exitcode.ConfigError, err
	}
	return exitcode.Success, nil
}

// applyFlag copies the value of an explicitly set flag from src into dst.
func applyFlag(dst, src *config.Config, name string) {
	switch name {
	case "log-format":
		dst.LogFormat = src.LogFormat
	case "log-level":
		dst.LogLevel = src.LogLevel
	case "log-dir":
		dst.LogDir = src.LogDir
	case "dsn":
		dst.DSN = src.DSN
	case "report-dir":
		dst.ReportDir = src.ReportDir
	case "report-size":
		dst.ReportSize = src.ReportSize
	case "template":
		dst.Template = src.Template
	case "ts-file":
		dst.TSFile = src.TSFile
	case "parquet-dir":
		dst.ParquetDir = src.ParquetDir
	case "metrics-file":
		dst.MetricsFile = src.MetricsFile
	case "chart":
		dst.Chart = src.Chart
	case "tie-order":
		dst.TieOrder = src.TieOrder
	}
}

// setup loads configuration and builds the logger. Config errors are
// reported on stderr with the default logger and end the process.
func setup(cmd *cobra.Command) zerolog.Logger {
	code, err := loadConfig(cmd)
	if err != nil {
		log := logging.Setup(cfg.LogFormat, zerolog.InfoLevel, nil)
		log.Error().Err(err).Str("config", configPath).Msg("config load failed")
		os.Exit(code)
	}

	out, closeFn, err := logging.OpenFile(cfg.LogFile)
	if err != nil {
		log := logging.Setup(cfg.LogFormat, zerolog.InfoLevel, nil)
		log.Error().Err(err).Str("log_file", cfg.LogFile).Msg("cannot open log file")
		os.Exit(exitcode.ConfigError)
	}
	closeLog = closeFn
	return logging.Setup(cfg.LogFormat, logging.ParseLevel(cfg.LogLevel), out)
}

// exit closes the log sink and terminates with code.
func exit(code int) {
	_ = closeLog()
	os.Exit(code)
}

// exitCodeFor maps a pipeline error to the process exit code.
func exitCodeFor(err error) int {
	var (
		openErr     *logfile.OpenError
		templateErr *report.TemplateError
		writeErr    *report.WriteError
		pipeErr     *analyze.PipelineError
	)
	switch {
	case err == nil, errors.Is(err, stats.ErrNoData):
		return exitcode.Success
	case errors.Is(err, context.Canceled):
		return exitcode.Interrupted
	case errors.As(err, &openErr):
		return exitcode.OpenError
	case errors.Is(err, aggregate.ErrErrorRateExceeded):
		return exitcode.ParseError
	case errors.As(err, &templateErr), errors.As(err, &writeErr):
		return exitcode.ReportError
	case errors.As(err, &pipeErr):
		switch pipeErr.Phase {
		case analyze.PhaseLocate, analyze.PhaseAggregate:
			return exitcode.OpenError
		case analyze.PhaseStats:
			return exitcode.ParseError
		case analyze.PhaseStore:
			return exitcode.StoreError
		}
	}
	return exitcode.ReportError
}
