package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gyeh/logstats/internal/analyze"
	"github.com/gyeh/logstats/internal/db"
	"github.com/gyeh/logstats/internal/exitcode"
	"github.com/gyeh/logstats/internal/metrics"
	"github.com/gyeh/logstats/internal/model"
	"github.com/gyeh/logstats/internal/store"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze the newest log and write its report",
	RunE:  runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&cfg.ReportDir, "report-dir", cfg.ReportDir, "Report output directory")
	f.IntVar(&cfg.ReportSize, "report-size", cfg.ReportSize, "Maximum number of URLs in the report")
	f.StringVar(&cfg.Template, "template", "", "Report template (default REPORT_DIR/report.html)")
	f.StringVar(&cfg.TSFile, "ts-file", "", "File touched after a successful run")
	f.StringVar(&cfg.ParquetDir, "parquet-dir", "", "Also export the stat table as Parquet into this directory")
	f.StringVar(&cfg.MetricsFile, "metrics-file", "", "Write Prometheus textfile metrics here")
	f.StringVar(&cfg.TieOrder, "tie-order", cfg.TieOrder, "Order of URLs with equal total time: discovery or url")
	f.BoolVar(&cfg.Chart, "chart", false, "Also write a bar chart page next to the report")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	log := setup(cmd)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("start analyzing")

	var opts analyze.Options
	if cfg.DSN != "" {
		pool, err := openStore(ctx, log)
		if err != nil {
			log.Error().Err(err).Msg("database connection failed")
			exit(exitcode.StoreError)
		}
		defer pool.Close()
		opts.Store = store.New(pool, log)
	}

	summary, err := analyze.Run(ctx, log, &cfg, opts)
	writeMetrics(log, summary)

	if err != nil {
		if pe, ok := err.(*analyze.PipelineError); ok {
			log.Error().Err(pe.Err).Str("phase", pe.Phase).Msg("analyze failed")
		} else {
			log.Error().Err(err).Msg("analyze failed")
		}
		exit(exitCodeFor(err))
	}

	switch summary.Outcome {
	case model.OutcomeReported:
		fmt.Printf("Report written: %s (%d URLs, %d/%d lines unparsed, %.1fs)\n",
			summary.ReportPath, summary.RowsRendered, summary.ErrorLines, summary.TotalLines,
			summary.DurationTotal.Seconds())
	default:
		fmt.Printf("Nothing to do: %s\n", summary.Outcome)
	}
	log.Info().Str("outcome", string(summary.Outcome)).Msg("stop analyzing")
	return closeLog()
}

func openStore(ctx context.Context, log zerolog.Logger) (*pgxpool.Pool, error) {
	pool, err := db.NewPool(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.ApplyMigrations(ctx, pool, log); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// writeMetrics is best effort: a broken textfile must not fail the run.
func writeMetrics(log zerolog.Logger, summary *model.RunSummary) {
	if cfg.MetricsFile == "" || summary == nil {
		return
	}
	c := metrics.NewCollector()
	c.Observe(summary, float64(time.Now().Unix()))
	if err := c.WriteTextfile(cfg.MetricsFile); err != nil {
		log.Warn().Err(err).Str("metrics_file", cfg.MetricsFile).Msg("metrics not written")
	}
}
