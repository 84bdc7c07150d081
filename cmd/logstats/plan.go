package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gyeh/logstats/internal/aggregate"
	"github.com/gyeh/logstats/internal/analyze"
	"github.com/gyeh/logstats/internal/exitcode"
	"github.com/gyeh/logstats/internal/export"
	"github.com/gyeh/logstats/internal/logfile"
	"github.com/gyeh/logstats/internal/model"
	"github.com/gyeh/logstats/internal/report"
	"github.com/gyeh/logstats/internal/stats"
)

var (
	planFile string
	planTop  int
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Dry-run: parse a log and print the top URLs (no writes)",
	RunE:  runPlan,
}

func init() {
	f := planCmd.Flags()
	f.StringVar(&planFile, "file", "", "Log file to parse, or a .parquet table from analyze (default: newest log in --log-dir)")
	f.IntVar(&planTop, "top", 10, "Number of URLs to print")
	f.StringVar(&cfg.ReportDir, "report-dir", cfg.ReportDir, "Report directory checked for an existing report")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	log := setup(cmd)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	lf, err := planTarget()
	if err != nil {
		log.Error().Err(err).Msg("cannot locate log")
		exit(exitcode.OpenError)
	}
	if lf == nil {
		color.New(color.FgYellow).Fprintf(os.Stdout, "No logs matching %s* in %s\n", cfg.LogPrefix, cfg.LogDir)
		return closeLog()
	}

	if strings.EqualFold(filepath.Ext(lf.Path), ".parquet") {
		rows, err := export.ReadAll(lf.Path)
		if err != nil {
			log.Error().Err(err).Str("file", lf.Path).Msg("cannot read exported table")
			exit(exitcode.OpenError)
		}
		printExported(os.Stdout, lf.Path, rows)
		return closeLog()
	}

	statsOpts, err := planStatsOptions()
	if err != nil {
		log.Error().Err(err).Msg("invalid stats options")
		exit(exitcode.ConfigError)
	}
	policy := aggregate.Policy{WarmupLines: cfg.WarmupLines, ErrorLimitPercent: cfg.ErrorLimitPercent}

	scan, err := planScan(ctx, log, lf.Path, policy)
	if err != nil {
		log.Error().Err(err).Str("log", lf.Path).Msg("scan failed")
		exit(exitCodeFor(err))
	}

	rows, err := stats.Compute(scan.State, statsOpts)
	if err != nil {
		color.New(color.FgYellow).Fprintf(os.Stdout, "%s: %v\n", lf.Name, err)
		return closeLog()
	}

	printPlan(os.Stdout, lf, scan, rows)
	return closeLog()
}

func planStatsOptions() (stats.Options, error) {
	tie, err := stats.ParseTieOrder(cfg.TieOrder)
	if err != nil {
		return stats.Options{}, err
	}
	return stats.Options{Precision: cfg.Precision, TieOrder: tie}, nil
}

// planScan runs the aggregate pass and tags failures with the phase, so
// plan and analyze exit with the same codes.
func planScan(ctx context.Context, log zerolog.Logger, path string, policy aggregate.Policy) (*analyze.ScanResult, error) {
	scan, err := analyze.Scan(ctx, log, path, policy)
	if err != nil {
		return nil, &analyze.PipelineError{Phase: analyze.PhaseAggregate, Err: err}
	}
	return scan, nil
}

// planTarget resolves --file, or the newest log in the log dir.
func planTarget() (*logfile.LogFile, error) {
	if planFile == "" {
		return analyze.Locate(cfg.LogDir, cfg.LogPrefix)
	}
	if _, err := os.Stat(planFile); err != nil {
		return nil, &logfile.OpenError{Path: planFile, Err: err}
	}
	lf := &logfile.LogFile{Path: planFile, Name: filepath.Base(planFile)}
	if date, ok := logfile.ParseName(filepath.Base(planFile), cfg.LogPrefix); ok {
		lf.Date = date
	}
	return lf, nil
}

func printPlan(w io.Writer, lf *logfile.LogFile, scan *analyze.ScanResult, rows []model.StatRow) {
	state := scan.State

	fmt.Fprintln(w, "=== logstats plan ===")
	fmt.Fprintf(w, "File:          %s (%s)\n", lf.Path, logfile.Compression(lf.Path))
	fmt.Fprintf(w, "SHA-256:       %s\n", scan.SHA256)
	fmt.Fprintf(w, "Read:          %s in %s\n", humanize.Bytes(uint64(scan.BytesRead)), scan.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Lines:         %s (%s unparsed)\n", humanize.Comma(int64(state.TotalLines)), humanize.Comma(int64(state.ErrorLines)))
	fmt.Fprintf(w, "Distinct URLs: %s\n", humanize.Comma(int64(len(state.Order))))

	if !lf.Date.IsZero() {
		path := report.Path(cfg.ReportDir, lf.Date)
		if ok, _ := report.Exists(path); ok {
			color.New(color.FgYellow).Fprintf(w, "Report:        %s exists, analyze would skip\n", path)
		} else {
			color.New(color.FgGreen).Fprintf(w, "Report:        %s would be written\n", path)
		}
	}
	fmt.Fprintln(w)

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"#", "url", "count", "count %", "time sum", "time %", "avg", "max", "med"})
	top := stats.Top(rows, planTop)
	for i, r := range top {
		tbl.AppendRow(table.Row{
			i + 1, r.URL, humanize.Comma(r.Count), r.CountPerc,
			fmt.Sprintf("%.3f", r.TimeSum), r.TimePerc, r.TimeAvg, r.TimeMax, r.TimeMed,
		})
	}
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 60},
		{Number: 3, Align: text.AlignRight},
	})
	tbl.AppendFooter(table.Row{"", fmt.Sprintf("showing %d of %d", len(top), len(rows))})
	tbl.Render()
}

// printExported lists a table previously written by analyze --parquet-dir.
func printExported(w io.Writer, path string, rows []model.StatRow) {
	fmt.Fprintln(w, "=== logstats plan (exported table) ===")
	fmt.Fprintf(w, "File: %s\n\n", path)

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"#", "url", "count", "time sum", "time %", "med"})
	top := stats.Top(rows, planTop)
	for i, r := range top {
		tbl.AppendRow(table.Row{i + 1, r.URL, humanize.Comma(r.Count), fmt.Sprintf("%.3f", r.TimeSum), r.TimePerc, r.TimeMed})
	}
	tbl.SetColumnConfigs([]table.ColumnConfig{{Number: 2, WidthMax: 60}})
	tbl.AppendFooter(table.Row{"", fmt.Sprintf("showing %d of %d", len(top), len(rows))})
	tbl.Render()
}
