package analyze

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gyeh/logstats/internal/aggregate"
	"github.com/gyeh/logstats/internal/config"
	"github.com/gyeh/logstats/internal/model"
	"github.com/gyeh/logstats/internal/stats"
)

// Phase names reported in PipelineError.
const (
	PhaseLocate    = "locate"
	PhasePreflight = "preflight"
	PhaseAggregate = "aggregate"
	PhaseStats     = "stats"
	PhaseRender    = "render"
	PhaseExport    = "export"
	PhaseStore     = "store"
	PhaseFinalize  = "finalize"
)

// PipelineError wraps an error with the phase where it occurred.
type PipelineError struct {
	Phase string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Store persists a finished run. A nil Store disables persistence.
type Store interface {
	SaveRun(ctx context.Context, sum *model.RunSummary, rows []model.StatRow) error
}

// Options carries collaborators that are not part of the config file.
type Options struct {
	Store Store
	// Now returns the completion time written to the ts file. Defaults to time.Now.
	Now func() time.Time
}

// Run executes the full pipeline: locate → preflight → aggregate → stats →
// render → export → store → finalize. No-op outcomes (no logs, report
// already present, no data) return a summary and a nil error.
func Run(ctx context.Context, log zerolog.Logger, cfg *config.Config, o Options) (*model.RunSummary, error) {
	totalStart := time.Now()
	if o.Now == nil {
		o.Now = time.Now
	}

	summary := &model.RunSummary{RunID: uuid.NewString()}
	log = log.With().Str("run_id", summary.RunID).Logger()
	finish := func(outcome model.Outcome) *model.RunSummary {
		summary.Outcome = outcome
		summary.DurationTotal = time.Since(totalStart)
		return summary
	}
	fail := func(phase string, err error) (*model.RunSummary, error) {
		return finish(model.OutcomeFailed), &PipelineError{Phase: phase, Err: err}
	}

	// Phase 1: Locate
	log.Info().Str("log_dir", cfg.LogDir).Msg("looking for latest log")
	lf, err := Locate(cfg.LogDir, cfg.LogPrefix)
	if err != nil {
		return fail(PhaseLocate, err)
	}
	if lf == nil {
		log.Info().Str("log_dir", cfg.LogDir).Msg("no logs to analyze")
		return finish(model.OutcomeNoLogs), nil
	}

	// Phase 2: Preflight
	pf, err := Preflight(log, lf, cfg.ReportDir)
	if err != nil {
		return fail(PhasePreflight, err)
	}
	summary.LogPath = pf.Log.Path
	summary.LogDate = pf.Log.Date
	summary.ReportPath = pf.ReportPath
	if pf.AlreadyReported {
		log.Info().Str("report", pf.ReportPath).Msg("report already exists, skipping")
		return finish(model.OutcomeAlreadyReported), nil
	}

	tie, err := stats.ParseTieOrder(cfg.TieOrder)
	if err != nil {
		return fail(PhasePreflight, err)
	}

	// Phase 3: Aggregate
	scan, err := Scan(ctx, log, pf.Log.Path, policyFor(cfg))
	if scan != nil {
		summary.BytesRead = scan.BytesRead
		summary.LogSHA256 = scan.SHA256
		summary.DurationAggregate = scan.Duration
	}
	if err != nil {
		var rateErr *aggregate.RateError
		if errors.As(err, &rateErr) {
			log.Error().Float64("error_percent", rateErr.Percent()).Msg("too many unparsed lines, no report written")
		}
		return fail(PhaseAggregate, err)
	}
	state := scan.State
	summary.TotalLines = int64(state.TotalLines)
	summary.ErrorLines = int64(state.ErrorLines)
	summary.TotalURLs = int64(state.TotalURLs)
	summary.DistinctURLs = int64(len(state.Order))
	summary.TotalLatency = state.TotalLatency

	// Phase 4: Stats
	statsStart := time.Now()
	rows, err := stats.Compute(state, stats.Options{Precision: cfg.Precision, TieOrder: tie})
	summary.DurationStats = time.Since(statsStart)
	if errors.Is(err, stats.ErrNoData) {
		log.Warn().
			Int64("lines", summary.TotalLines).
			Int64("samples", summary.TotalURLs).
			Msg("no usable latency data, report skipped")
		return finish(model.OutcomeNoData), nil
	}
	if err != nil {
		return fail(PhaseStats, err)
	}
	top := stats.Top(rows, cfg.ReportSize)
	summary.RowsRendered = int64(len(top))

	// Phase 5: Render
	renderStart := time.Now()
	if err := Publish(log, cfg, pf, top); err != nil {
		return fail(PhaseRender, err)
	}
	summary.DurationRender = time.Since(renderStart)

	// Phase 6: Export
	if cfg.ParquetDir != "" {
		if err := Export(log, cfg.ParquetDir, pf.Log.Date, top); err != nil {
			return fail(PhaseExport, err)
		}
	}

	// Phase 7: Store
	summary.Outcome = model.OutcomeReported
	summary.DurationTotal = time.Since(totalStart)
	if o.Store != nil {
		if err := o.Store.SaveRun(ctx, summary, top); err != nil {
			return fail(PhaseStore, err)
		}
	}

	// Phase 8: Finalize
	if err := Finalize(log, cfg.TSFile, o.Now()); err != nil {
		return fail(PhaseFinalize, err)
	}

	finish(model.OutcomeReported)
	log.Info().
		Str("report", summary.ReportPath).
		Int64("lines", summary.TotalLines).
		Int64("error_lines", summary.ErrorLines).
		Int64("distinct_urls", summary.DistinctURLs).
		Int64("rows", summary.RowsRendered).
		Str("total_duration", summary.DurationTotal.String()).
		Msg("analyze pipeline complete")

	return summary, nil
}
