package analyze

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gyeh/logstats/internal/logfile"
	"github.com/gyeh/logstats/internal/report"
)

// PreflightResult holds what is known about a run before the log is read.
type PreflightResult struct {
	// Log is the selected input.
	Log *logfile.LogFile
	// ReportPath is where the HTML report for Log.Date is written.
	ReportPath string
	// AlreadyReported is true when ReportPath already exists; the run is then
	// a no-op.
	AlreadyReported bool
}

// Locate picks the newest log in dir, or nil when there is none.
func Locate(dir, prefix string) (*logfile.LogFile, error) {
	lf, err := logfile.FindLatest(dir, prefix)
	if err != nil {
		return nil, &logfile.OpenError{Path: dir, Err: err}
	}
	return lf, nil
}

// Preflight derives the report name for lf and checks whether it exists.
func Preflight(log zerolog.Logger, lf *logfile.LogFile, reportDir string) (*PreflightResult, error) {
	path := report.Path(reportDir, lf.Date)
	exists, err := report.Exists(path)
	if err != nil {
		return nil, fmt.Errorf("check report %s: %w", path, err)
	}

	log.Info().
		Str("log", lf.Path).
		Str("log_date", lf.Date.Format("2006-01-02")).
		Str("compression", logfile.Compression(lf.Path)).
		Str("report", path).
		Bool("already_reported", exists).
		Msg("preflight complete")

	return &PreflightResult{Log: lf, ReportPath: path, AlreadyReported: exists}, nil
}
