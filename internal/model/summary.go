package model

import "time"

// Outcome classifies how a run ended.
type Outcome string

const (
	OutcomeReported        Outcome = "reported"
	OutcomeNoLogs          Outcome = "no_logs"
	OutcomeAlreadyReported Outcome = "already_reported"
	OutcomeNoData          Outcome = "no_data"
	OutcomeFailed          Outcome = "failed"
)

// RunSummary captures metrics from a single analyze run.
type RunSummary struct {
	RunID      string
	Outcome    Outcome
	LogPath    string
	LogDate    time.Time
	LogSHA256  string
	ReportPath string

	BytesRead    int64
	TotalLines   int64
	ErrorLines   int64
	TotalURLs    int64
	DistinctURLs int64
	RowsRendered int64
	TotalLatency float64

	DurationAggregate time.Duration
	DurationStats     time.Duration
	DurationRender    time.Duration
	DurationTotal     time.Duration
}

// ErrorPercent returns the share of unparsed lines, 0 for an empty log.
func (s *RunSummary) ErrorPercent() float64 {
	if s.TotalLines == 0 {
		return 0
	}
	return float64(s.ErrorLines) / float64(s.TotalLines) * 100
}
