package analyze

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/gyeh/logstats/internal/aggregate"
	"github.com/gyeh/logstats/internal/config"
	"github.com/gyeh/logstats/internal/logfile"
)

// ScanResult holds the outcome of one pass over a log file.
type ScanResult struct {
	// State is nil when the pass failed.
	State     *aggregate.State
	BytesRead int64
	// SHA256 is the digest of the raw file, set only after a complete read.
	SHA256   string
	Duration time.Duration
}

func policyFor(cfg *config.Config) aggregate.Policy {
	return aggregate.Policy{
		WarmupLines:       cfg.WarmupLines,
		ErrorLimitPercent: cfg.ErrorLimitPercent,
	}
}

// Scan streams the log at path through the aggregator. The result is non-nil
// once the file was opened, even when the pass fails, so callers can report
// how far it got.
func Scan(ctx context.Context, log zerolog.Logger, path string, policy aggregate.Policy) (*ScanResult, error) {
	start := time.Now()

	r, err := logfile.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	state, err := aggregate.Run(ctx, r, policy, log)
	res := &ScanResult{
		State:     state,
		BytesRead: r.BytesRead(),
		Duration:  time.Since(start),
	}
	if err != nil {
		return res, err
	}
	res.SHA256 = r.SHA256()

	log.Info().
		Str("log", path).
		Str("read", humanize.Bytes(uint64(res.BytesRead))).
		Str("sha256", res.SHA256).
		Dur("duration", res.Duration).
		Msg("scan complete")

	return res, nil
}
