// Package aggregate accumulates per-URL latency samples over one log pass and
// aborts the pass when the parse-failure rate crosses a configured limit.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/logstats/internal/extract"
	"github.com/gyeh/logstats/internal/model"
)

// ctxCheckInterval is how many lines are processed between context checks.
const ctxCheckInterval = 4096

// ErrErrorRateExceeded marks a pass aborted by the circuit breaker.
var ErrErrorRateExceeded = errors.New("parse error rate exceeded")

// RateError carries the counters at the moment the breaker tripped.
type RateError struct {
	ErrorLines int
	TotalLines int
	Limit      float64
}

// Percent returns the failure rate that tripped the breaker.
func (e *RateError) Percent() float64 {
	return float64(e.ErrorLines) / float64(e.TotalLines) * 100
}

func (e *RateError) Error() string {
	return fmt.Sprintf("%s: %d of %d lines unparsed (%.2f%% > %.2f%%)",
		ErrErrorRateExceeded, e.ErrorLines, e.TotalLines, e.Percent(), e.Limit)
}

func (e *RateError) Unwrap() error {
	return ErrErrorRateExceeded
}

// Policy configures the circuit breaker.
type Policy struct {
	// WarmupLines is the number of lines processed before the rate is checked.
	WarmupLines int
	// ErrorLimitPercent is the failure percentage that aborts the pass.
	ErrorLimitPercent float64
}

// State is the result of one completed pass.
type State struct {
	// Samples maps each URL to its latencies in encounter order.
	Samples map[string][]float64
	// Order lists URLs in the order they were first seen.
	Order        []string
	TotalURLs    int
	TotalLatency float64
	TotalLines   int
	ErrorLines   int
}

// Aggregator consumes extraction outcomes one line at a time.
type Aggregator struct {
	policy  Policy
	state   State
	aborted *RateError
}

// New creates an Aggregator in the running state.
func New(policy Policy) *Aggregator {
	return &Aggregator{
		policy: policy,
		state:  State{Samples: make(map[string][]float64)},
	}
}

// Add records one line's outcome. It returns a *RateError once the breaker
// has tripped, and keeps returning it for every later call.
func (a *Aggregator) Add(sample model.Sample, ok bool) error {
	if a.aborted != nil {
		return a.aborted
	}

	s := &a.state
	s.TotalLines++

	if !ok {
		s.ErrorLines++
		if s.TotalLines >= a.policy.WarmupLines &&
			float64(s.ErrorLines)/float64(s.TotalLines)*100 > a.policy.ErrorLimitPercent {
			a.aborted = &RateError{
				ErrorLines: s.ErrorLines,
				TotalLines: s.TotalLines,
				Limit:      a.policy.ErrorLimitPercent,
			}
			return a.aborted
		}
		return nil
	}

	latencies, seen := s.Samples[sample.URL]
	if !seen {
		s.Order = append(s.Order, sample.URL)
	}
	s.Samples[sample.URL] = append(latencies, sample.Latency)
	s.TotalURLs++
	s.TotalLatency += sample.Latency
	return nil
}

// Aborted reports whether the breaker has tripped.
func (a *Aggregator) Aborted() bool {
	return a.aborted != nil
}

// State returns the accumulated state, or nil if the pass was aborted.
func (a *Aggregator) State() *State {
	if a.aborted != nil {
		return nil
	}
	return &a.state
}

// LineSource is a pull iterator over log lines, satisfied by *logfile.Reader.
type LineSource interface {
	Next() bool
	Line() string
	LineNumber() int
	Err() error
}

// Run drains src through extract.Line into a new Aggregator. On abort it
// returns a nil State and an error wrapping ErrErrorRateExceeded.
func Run(ctx context.Context, src LineSource, policy Policy, log zerolog.Logger) (*State, error) {
	start := time.Now()
	agg := New(policy)

	for src.Next() {
		line := src.Line()
		sample, ok := extract.Line(line)
		if !ok {
			log.Debug().Int("line", src.LineNumber()).Msg("line not parsed")
		}
		if err := agg.Add(sample, ok); err != nil {
			return nil, err
		}
		if src.LineNumber()%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	if err := src.Err(); err != nil {
		return nil, fmt.Errorf("aggregate read: %w", err)
	}

	state := agg.State()
	if state.ErrorLines > 0 {
		log.Info().
			Int("error_lines", state.ErrorLines).
			Int("total_lines", state.TotalLines).
			Msg("unparsed lines within tolerance")
	}

	log.Info().
		Int("lines", state.TotalLines).
		Int("samples", state.TotalURLs).
		Int("distinct_urls", len(state.Order)).
		Float64("total_latency", state.TotalLatency).
		Dur("duration", time.Since(start)).
		Msg("aggregation complete")

	return state, nil
}
