// Package metrics exposes run results as Prometheus metrics written to a
// node_exporter textfile, since logstats runs as a short-lived batch job.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gyeh/logstats/internal/model"
)

const namespace = "logstats"

// Collector holds the gauges for one run.
type Collector struct {
	registry *prometheus.Registry

	lastRun      *prometheus.GaugeVec
	lines        *prometheus.GaugeVec
	bytesRead    prometheus.Gauge
	urls         *prometheus.GaugeVec
	rowsRendered prometheus.Gauge
	latencySum   prometheus.Gauge
	phase        *prometheus.GaugeVec
}

// NewCollector creates a Collector on its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished, by outcome.",
		}, []string{"outcome"}),
		lines: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lines",
			Help:      "Log lines read in the last run, by parse status.",
		}, []string{"status"}),
		bytesRead: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "read_bytes",
			Help:      "Raw bytes of the log file consumed in the last run.",
		}),
		urls: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "urls",
			Help:      "Request and distinct URL counts in the last run.",
		}, []string{"kind"}),
		rowsRendered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "report_rows",
			Help:      "Rows written to the last report.",
		}),
		latencySum: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "request_time_seconds_sum",
			Help:      "Total request time across parsed lines in the last run.",
		}),
		phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Wall time of each pipeline phase in the last run.",
		}, []string{"phase"}),
	}
	c.registry.MustRegister(c.lastRun, c.lines, c.bytesRead, c.urls, c.rowsRendered, c.latencySum, c.phase)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Observe records s. finishedUnix is the run completion time.
func (c *Collector) Observe(s *model.RunSummary, finishedUnix float64) {
	outcome := s.Outcome
	if outcome == "" {
		outcome = model.OutcomeFailed
	}
	c.lastRun.WithLabelValues(string(outcome)).Set(finishedUnix)

	c.lines.WithLabelValues("parsed").Set(float64(s.TotalLines - s.ErrorLines))
	c.lines.WithLabelValues("unparsed").Set(float64(s.ErrorLines))
	c.bytesRead.Set(float64(s.BytesRead))
	c.urls.WithLabelValues("requests").Set(float64(s.TotalURLs))
	c.urls.WithLabelValues("distinct").Set(float64(s.DistinctURLs))
	c.rowsRendered.Set(float64(s.RowsRendered))
	c.latencySum.Set(s.TotalLatency)

	c.phase.WithLabelValues("aggregate").Set(s.DurationAggregate.Seconds())
	c.phase.WithLabelValues("stats").Set(s.DurationStats.Seconds())
	c.phase.WithLabelValues("render").Set(s.DurationRender.Seconds())
	c.phase.WithLabelValues("total").Set(s.DurationTotal.Seconds())
}

// WriteTextfile writes the registry to path in the text exposition format.
func (c *Collector) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
