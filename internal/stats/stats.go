// Package stats turns an aggregated log pass into the ranked per-URL table.
package stats

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/gyeh/logstats/internal/aggregate"
	"github.com/gyeh/logstats/internal/model"
)

// DefaultPrecision is the number of decimal digits kept in derived values.
const DefaultPrecision = 5

// Sentinel errors.
var (
	ErrNoData = errors.New("no samples to compute statistics from")
	ErrEmpty  = errors.New("median of empty slice")
)

// TieOrder decides how rows with equal time_sum are ordered.
type TieOrder string

const (
	// TieDiscovery keeps URLs in the order they first appeared in the log.
	TieDiscovery TieOrder = "discovery"
	// TieURL orders URLs lexicographically.
	TieURL TieOrder = "url"
)

// ParseTieOrder validates s.
func ParseTieOrder(s string) (TieOrder, error) {
	switch TieOrder(s) {
	case TieDiscovery, TieURL:
		return TieOrder(s), nil
	case "":
		return TieDiscovery, nil
	default:
		return "", fmt.Errorf("unknown tie order %q (want %q or %q)", s, TieDiscovery, TieURL)
	}
}

// Options control rounding and ordering.
type Options struct {
	Precision int
	TieOrder  TieOrder
}

// Compute derives one StatRow per URL, sorted by time_sum descending.
func Compute(state *aggregate.State, opts Options) ([]model.StatRow, error) {
	if state == nil || state.TotalURLs == 0 || state.TotalLatency == 0 {
		return nil, ErrNoData
	}

	p := opts.Precision
	totalURLs := float64(state.TotalURLs)

	rows := make([]model.StatRow, 0, len(state.Order))
	for _, url := range state.Order {
		values := state.Samples[url]
		if len(values) == 0 {
			continue
		}

		med, err := Median(values)
		if err != nil {
			return nil, fmt.Errorf("median for %s: %w", url, err)
		}

		count := float64(len(values))
		sum := Sum(values)
		rows = append(rows, model.StatRow{
			URL:       url,
			Count:     int64(len(values)),
			CountPerc: Round(100*count/totalURLs, p),
			TimeSum:   sum,
			TimePerc:  Round(100*sum/state.TotalLatency, p),
			TimeAvg:   Round(sum/count, p),
			TimeMax:   slices.Max(values),
			TimeMed:   Round(med, p),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TimeSum != rows[j].TimeSum {
			return rows[i].TimeSum > rows[j].TimeSum
		}
		if opts.TieOrder == TieURL {
			return rows[i].URL < rows[j].URL
		}
		return false
	})

	return rows, nil
}

// Top returns at most n leading rows.
func Top(rows []model.StatRow, n int) []model.StatRow {
	if n <= 0 {
		return nil
	}
	if n > len(rows) {
		n = len(rows)
	}
	return rows[:n]
}

// Sum returns the sum of values.
func Sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}

// Median returns the middle value of a sorted copy of values, averaging the
// two central elements for even lengths.
func Median(values []float64) (float64, error) {
	n := len(values)
	if n == 0 {
		return 0, ErrEmpty
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2, nil
	}
	return sorted[n/2], nil
}

// Round rounds v to precision decimal digits, half away from zero.
func Round(v float64, precision int) float64 {
	scale := math.Pow(10, float64(precision))
	return math.Round(v*scale) / scale
}
