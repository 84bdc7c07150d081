package report

import (
	"bytes"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/gyeh/logstats/internal/model"
)

const (
	chartTopURLs     = 30
	chartWidth       = "1200px"
	chartHeight      = "600px"
	chartLabelRotate = 45
)

// ChartName returns the chart page file name for a log date.
func ChartName(date time.Time) string {
	return strings.TrimSuffix(Name(date), ".html") + "-chart.html"
}

// ChartPath joins dir with ChartName(date).
func ChartPath(dir string, date time.Time) string {
	return filepath.Join(dir, ChartName(date))
}

// RenderChart writes a bar chart of the heaviest URLs by total time.
// rows must already be ordered by time_sum descending.
func RenderChart(rows []model.StatRow, outPath, title string) error {
	if len(rows) > chartTopURLs {
		rows = rows[:chartTopURLs]
	}

	labels := make([]string, len(rows))
	sums := make([]opts.BarData, len(rows))
	meds := make([]opts.BarData, len(rows))
	for i, r := range rows {
		labels[i] = r.URL
		sums[i] = opts.BarData{Value: r.TimeSum}
		meds[i] = opts.BarData{Value: r.TimeMed}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: "Top URLs by total request time",
		}),
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: chartWidth, Height: chartHeight}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithXAxisOpts(opts.XAxis{
			AxisLabel: &opts.AxisLabel{Rotate: chartLabelRotate, Interval: "0"},
		}),
	)
	bar.SetXAxis(labels).
		AddSeries("time_sum", sums).
		AddSeries("time_med", meds)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		return &WriteError{Path: outPath, Err: err}
	}
	if err := writeAtomic(outPath, buf.Bytes()); err != nil {
		return &WriteError{Path: outPath, Err: err}
	}
	return nil
}
