package analyze

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/logstats/internal/config"
	"github.com/gyeh/logstats/internal/export"
	"github.com/gyeh/logstats/internal/model"
	"github.com/gyeh/logstats/internal/report"
)

// Publish writes the HTML report and, when enabled, the chart page.
func Publish(log zerolog.Logger, cfg *config.Config, pf *PreflightResult, rows []model.StatRow) error {
	start := time.Now()

	if err := report.Render(rows, cfg.TemplatePath(), pf.ReportPath); err != nil {
		return err
	}

	var chartPath string
	if cfg.Chart {
		chartPath = report.ChartPath(cfg.ReportDir, pf.Log.Date)
		title := "logstats " + pf.Log.Date.Format("2006.01.02")
		if err := report.RenderChart(rows, chartPath, title); err != nil {
			return err
		}
	}

	log.Info().
		Str("report", pf.ReportPath).
		Str("chart", chartPath).
		Int("rows", len(rows)).
		Dur("duration", time.Since(start)).
		Msg("report written")
	return nil
}

// Export writes rows as Parquet under dir.
func Export(log zerolog.Logger, dir string, date time.Time, rows []model.StatRow) error {
	path := export.Path(dir, date)
	if err := export.Write(path, rows); err != nil {
		return err
	}
	log.Info().Str("parquet", path).Int("rows", len(rows)).Msg("parquet export written")
	return nil
}

// Finalize touches the ts file when one is configured.
func Finalize(log zerolog.Logger, tsFile string, now time.Time) error {
	if tsFile == "" {
		return nil
	}
	if err := report.TouchTimestamp(tsFile, now); err != nil {
		return err
	}
	log.Debug().Str("ts_file", tsFile).Int64("ts", now.Unix()).Msg("timestamp updated")
	return nil
}
