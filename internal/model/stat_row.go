package model

import "github.com/google/uuid"

// StatRow holds the summary statistics for one URL across a full log pass.
// JSON keys are the report contract; parquet tags name the export columns.
type StatRow struct {
	URL       string  `json:"url" parquet:"url"`
	Count     int64   `json:"count" parquet:"count"`
	CountPerc float64 `json:"count_perc" parquet:"count_perc"`
	TimeSum   float64 `json:"time_sum" parquet:"time_sum"`
	TimePerc  float64 `json:"time_perc" parquet:"time_perc"`
	TimeAvg   float64 `json:"time_avg" parquet:"time_avg"`
	TimeMax   float64 `json:"time_max" parquet:"time_max"`
	TimeMed   float64 `json:"time_med" parquet:"time_med"`
}

// StatColumns returns the ordered column names for COPY into logstats.url_stats.
func StatColumns() []string {
	return []string{
		"run_id",
		"rank",
		"url",
		"count",
		"count_perc",
		"time_sum",
		"time_perc",
		"time_avg",
		"time_max",
		"time_med",
	}
}

// CopyValues returns the row's values in StatColumns order.
func (r *StatRow) CopyValues(runID uuid.UUID, rank int) []any {
	return []any{
		runID,
		int32(rank),
		r.URL,
		r.Count,
		r.CountPerc,
		r.TimeSum,
		r.TimePerc,
		r.TimeAvg,
		r.TimeMax,
		r.TimeMed,
	}
}
