// Package store persists run summaries and their stat tables in Postgres so
// reports can be queried across days.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/logstats/internal/db"
	"github.com/gyeh/logstats/internal/model"
	embedsql "github.com/gyeh/logstats/internal/sql"
)

// Store writes runs to the logstats schema.
type Store struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// New wraps an open pool.
func New(pool *pgxpool.Pool, log zerolog.Logger) *Store {
	return &Store{pool: pool, log: log}
}

// SaveRun records s and its rows in one transaction. Earlier runs for the
// same log content are replaced, so reprocessing a log never duplicates it.
func (s *Store) SaveRun(ctx context.Context, sum *model.RunSummary, rows []model.StatRow) error {
	start := time.Now()

	runID, err := uuid.Parse(sum.RunID)
	if err != nil {
		return fmt.Errorf("parse run id: %w", err)
	}

	var replaced int64
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, embedsql.DeleteRunsForLog, sum.LogSHA256)
		if err != nil {
			return fmt.Errorf("delete previous runs: %w", err)
		}
		replaced = tag.RowsAffected()

		_, err = tx.Exec(ctx, embedsql.InsertRun,
			runID,
			sum.LogPath,
			sum.LogDate,
			sum.LogSHA256,
			sum.ReportPath,
			string(sum.Outcome),
			sum.BytesRead,
			sum.TotalLines,
			sum.ErrorLines,
			sum.TotalURLs,
			sum.DistinctURLs,
			sum.RowsRendered,
			sum.TotalLatency,
			sum.DurationTotal.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{"logstats", "url_stats"},
			model.StatColumns(),
			db.NewRowSource(runID, rows),
		)
		if err != nil {
			return fmt.Errorf("copy url stats: %w", err)
		}
		if n != int64(len(rows)) {
			return fmt.Errorf("copy url stats: wrote %d of %d rows", n, len(rows))
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("run_id", sum.RunID).
		Int("rows", len(rows)).
		Int64("replaced_runs", replaced).
		Dur("duration", time.Since(start)).
		Msg("run stored")
	return nil
}

// CountRuns returns how many runs are stored for a log digest.
func (s *Store) CountRuns(ctx context.Context, sha256 string) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, embedsql.CountRunsForLog, sha256).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}

// Run loads the stored summary for runID.
func (s *Store) Run(ctx context.Context, runID string) (*model.RunSummary, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, fmt.Errorf("parse run id: %w", err)
	}

	var (
		sum        model.RunSummary
		dbID       uuid.UUID
		outcome    string
		durationMS int64
	)
	err = s.pool.QueryRow(ctx, embedsql.SelectRun, id).Scan(
		&dbID,
		&sum.LogPath,
		&sum.LogDate,
		&sum.LogSHA256,
		&sum.ReportPath,
		&outcome,
		&sum.BytesRead,
		&sum.TotalLines,
		&sum.ErrorLines,
		&sum.TotalURLs,
		&sum.DistinctURLs,
		&sum.RowsRendered,
		&sum.TotalLatency,
		&durationMS,
	)
	if err != nil {
		return nil, fmt.Errorf("select run: %w", err)
	}
	sum.DurationTotal = time.Duration(durationMS) * time.Millisecond
	sum.RunID = dbID.String()
	sum.Outcome = model.Outcome(outcome)
	return &sum, nil
}

// Rows loads the stat table of runID in report order.
func (s *Store) Rows(ctx context.Context, runID string) ([]model.StatRow, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, fmt.Errorf("parse run id: %w", err)
	}

	rows, err := s.pool.Query(ctx, embedsql.SelectURLStats, id)
	if err != nil {
		return nil, fmt.Errorf("select url stats: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.StatRow, error) {
		var r model.StatRow
		err := row.Scan(&r.URL, &r.Count, &r.CountPerc, &r.TimeSum, &r.TimePerc, &r.TimeAvg, &r.TimeMax, &r.TimeMed)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan url stats: %w", err)
	}
	return out, nil
}
