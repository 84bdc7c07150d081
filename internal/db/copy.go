package db

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gyeh/logstats/internal/model"
)

// RowSource implements pgx.CopyFromSource over a ranked slice of StatRows.
// Rank is the 1-based position of the row in the report.
type RowSource struct {
	runID uuid.UUID
	rows  []model.StatRow
	idx   int
}

// NewRowSource creates a CopyFromSource for rows belonging to runID.
func NewRowSource(runID uuid.UUID, rows []model.StatRow) *RowSource {
	return &RowSource{runID: runID, rows: rows}
}

// Next advances to the next row. Returns false after the last row.
func (s *RowSource) Next() bool {
	if s.idx >= len(s.rows) {
		return false
	}
	s.idx++
	return true
}

// Values returns the current row's values in COPY column order.
func (s *RowSource) Values() ([]any, error) {
	return s.rows[s.idx-1].CopyValues(s.runID, s.idx), nil
}

// Err always returns nil; a slice cannot fail mid-iteration.
func (s *RowSource) Err() error {
	return nil
}

// Compile-time check that RowSource satisfies the interface.
var _ pgx.CopyFromSource = (*RowSource)(nil)
