// Package export writes the statistics table as a Parquet file so the
// report can be loaded into columnar tooling alongside the HTML page.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/logstats/internal/model"
)

// Name returns the parquet file name for a log date.
func Name(date time.Time) string {
	return "report-" + date.Format("2006.01.02") + ".parquet"
}

// Path joins dir with Name(date).
func Path(dir string, date time.Time) string {
	return filepath.Join(dir, Name(date))
}

// Write stores rows at path. The file is written under a temporary name and
// renamed into place once complete.
func Write(path string, rows []model.StatRow) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	f, err := os.CreateTemp(dir, "."+strings.TrimSuffix(filepath.Base(path), ".parquet")+".*.tmp")
	if err != nil {
		return fmt.Errorf("create parquet file: %w", err)
	}
	tmpName := f.Name()
	fail := func(err error) error {
		f.Close()
		os.Remove(tmpName)
		return err
	}

	w := parquet.NewGenericWriter[model.StatRow](f)
	if _, err := w.Write(rows); err != nil {
		return fail(fmt.Errorf("write parquet rows: %w", err))
	}
	if err := w.Close(); err != nil {
		return fail(fmt.Errorf("close parquet writer: %w", err))
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close parquet file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename parquet file: %w", err)
	}
	return nil
}
