// Package report renders the per-URL statistics table into an HTML page
// built from a template containing a single $table_json placeholder.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gyeh/logstats/internal/model"
)

// Placeholder is the token in the template replaced by the JSON row array.
const Placeholder = "$table_json"

const nameLayout = "2006.01.02"

// TemplateError reports a template that could not be read.
type TemplateError struct {
	Path string
	Err  error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("report template %s: %s", e.Path, e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

// WriteError reports a failure to produce the output file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write report %s: %s", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Name returns the report file name for a log date.
func Name(date time.Time) string {
	return "report-" + date.Format(nameLayout) + ".html"
}

// Path joins dir with Name(date).
func Path(dir string, date time.Time) string {
	return filepath.Join(dir, Name(date))
}

// Exists reports whether a regular file is present at path.
func Exists(path string) (bool, error) {
	fi, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return fi.Mode().IsRegular(), nil
}

// Render substitutes rows into the template at templatePath and writes the
// result to outPath. The output appears atomically: readers never see a
// partial report.
func Render(rows []model.StatRow, templatePath, outPath string) error {
	tmpl, err := os.ReadFile(templatePath)
	if err != nil {
		return &TemplateError{Path: templatePath, Err: err}
	}
	if !strings.Contains(string(tmpl), Placeholder) {
		return &TemplateError{Path: templatePath, Err: fmt.Errorf("missing %s placeholder", Placeholder)}
	}

	if rows == nil {
		rows = []model.StatRow{}
	}
	table, err := json.Marshal(rows)
	if err != nil {
		return &WriteError{Path: outPath, Err: fmt.Errorf("encode rows: %w", err)}
	}

	page := strings.ReplaceAll(string(tmpl), Placeholder, string(table))
	if err := writeAtomic(outPath, []byte(page)); err != nil {
		return &WriteError{Path: outPath, Err: err}
	}
	return nil
}

// writeAtomic writes data to a temp file beside path and renames it into place.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
