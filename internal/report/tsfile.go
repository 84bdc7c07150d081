package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TouchTimestamp appends now as unix seconds to the file at path and sets
// the file's access and modification times to now. Monitoring reads the
// mtime to learn when the last successful run finished.
func TouchTimestamp(path string, now time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create ts dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open ts file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", now.Unix()); err != nil {
		f.Close()
		return fmt.Errorf("write ts file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close ts file: %w", err)
	}
	if err := os.Chtimes(path, now, now); err != nil {
		return fmt.Errorf("set ts mtime: %w", err)
	}
	return nil
}
