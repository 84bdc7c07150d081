package logfile

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"
)

// DefaultPrefix is the nginx access log naming convention.
const DefaultPrefix = "nginx-access-ui.log-"

const dateLayout = "20060102"

// nameSuffixRe matches the part after the prefix: an 8-digit date and an
// optional known extension.
var nameSuffixRe = regexp.MustCompile(`^(\d{8})(?:\.(?:gz|zst|lz4|xz|br|txt|log))?$`)

// LogFile is a log selected for analysis.
type LogFile struct {
	Path string
	Name string
	Date time.Time
}

// ParseName returns the date embedded in name, or ok=false when name does
// not follow the prefix + YYYYMMDD[.ext] convention.
func ParseName(name, prefix string) (time.Time, bool) {
	if len(name) <= len(prefix) || name[:len(prefix)] != prefix {
		return time.Time{}, false
	}
	m := nameSuffixRe.FindStringSubmatch(name[len(prefix):])
	if m == nil {
		return time.Time{}, false
	}
	date, err := time.Parse(dateLayout, m[1])
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

// FindLatest returns the newest log in dir. A missing directory is an error;
// a directory with no matching log returns nil, nil.
func FindLatest(dir, prefix string) (*LogFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read log dir: %w", err)
	}

	var found []LogFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		date, ok := ParseName(entry.Name(), prefix)
		if !ok {
			continue
		}
		found = append(found, LogFile{
			Path: filepath.Join(dir, entry.Name()),
			Name: entry.Name(),
			Date: date,
		})
	}
	if len(found) == 0 {
		return nil, nil
	}

	sort.Slice(found, func(i, j int) bool {
		if !found[i].Date.Equal(found[j].Date) {
			return found[i].Date.Before(found[j].Date)
		}
		return found[i].Name < found[j].Name
	})
	latest := found[len(found)-1]
	return &latest, nil
}
