package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeh/logstats/internal/model"
)

func TestName(t *testing.T) {
	t.Parallel()

	date := time.Date(2017, 6, 30, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "report-2017.06.30.parquet", Name(date))
	assert.Equal(t, filepath.Join("out", "report-2017.06.30.parquet"), Path("out", date))
}

func TestWriteReadAll(t *testing.T) {
	t.Parallel()

	rows := []model.StatRow{
		{URL: "/api/v2/banner/25019354", Count: 4, CountPerc: 50, TimeSum: 18, TimePerc: 72, TimeAvg: 4.5, TimeMax: 6, TimeMed: 4.5},
		{URL: "/api/1/photogenic_banners/list/?server_name=WIN7RB4", Count: 3, CountPerc: 37.5, TimeSum: 6, TimePerc: 24, TimeAvg: 2, TimeMax: 3, TimeMed: 2},
		{URL: "/export/appinstall_raw/2017-06-29/", Count: 1, CountPerc: 12.5, TimeSum: 1, TimePerc: 4, TimeAvg: 1, TimeMax: 1, TimeMed: 1},
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "report-2017.06.30.parquet")
	require.NoError(t, Write(path, rows))

	got, err := ReadAll(path)
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be renamed away")
}

func TestWriteEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, Write(path, nil))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, int64(0), r.NumRows())
}

func TestOpen_Missing(t *testing.T) {
	t.Parallel()

	_, err := Open(filepath.Join(t.TempDir(), "nope.parquet"))
	assert.Error(t, err)
}

func TestValidateSchema(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateSchema(parquet.SchemaOf(model.StatRow{})))

	type partial struct {
		URL   string `parquet:"url"`
		Count int64  `parquet:"count"`
	}
	err := ValidateSchema(parquet.SchemaOf(partial{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "time_sum")
}
