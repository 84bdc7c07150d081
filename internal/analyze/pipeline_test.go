package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"

	"github.com/gyeh/logstats/internal/aggregate"
	"github.com/gyeh/logstats/internal/config"
	"github.com/gyeh/logstats/internal/export"
	"github.com/gyeh/logstats/internal/logfile"
	"github.com/gyeh/logstats/internal/model"
	"github.com/gyeh/logstats/internal/report"
)

const testTemplate = "<html><script>var table = $table_json;</script></html>"

func logLine(url string, latency float64) string {
	return fmt.Sprintf(`1.196.116.32 -  - [29/Jun/2017:03:50:22 +0300] "GET %s HTTP/1.1" 200 927 "-" "Lynx/2.8.8dev.9 libwww-FM/2.14" "-" "1498697422-2190034393-4708-9752759" "dc7161be3" %.3f`, url, latency)
}

// exampleLines is the three-URL log from the stats examples: /url2 dominates
// by total time, /url3 is a single fast request.
func exampleLines() []string {
	return []string{
		logLine("/url1", 1),
		logLine("/url2", 3),
		logLine("/url1", 2),
		logLine("/url2", 4),
		logLine("/url3", 1),
		logLine("/url1", 3),
		logLine("/url2", 5),
		logLine("/url2", 6),
	}
}

type fixture struct {
	cfg    *config.Config
	logDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()

	cfg := config.Default()
	cfg.LogDir = filepath.Join(root, "log")
	cfg.ReportDir = filepath.Join(root, "reports")
	cfg.TSFile = filepath.Join(root, "run", "logstats.ts")

	for _, dir := range []string{cfg.LogDir, cfg.ReportDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(cfg.TemplatePath(), []byte(testTemplate), 0644); err != nil {
		t.Fatal(err)
	}
	return &fixture{cfg: &cfg, logDir: cfg.LogDir}
}

func (f *fixture) writeLog(t *testing.T, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(f.logDir, name)
	data := []byte(strings.Join(lines, "\n") + "\n")

	if strings.HasSuffix(name, ".gz") {
		out, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		zw := gzip.NewWriter(out)
		if _, err := zw.Write(data); err != nil {
			t.Fatal(err)
		}
		if err := zw.Close(); err != nil {
			t.Fatal(err)
		}
		if err := out.Close(); err != nil {
			t.Fatal(err)
		}
		return path
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

type recordingStore struct {
	calls int
	sum   model.RunSummary
	rows  []model.StatRow
	err   error
}

func (s *recordingStore) SaveRun(_ context.Context, sum *model.RunSummary, rows []model.StatRow) error {
	s.calls++
	s.sum = *sum
	s.rows = rows
	return s.err
}

func readTable(t *testing.T, path string) []model.StatRow {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	page := string(data)
	start := strings.Index(page, "var table = ") + len("var table = ")
	end := strings.Index(page, ";</script>")
	var rows []model.StatRow
	if err := json.Unmarshal([]byte(page[start:end]), &rows); err != nil {
		t.Fatalf("decode table: %v\n%s", err, page)
	}
	return rows
}

func fixedNow() time.Time {
	return time.Unix(1498867200, 0)
}

func TestRun_EndToEnd(t *testing.T) {
	f := newFixture(t)
	f.cfg.ParquetDir = filepath.Join(f.cfg.ReportDir, "parquet")
	f.cfg.Chart = true
	f.writeLog(t, "nginx-access-ui.log-20170630", exampleLines())
	st := &recordingStore{}

	sum, err := Run(context.Background(), zerolog.Nop(), f.cfg, Options{Store: st, Now: fixedNow})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sum.Outcome != model.OutcomeReported {
		t.Fatalf("outcome: got %s", sum.Outcome)
	}
	wantReport := filepath.Join(f.cfg.ReportDir, "report-2017.06.30.html")
	if sum.ReportPath != wantReport {
		t.Errorf("report path: got %s, want %s", sum.ReportPath, wantReport)
	}
	if sum.TotalLines != 8 || sum.ErrorLines != 0 || sum.TotalURLs != 8 || sum.DistinctURLs != 3 {
		t.Errorf("unexpected counters: %+v", sum)
	}
	if sum.TotalLatency != 25 {
		t.Errorf("total latency: got %v", sum.TotalLatency)
	}
	if len(sum.LogSHA256) != 64 {
		t.Errorf("expected hex sha256, got %q", sum.LogSHA256)
	}

	rows := readTable(t, wantReport)
	want := []model.StatRow{
		{URL: "/url2", Count: 4, CountPerc: 50, TimeSum: 18, TimePerc: 72, TimeAvg: 4.5, TimeMax: 6, TimeMed: 4.5},
		{URL: "/url1", Count: 3, CountPerc: 37.5, TimeSum: 6, TimePerc: 24, TimeAvg: 2, TimeMax: 3, TimeMed: 2},
		{URL: "/url3", Count: 1, CountPerc: 12.5, TimeSum: 1, TimePerc: 4, TimeAvg: 1, TimeMax: 1, TimeMed: 1},
	}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rows))
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("row %d: got %+v, want %+v", i, rows[i], want[i])
		}
	}

	if _, err := os.Stat(report.ChartPath(f.cfg.ReportDir, sum.LogDate)); err != nil {
		t.Errorf("chart not written: %v", err)
	}

	exported, err := export.ReadAll(export.Path(f.cfg.ParquetDir, sum.LogDate))
	if err != nil {
		t.Fatalf("read parquet: %v", err)
	}
	if len(exported) != 3 || exported[0] != want[0] {
		t.Errorf("parquet rows: %+v", exported)
	}

	if st.calls != 1 || st.sum.RunID != sum.RunID || len(st.rows) != 3 {
		t.Errorf("store: calls=%d run=%s rows=%d", st.calls, st.sum.RunID, len(st.rows))
	}
	if st.sum.Outcome != model.OutcomeReported {
		t.Errorf("stored outcome: got %s", st.sum.Outcome)
	}
	if st.sum.DurationTotal <= 0 {
		t.Errorf("stored run has no duration: %v", st.sum.DurationTotal)
	}

	fi, err := os.Stat(f.cfg.TSFile)
	if err != nil {
		t.Fatalf("ts file: %v", err)
	}
	if !fi.ModTime().Equal(fixedNow()) {
		t.Errorf("ts mtime: got %v, want %v", fi.ModTime(), fixedNow())
	}
}

func TestRun_SecondRunIsNoop(t *testing.T) {
	f := newFixture(t)
	f.writeLog(t, "nginx-access-ui.log-20170630", exampleLines())
	st := &recordingStore{}
	opts := Options{Store: st, Now: fixedNow}

	first, err := Run(context.Background(), zerolog.Nop(), f.cfg, opts)
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	before, err := os.ReadFile(first.ReportPath)
	if err != nil {
		t.Fatal(err)
	}
	old := time.Unix(1000000000, 0)
	if err := os.Chtimes(first.ReportPath, old, old); err != nil {
		t.Fatal(err)
	}
	tsBefore, _ := os.ReadFile(f.cfg.TSFile)

	opts.Now = func() time.Time { return fixedNow().Add(time.Hour) }
	second, err := Run(context.Background(), zerolog.Nop(), f.cfg, opts)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.Outcome != model.OutcomeAlreadyReported {
		t.Fatalf("outcome: got %s", second.Outcome)
	}

	after, _ := os.ReadFile(first.ReportPath)
	if string(after) != string(before) {
		t.Error("report content changed on second run")
	}
	fi, _ := os.Stat(first.ReportPath)
	if !fi.ModTime().Equal(old) {
		t.Errorf("report mtime changed: %v", fi.ModTime())
	}
	tsAfter, _ := os.ReadFile(f.cfg.TSFile)
	if string(tsAfter) != string(tsBefore) {
		t.Error("ts file touched by no-op run")
	}
	if st.calls != 1 {
		t.Errorf("store called %d times, want 1", st.calls)
	}
}

func TestRun_PicksLatestLog(t *testing.T) {
	f := newFixture(t)
	f.writeLog(t, "nginx-access-ui.log-20170629.gz", []string{logLine("/old", 9)})
	f.writeLog(t, "nginx-access-ui.log-20170701.gz", exampleLines())
	f.writeLog(t, "nginx-access-ui.log-20170631", []string{logLine("/bad-date", 1)})
	f.writeLog(t, "other-access.log-20170801", []string{logLine("/other", 1)})

	sum, err := Run(context.Background(), zerolog.Nop(), f.cfg, Options{Now: fixedNow})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if filepath.Base(sum.LogPath) != "nginx-access-ui.log-20170701.gz" {
		t.Errorf("picked %s", sum.LogPath)
	}
	if filepath.Base(sum.ReportPath) != "report-2017.07.01.html" {
		t.Errorf("report: %s", sum.ReportPath)
	}
	if rows := readTable(t, sum.ReportPath); len(rows) != 3 || rows[0].URL != "/url2" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestRun_NoLogs(t *testing.T) {
	f := newFixture(t)

	sum, err := Run(context.Background(), zerolog.Nop(), f.cfg, Options{Now: fixedNow})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Outcome != model.OutcomeNoLogs {
		t.Errorf("outcome: got %s", sum.Outcome)
	}
	if _, err := os.Stat(f.cfg.TSFile); !os.IsNotExist(err) {
		t.Error("ts file should not be written without a report")
	}
}

func TestRun_MissingLogDir(t *testing.T) {
	f := newFixture(t)
	f.cfg.LogDir = filepath.Join(f.cfg.LogDir, "missing")

	_, err := Run(context.Background(), zerolog.Nop(), f.cfg, Options{Now: fixedNow})
	var pe *PipelineError
	if !errors.As(err, &pe) || pe.Phase != PhaseLocate {
		t.Fatalf("expected locate PipelineError, got %v", err)
	}
	var oe *logfile.OpenError
	if !errors.As(err, &oe) {
		t.Errorf("expected OpenError in chain, got %v", err)
	}
}

func TestRun_ErrorRateExceeded(t *testing.T) {
	f := newFixture(t)
	var lines []string
	for i := 0; i < 150; i++ {
		lines = append(lines, logLine("/ok", 0.1))
		lines = append(lines, "garbage line without structure")
	}
	f.writeLog(t, "nginx-access-ui.log-20170630", lines)
	st := &recordingStore{}

	sum, err := Run(context.Background(), zerolog.Nop(), f.cfg, Options{Store: st, Now: fixedNow})
	if !errors.Is(err, aggregate.ErrErrorRateExceeded) {
		t.Fatalf("expected ErrErrorRateExceeded, got %v", err)
	}
	var pe *PipelineError
	if !errors.As(err, &pe) || pe.Phase != PhaseAggregate {
		t.Errorf("expected aggregate phase, got %v", err)
	}
	if sum == nil || sum.Outcome != model.OutcomeFailed {
		t.Errorf("expected failed summary, got %+v", sum)
	}
	if ok, _ := report.Exists(report.Path(f.cfg.ReportDir, time.Date(2017, 6, 30, 0, 0, 0, 0, time.UTC))); ok {
		t.Error("no report should be written after abort")
	}
	if _, err := os.Stat(f.cfg.TSFile); !os.IsNotExist(err) {
		t.Error("ts file should not be written after abort")
	}
	if st.calls != 0 {
		t.Error("store should not be called after abort")
	}
}

func TestRun_ErrorsWithinTolerance(t *testing.T) {
	f := newFixture(t)
	lines := exampleLines()
	lines = append(lines, "garbage")
	f.writeLog(t, "nginx-access-ui.log-20170630", lines)

	sum, err := Run(context.Background(), zerolog.Nop(), f.cfg, Options{Now: fixedNow})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.ErrorLines != 1 || sum.TotalLines != 9 {
		t.Errorf("counters: %+v", sum)
	}
	if rows := readTable(t, sum.ReportPath); rows[0].CountPerc != 50 {
		t.Errorf("unparsed lines must not affect percentages: %+v", rows[0])
	}
}

func TestRun_NoData(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
	}{
		{"all unparsed below warmup", []string{"garbage", "more garbage"}},
		{"zero total latency", []string{logLine("/a", 0), logLine("/b", 0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.writeLog(t, "nginx-access-ui.log-20170630", tt.lines)

			sum, err := Run(context.Background(), zerolog.Nop(), f.cfg, Options{Now: fixedNow})
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			if sum.Outcome != model.OutcomeNoData {
				t.Errorf("outcome: got %s", sum.Outcome)
			}
			if ok, _ := report.Exists(sum.ReportPath); ok {
				t.Error("no report should be written without data")
			}
			if _, err := os.Stat(f.cfg.TSFile); !os.IsNotExist(err) {
				t.Error("ts file should not be written without a report")
			}
		})
	}
}

func TestRun_ReportSizeLimitsRows(t *testing.T) {
	f := newFixture(t)
	f.cfg.ReportSize = 2
	f.writeLog(t, "nginx-access-ui.log-20170630", exampleLines())

	sum, err := Run(context.Background(), zerolog.Nop(), f.cfg, Options{Now: fixedNow})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	rows := readTable(t, sum.ReportPath)
	if len(rows) != 2 || sum.RowsRendered != 2 {
		t.Fatalf("expected 2 rows, got %d (summary %d)", len(rows), sum.RowsRendered)
	}
	// Percentages still refer to the whole log.
	if rows[1].URL != "/url1" || rows[1].CountPerc != 37.5 {
		t.Errorf("unexpected second row: %+v", rows[1])
	}
}

func TestRun_MissingTemplate(t *testing.T) {
	f := newFixture(t)
	f.cfg.Template = filepath.Join(f.cfg.ReportDir, "absent.html")
	f.writeLog(t, "nginx-access-ui.log-20170630", exampleLines())

	_, err := Run(context.Background(), zerolog.Nop(), f.cfg, Options{Now: fixedNow})
	var te *report.TemplateError
	if !errors.As(err, &te) {
		t.Fatalf("expected TemplateError, got %v", err)
	}
	var pe *PipelineError
	if !errors.As(err, &pe) || pe.Phase != PhaseRender {
		t.Errorf("expected render phase, got %v", err)
	}
	if _, err := os.Stat(f.cfg.TSFile); !os.IsNotExist(err) {
		t.Error("ts file should not be written on render failure")
	}
}

func TestRun_StoreFailure(t *testing.T) {
	f := newFixture(t)
	f.writeLog(t, "nginx-access-ui.log-20170630", exampleLines())
	st := &recordingStore{err: errors.New("connection refused")}

	_, err := Run(context.Background(), zerolog.Nop(), f.cfg, Options{Store: st, Now: fixedNow})
	var pe *PipelineError
	if !errors.As(err, &pe) || pe.Phase != PhaseStore {
		t.Fatalf("expected store phase error, got %v", err)
	}
	if _, err := os.Stat(f.cfg.TSFile); !os.IsNotExist(err) {
		t.Error("ts file should not be written when the store fails")
	}
}

func TestRun_CorruptCompressedLog(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.logDir, "nginx-access-ui.log-20170630.gz")
	if err := os.WriteFile(path, []byte("not gzip at all"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Run(context.Background(), zerolog.Nop(), f.cfg, Options{Now: fixedNow})
	var oe *logfile.OpenError
	if !errors.As(err, &oe) {
		t.Fatalf("expected OpenError, got %v", err)
	}
}

func TestRun_Canceled(t *testing.T) {
	f := newFixture(t)
	lines := make([]string, 0, 10000)
	for i := 0; i < 10000; i++ {
		lines = append(lines, logLine("/busy", 0.01))
	}
	f.writeLog(t, "nginx-access-ui.log-20170630", lines)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, zerolog.Nop(), f.cfg, Options{Now: fixedNow})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
