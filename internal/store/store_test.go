package store

import (
	"database/sql"
	"testing"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/bostonweather/pipeline/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := New(db, zap.NewNop())
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func f(v float64) sql.NullFloat64 { return sql.NullFloat64{Float64: v, Valid: true} }
func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestMigrate_Idempotent(t *testing.T) {
	store := setupTestStore(t)

	if err := store.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	ver, err := store.MigrationVersion()
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if ver != len(migrations) {
		t.Errorf("version = %d, want %d", ver, len(migrations))
	}
}

func TestInsertCurrentWeather_DuplicateTimestampIgnored(t *testing.T) {
	store := setupTestStore(t)

	cw := models.CurrentWeather{Timestamp: ts("2026-07-01T10:00:00Z"), Temp: f(20)}
	if err := store.InsertCurrentWeather(cw); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	cw.Temp = f(99)
	if err := store.InsertCurrentWeather(cw); err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}

	rows, err := store.GetCurrentWeather()
	if err != nil {
		t.Fatalf("GetCurrentWeather: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1", len(rows))
	}
	if rows[0].Temp.Float64 != 20 {
		t.Errorf("Temp = %v, want original 20 kept", rows[0].Temp)
	}
}

func TestInsertHourlyWeather_ReportsInsertedCount(t *testing.T) {
	store := setupTestStore(t)

	rows := []models.HourlyWeather{
		{Timestamp: ts("2026-07-01T10:00:00Z"), Temp: f(20)},
		{Timestamp: ts("2026-07-01T11:00:00Z"), Temp: f(21)},
	}
	n, err := store.InsertHourlyWeather(rows)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n != 2 {
		t.Errorf("inserted = %d, want 2", n)
	}

	// Overlapping window: one new row, one duplicate.
	n, err = store.InsertHourlyWeather([]models.HourlyWeather{
		{Timestamp: ts("2026-07-01T11:00:00Z"), Temp: f(21)},
		{Timestamp: ts("2026-07-01T12:00:00Z"), Temp: f(22)},
	})
	if err != nil {
		t.Fatalf("reinsert: %v", err)
	}
	if n != 1 {
		t.Errorf("inserted = %d, want 1", n)
	}
}

func TestGetLatestCurrentWeather(t *testing.T) {
	store := setupTestStore(t)

	latest, err := store.GetLatestCurrentWeather()
	if err != nil {
		t.Fatalf("empty table: %v", err)
	}
	if latest != nil {
		t.Fatal("want nil on empty table")
	}

	for _, s := range []string{"2026-07-01T10:00:00Z", "2026-07-01T12:00:00Z", "2026-07-01T11:00:00Z"} {
		if err := store.InsertCurrentWeather(models.CurrentWeather{Timestamp: ts(s)}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	latest, err = store.GetLatestCurrentWeather()
	if err != nil {
		t.Fatalf("GetLatestCurrentWeather: %v", err)
	}
	if latest == nil || !latest.Timestamp.Equal(ts("2026-07-01T12:00:00Z")) {
		t.Errorf("latest = %v, want 12:00", latest)
	}
}

func TestReplaceStagingCurrent_ReplacesPriorContents(t *testing.T) {
	store := setupTestStore(t)

	first := []models.CleanCurrent{
		{Timestamp: ts("2026-07-01T10:00:00Z"), Temp: f(20)},
		{Timestamp: ts("2026-07-01T11:00:00Z"), Temp: f(21)},
	}
	if err := store.ReplaceStagingCurrent(first); err != nil {
		t.Fatalf("first replace: %v", err)
	}

	second := []models.CleanCurrent{
		{Timestamp: ts("2026-07-02T10:00:00Z"), Temp: f(25)},
	}
	if err := store.ReplaceStagingCurrent(second); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	rows, err := store.GetStagingCurrent()
	if err != nil {
		t.Fatalf("GetStagingCurrent: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("len(rows) = %d, want 1 (old rows cleared)", len(rows))
	}
	if !rows[0].Timestamp.Equal(ts("2026-07-02T10:00:00Z")) {
		t.Errorf("Timestamp = %v, want replaced row", rows[0].Timestamp)
	}
}

func TestReplaceDailySummaries_RoundTrip(t *testing.T) {
	store := setupTestStore(t)

	in := []models.DailySummary{{
		Date:         ts("2026-07-01T00:00:00Z"),
		FinalTempAvg: f(21.5),
		FinalPop:     f(0.3),
		CurrentCount: 4,
		Season:       sql.NullString{String: "summer", Valid: true},
	}}
	if err := store.ReplaceDailySummaries(in); err != nil {
		t.Fatalf("ReplaceDailySummaries: %v", err)
	}

	out, err := store.GetDailySummaries(10)
	if err != nil {
		t.Fatalf("GetDailySummaries: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}
	got := out[0]
	if got.FinalTempAvg != in[0].FinalTempAvg || got.FinalPop != in[0].FinalPop {
		t.Errorf("finals = %v/%v, want %v/%v", got.FinalTempAvg, got.FinalPop, in[0].FinalTempAvg, in[0].FinalPop)
	}
	if got.CurrentCount != 4 {
		t.Errorf("CurrentCount = %d, want 4", got.CurrentCount)
	}
	if got.LastUpdated.IsZero() {
		t.Error("LastUpdated should be stamped on insert")
	}
}

func TestPipelineRunLifecycle(t *testing.T) {
	store := setupTestStore(t)

	run := models.PipelineRun{
		ID:        "run-1",
		Stage:     "extract",
		StartedAt: ts("2026-07-01T10:00:00Z"),
	}
	if err := store.StartPipelineRun(run); err != nil {
		t.Fatalf("StartPipelineRun: %v", err)
	}

	run.FinishedAt = sql.NullTime{Time: ts("2026-07-01T10:00:05Z"), Valid: true}
	run.Success = true
	run.RowsOut = sql.NullInt64{Int64: 49, Valid: true}
	if err := store.CompletePipelineRun(run); err != nil {
		t.Fatalf("CompletePipelineRun: %v", err)
	}

	runs, err := store.GetRecentPipelineRuns(10)
	if err != nil {
		t.Fatalf("GetRecentPipelineRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}
	got := runs[0]
	if !got.Success || got.RowsOut.Int64 != 49 {
		t.Errorf("run = %+v, want success with 49 rows", got)
	}
}

func TestCountRows_RejectsUnknownTable(t *testing.T) {
	store := setupTestStore(t)
	if _, err := store.CountRows("sqlite_master"); err == nil {
		t.Error("want error for table outside allowlist")
	}
}
