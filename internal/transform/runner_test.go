package transform

import (
	"context"
	"database/sql"
	"testing"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/bostonweather/pipeline/internal/models"
	"github.com/bostonweather/pipeline/internal/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	st := store.New(db, zap.NewNop())
	if err := st.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return st
}

func seedRawData(t *testing.T, st *store.Store) {
	t.Helper()
	if err := st.InsertCurrentWeather(models.CurrentWeather{
		Timestamp:   ts("2026-07-01T10:00:00Z"),
		Temp:        f(20),
		Humidity:    i(60),
		WindSpeed:   f(4),
		Description: str("clear"),
	}); err != nil {
		t.Fatalf("insert current: %v", err)
	}
	if _, err := st.InsertHourlyWeather([]models.HourlyWeather{
		{Timestamp: ts("2026-07-01T12:00:00Z"), Temp: f(22), Pop: f(0.2)},
		{Timestamp: ts("2026-07-02T12:00:00Z"), Temp: f(55), Pop: f(0.4)}, // temp out of range
	}); err != nil {
		t.Fatalf("insert hourly: %v", err)
	}
	if _, err := st.InsertDailyWeather([]models.DailyWeather{
		{Date: ts("2026-07-03T00:00:00Z"), TempMin: f(12), TempMax: f(26), Pop: f(0.1)},
	}); err != nil {
		t.Fatalf("insert daily: %v", err)
	}
}

func TestRunnerRun_BuildsAllDerivedTables(t *testing.T) {
	st := setupTestStore(t)
	seedRawData(t, st)

	r := NewRunner(st, zap.NewNop())
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for table, want := range map[string]int{
		"stg_current_weather":   1,
		"stg_hourly_weather":    2,
		"stg_daily_weather":     1,
		"daily_weather_summary": 3,
		// Only 2026-07-01 has a final temp: 07-02's hourly temp is nulled in
		// cleaning and 07-03 is forecast-only.
		"weather_trends":  1,
		"weather_summary": 3,
	} {
		n, err := st.CountRows(table)
		if err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n != want {
			t.Errorf("%s has %d rows, want %d", table, n, want)
		}
	}
}

func TestRunnerRun_Idempotent(t *testing.T) {
	st := setupTestStore(t)
	seedRawData(t, st)

	r := NewRunner(st, zap.NewNop())
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	first, err := st.GetDailySummaries(100)
	if err != nil {
		t.Fatalf("read summaries: %v", err)
	}

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	second, err := st.GetDailySummaries(100)
	if err != nil {
		t.Fatalf("reread summaries: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("row count changed across runs: %d vs %d", len(first), len(second))
	}
	for k := range first {
		a, b := first[k], second[k]
		if !a.Date.Equal(b.Date) || a.FinalTempAvg != b.FinalTempAvg || a.FinalPop != b.FinalPop {
			t.Errorf("summary %d changed across runs: %+v vs %+v", k, a, b)
		}
	}
}

func TestRunnerRun_RecordsPipelineRun(t *testing.T) {
	st := setupTestStore(t)
	seedRawData(t, st)

	r := NewRunner(st, zap.NewNop())
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	runs, err := st.GetRecentPipelineRuns(10)
	if err != nil {
		t.Fatalf("GetRecentPipelineRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}
	run := runs[0]
	if run.Stage != "transform" {
		t.Errorf("Stage = %q, want transform", run.Stage)
	}
	if !run.Success {
		t.Error("run should be marked successful")
	}
	if !run.RowsIn.Valid || run.RowsIn.Int64 != 4 {
		t.Errorf("RowsIn = %v, want 4", run.RowsIn)
	}
	if !run.FinishedAt.Valid {
		t.Error("FinishedAt should be set")
	}
}

func TestRunnerRun_OutOfRangeValuesNulledInStaging(t *testing.T) {
	st := setupTestStore(t)
	seedRawData(t, st)

	r := NewRunner(st, zap.NewNop())
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	summaries, err := st.GetDailySummaries(100)
	if err != nil {
		t.Fatalf("read summaries: %v", err)
	}
	// Summaries come back date-descending; 2026-07-02 is in the middle.
	var jul2 *models.DailySummary
	for k := range summaries {
		if summaries[k].Date.Format("2006-01-02") == "2026-07-02" {
			jul2 = &summaries[k]
		}
	}
	if jul2 == nil {
		t.Fatal("no summary for 2026-07-02")
	}
	if jul2.HourlyTempAvg.Valid {
		t.Errorf("HourlyTempAvg = %v, want null (55C nulled in cleaning)", jul2.HourlyTempAvg)
	}
	if !jul2.HourlyPopAvg.Valid || jul2.HourlyPopAvg.Float64 != 0.4 {
		t.Errorf("HourlyPopAvg = %v, want 0.4", jul2.HourlyPopAvg)
	}
}
