package transform

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bostonweather/pipeline/internal/metrics"
	"github.com/bostonweather/pipeline/internal/models"
	"github.com/bostonweather/pipeline/internal/store"
)

// Runner executes the full transform chain: clean, aggregate, analyze,
// report. Each run rereads every raw row and rebuilds the derived tables from
// scratch, so running it twice over unchanged raw data is a no-op.
type Runner struct {
	store *store.Store
	log   *zap.Logger
}

func NewRunner(st *store.Store, log *zap.Logger) *Runner {
	return &Runner{store: st, log: log.Named("transform")}
}

func (r *Runner) Run(ctx context.Context) error {
	run := models.PipelineRun{
		ID:        uuid.NewString(),
		Stage:     "transform",
		StartedAt: time.Now().UTC(),
	}
	if err := r.store.StartPipelineRun(run); err != nil {
		return fmt.Errorf("start pipeline run: %w", err)
	}

	start := time.Now()
	rowsIn, rowsOut, err := r.runStages(ctx)
	metrics.StageDuration.WithLabelValues("transform").Observe(time.Since(start).Seconds())

	run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	run.RowsIn = sql.NullInt64{Int64: int64(rowsIn), Valid: true}
	run.RowsOut = sql.NullInt64{Int64: int64(rowsOut), Valid: true}
	if err != nil {
		metrics.StageFailures.WithLabelValues("transform").Inc()
		run.Error = sql.NullString{String: err.Error(), Valid: true}
		if cerr := r.store.CompletePipelineRun(run); cerr != nil {
			r.log.Error("record failed pipeline run", zap.Error(cerr))
		}
		return err
	}

	run.Success = true
	if cerr := r.store.CompletePipelineRun(run); cerr != nil {
		r.log.Error("record pipeline run", zap.Error(cerr))
	}

	r.log.Info("transform complete",
		zap.Int("rows_in", rowsIn),
		zap.Int("rows_out", rowsOut),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (r *Runner) runStages(ctx context.Context) (rowsIn, rowsOut int, err error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	rawCurrent, err := r.store.GetCurrentWeather()
	if err != nil {
		return 0, 0, fmt.Errorf("read current_weather: %w", err)
	}
	rawHourly, err := r.store.GetHourlyWeather()
	if err != nil {
		return 0, 0, fmt.Errorf("read hourly_weather: %w", err)
	}
	rawDaily, err := r.store.GetDailyWeather()
	if err != nil {
		return 0, 0, fmt.Errorf("read daily_weather: %w", err)
	}
	rowsIn = len(rawCurrent) + len(rawHourly) + len(rawDaily)

	cleanCurrent := CleanCurrentRows(rawCurrent)
	cleanHourly := CleanHourlyRows(rawHourly)
	cleanDaily := CleanDailyRows(rawDaily)

	if err := r.store.ReplaceStagingCurrent(cleanCurrent); err != nil {
		return rowsIn, 0, fmt.Errorf("write stg_current_weather: %w", err)
	}
	if err := r.store.ReplaceStagingHourly(cleanHourly); err != nil {
		return rowsIn, 0, fmt.Errorf("write stg_hourly_weather: %w", err)
	}
	if err := r.store.ReplaceStagingDaily(cleanDaily); err != nil {
		return rowsIn, 0, fmt.Errorf("write stg_daily_weather: %w", err)
	}
	metrics.StageRows.WithLabelValues("clean").Set(float64(len(cleanCurrent) + len(cleanHourly) + len(cleanDaily)))

	summaries := BuildDailySummaries(cleanCurrent, cleanHourly, cleanDaily)
	if err := r.store.ReplaceDailySummaries(summaries); err != nil {
		return rowsIn, 0, fmt.Errorf("write daily_weather_summary: %w", err)
	}
	metrics.StageRows.WithLabelValues("aggregate").Set(float64(len(summaries)))

	trends := BuildTrends(summaries)
	if err := r.store.ReplaceTrends(trends); err != nil {
		return rowsIn, 0, fmt.Errorf("write weather_trends: %w", err)
	}
	metrics.StageRows.WithLabelValues("analytics").Set(float64(len(trends)))

	report := BuildReport(summaries, trends)
	if err := r.store.ReplaceReport(report); err != nil {
		return rowsIn, 0, fmt.Errorf("write weather_summary: %w", err)
	}
	metrics.StageRows.WithLabelValues("report").Set(float64(len(report)))

	rowsOut = len(summaries) + len(trends) + len(report)
	return rowsIn, rowsOut, nil
}
