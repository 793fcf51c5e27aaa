package extract

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

// Extractor pulls from the NWS client and writes raw rows. Inserts are
// idempotent on their natural keys, so overlapping fetch windows are safe.
type Extractor struct {
	client *Client
	store  *store.Store
	log    *zap.Logger
}

func NewExtractor(client *Client, st *store.Store, log *zap.Logger) *Extractor {
	return &Extractor{client: client, store: st, log: log.Named("extract")}
}

// ExtractCurrentAndHourly is the frequent extract: latest station observation
// plus the 48-hour forecast.
func (e *Extractor) ExtractCurrentAndHourly(ctx context.Context) error {
	return e.run(ctx, "extract", func(ctx context.Context) (int, error) {
		inserted := 0

		cw, err := e.client.FetchCurrent(ctx)
		if err != nil {
			return inserted, fmt.Errorf("fetch current: %w", err)
		}
		if err := e.store.InsertCurrentWeather(*cw); err != nil {
			return inserted, fmt.Errorf("insert current: %w", err)
		}
		inserted++
		metrics.RecordsIngested.WithLabelValues("current_weather").Inc()

		hourly, err := e.client.FetchHourly(ctx)
		if err != nil {
			return inserted, fmt.Errorf("fetch hourly: %w", err)
		}
		n, err := e.store.InsertHourlyWeather(hourly)
		if err != nil {
			return inserted + n, fmt.Errorf("insert hourly: %w", err)
		}
		inserted += n
		metrics.RecordsIngested.WithLabelValues("hourly_weather").Add(float64(n))

		e.log.Info("extract complete",
			zap.Int("hourly_fetched", len(hourly)),
			zap.Int("inserted", inserted))
		return inserted, nil
	})
}

// ExtractDaily is the once-a-day extract of the multi-day forecast.
func (e *Extractor) ExtractDaily(ctx context.Context) error {
	return e.run(ctx, "extract_daily", func(ctx context.Context) (int, error) {
		daily, err := e.client.FetchDaily(ctx)
		if err != nil {
			return 0, fmt.Errorf("fetch daily: %w", err)
		}
		n, err := e.store.InsertDailyWeather(daily)
		if err != nil {
			return n, fmt.Errorf("insert daily: %w", err)
		}
		metrics.RecordsIngested.WithLabelValues("daily_weather").Add(float64(n))

		e.log.Info("daily extract complete",
			zap.Int("fetched", len(daily)),
			zap.Int("inserted", n))
		return n, nil
	})
}

func (e *Extractor) run(ctx context.Context, stage string, fn func(context.Context) (int, error)) error {
	run := models.PipelineRun{
		ID:        uuid.NewString(),
		Stage:     stage,
		StartedAt: time.Now().UTC(),
	}
	if err := e.store.StartPipelineRun(run); err != nil {
		return fmt.Errorf("start pipeline run: %w", err)
	}

	start := time.Now()
	inserted, err := fn(ctx)
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())

	run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	run.RowsOut = sql.NullInt64{Int64: int64(inserted), Valid: true}
	if err != nil {
		metrics.StageFailures.WithLabelValues(stage).Inc()
		run.Error = sql.NullString{String: err.Error(), Valid: true}
		if cerr := e.store.CompletePipelineRun(run); cerr != nil {
			e.log.Error("record failed pipeline run", zap.Error(cerr))
		}
		return err
	}

	run.Success = true
	if cerr := e.store.CompletePipelineRun(run); cerr != nil {
		e.log.Error("record pipeline run", zap.Error(cerr))
	}
	return nil
}
