package store

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/bostonweather/pipeline/internal/models"
)

// Store wraps the embedded SQLite database holding both the raw observation
// tables and every derived table the transformation stages rebuild.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

func New(db *sql.DB, log *zap.Logger) *Store {
	return &Store{db: db, log: log.Named("store")}
}

func (s *Store) InsertCurrentWeather(cw models.CurrentWeather) error {
	_, err := s.db.Exec(`
		INSERT INTO current_weather (timestamp, temp, feels_like, humidity, pressure, wind_speed, wind_deg, description, icon)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(timestamp) DO NOTHING
	`, cw.Timestamp, cw.Temp, cw.FeelsLike, cw.Humidity, cw.Pressure, cw.WindSpeed, cw.WindDeg, cw.Description, cw.Icon)
	return err
}

func (s *Store) InsertHourlyWeather(rows []models.HourlyWeather) (int, error) {
	inserted := 0
	for _, hw := range rows {
		res, err := s.db.Exec(`
			INSERT INTO hourly_weather (timestamp, temp, feels_like, humidity, pressure, wind_speed, wind_deg, description, icon, pop)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(timestamp) DO NOTHING
		`, hw.Timestamp, hw.Temp, hw.FeelsLike, hw.Humidity, hw.Pressure, hw.WindSpeed, hw.WindDeg, hw.Description, hw.Icon, hw.Pop)
		if err != nil {
			return inserted, err
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	return inserted, nil
}

func (s *Store) InsertDailyWeather(rows []models.DailyWeather) (int, error) {
	inserted := 0
	for _, dw := range rows {
		res, err := s.db.Exec(`
			INSERT INTO daily_weather (date, temp_min, temp_max, temp_day, temp_night, humidity, pressure, wind_speed, wind_deg, description, icon, pop)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(date) DO NOTHING
		`, dw.Date, dw.TempMin, dw.TempMax, dw.TempDay, dw.TempNight, dw.Humidity, dw.Pressure, dw.WindSpeed, dw.WindDeg, dw.Description, dw.Icon, dw.Pop)
		if err != nil {
			return inserted, err
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	return inserted, nil
}

func (s *Store) GetCurrentWeather() ([]models.CurrentWeather, error) {
	rows, err := s.db.Query(`
		SELECT timestamp, temp, feels_like, humidity, pressure, wind_speed, wind_deg, description, icon
		FROM current_weather
		ORDER BY timestamp ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.CurrentWeather
	for rows.Next() {
		var cw models.CurrentWeather
		if err := rows.Scan(&cw.Timestamp, &cw.Temp, &cw.FeelsLike, &cw.Humidity, &cw.Pressure, &cw.WindSpeed, &cw.WindDeg, &cw.Description, &cw.Icon); err != nil {
			return nil, err
		}
		result = append(result, cw)
	}
	return result, rows.Err()
}

func (s *Store) GetHourlyWeather() ([]models.HourlyWeather, error) {
	rows, err := s.db.Query(`
		SELECT timestamp, temp, feels_like, humidity, pressure, wind_speed, wind_deg, description, icon, pop
		FROM hourly_weather
		ORDER BY timestamp ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.HourlyWeather
	for rows.Next() {
		var hw models.HourlyWeather
		if err := rows.Scan(&hw.Timestamp, &hw.Temp, &hw.FeelsLike, &hw.Humidity, &hw.Pressure, &hw.WindSpeed, &hw.WindDeg, &hw.Description, &hw.Icon, &hw.Pop); err != nil {
			return nil, err
		}
		result = append(result, hw)
	}
	return result, rows.Err()
}

func (s *Store) GetDailyWeather() ([]models.DailyWeather, error) {
	rows, err := s.db.Query(`
		SELECT date, temp_min, temp_max, temp_day, temp_night, humidity, pressure, wind_speed, wind_deg, description, icon, pop
		FROM daily_weather
		ORDER BY date ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.DailyWeather
	for rows.Next() {
		var dw models.DailyWeather
		if err := rows.Scan(&dw.Date, &dw.TempMin, &dw.TempMax, &dw.TempDay, &dw.TempNight, &dw.Humidity, &dw.Pressure, &dw.WindSpeed, &dw.WindDeg, &dw.Description, &dw.Icon, &dw.Pop); err != nil {
			return nil, err
		}
		result = append(result, dw)
	}
	return result, rows.Err()
}

func (s *Store) GetLatestCurrentWeather() (*models.CurrentWeather, error) {
	row := s.db.QueryRow(`
		SELECT timestamp, temp, feels_like, humidity, pressure, wind_speed, wind_deg, description, icon
		FROM current_weather
		ORDER BY timestamp DESC
		LIMIT 1
	`)

	var cw models.CurrentWeather
	err := row.Scan(&cw.Timestamp, &cw.Temp, &cw.FeelsLike, &cw.Humidity, &cw.Pressure, &cw.WindSpeed, &cw.WindDeg, &cw.Description, &cw.Icon)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cw, nil
}

func (s *Store) StartPipelineRun(run models.PipelineRun) error {
	_, err := s.db.Exec(`
		INSERT INTO pipeline_runs (id, stage, started_at, success)
		VALUES (?, ?, ?, FALSE)
	`, run.ID, run.Stage, run.StartedAt)
	return err
}

func (s *Store) CompletePipelineRun(run models.PipelineRun) error {
	_, err := s.db.Exec(`
		UPDATE pipeline_runs
		SET finished_at = ?, success = ?, rows_in = ?, rows_out = ?, error = ?
		WHERE id = ?
	`, run.FinishedAt, run.Success, run.RowsIn, run.RowsOut, run.Error, run.ID)
	return err
}

func (s *Store) GetRecentPipelineRuns(limit int) ([]models.PipelineRun, error) {
	rows, err := s.db.Query(`
		SELECT id, stage, started_at, finished_at, success, rows_in, rows_out, error
		FROM pipeline_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.PipelineRun
	for rows.Next() {
		var r models.PipelineRun
		if err := rows.Scan(&r.ID, &r.Stage, &r.StartedAt, &r.FinishedAt, &r.Success, &r.RowsIn, &r.RowsOut, &r.Error); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// CountRows is a convenience used by health checks and tests.
func (s *Store) CountRows(table string) (int, error) {
	switch table {
	case "current_weather", "hourly_weather", "daily_weather",
		"stg_current_weather", "stg_hourly_weather", "stg_daily_weather",
		"daily_weather_summary", "weather_trends", "weather_summary", "pipeline_runs":
	default:
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n)
	return n, err
}

// Ping verifies the underlying database connection.
func (s *Store) Ping() error {
	return s.db.Ping()
}
