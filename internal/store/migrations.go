package store

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Raw weather tables written by the extractor",
		SQL: `
CREATE TABLE IF NOT EXISTS current_weather (
    timestamp DATETIME NOT NULL,
    temp REAL,
    feels_like REAL,
    humidity INTEGER,
    pressure REAL,
    wind_speed REAL,
    wind_deg INTEGER,
    description TEXT,
    icon TEXT,
    UNIQUE(timestamp)
);

CREATE TABLE IF NOT EXISTS hourly_weather (
    timestamp DATETIME NOT NULL,
    temp REAL,
    feels_like REAL,
    humidity INTEGER,
    pressure REAL,
    wind_speed REAL,
    wind_deg INTEGER,
    description TEXT,
    icon TEXT,
    pop REAL,
    UNIQUE(timestamp)
);

CREATE TABLE IF NOT EXISTS daily_weather (
    date DATE NOT NULL,
    temp_min REAL,
    temp_max REAL,
    temp_day REAL,
    temp_night REAL,
    humidity INTEGER,
    pressure REAL,
    wind_speed REAL,
    wind_deg INTEGER,
    description TEXT,
    icon TEXT,
    pop REAL,
    UNIQUE(date)
);

CREATE INDEX IF NOT EXISTS idx_current_weather_ts ON current_weather(timestamp);
CREATE INDEX IF NOT EXISTS idx_hourly_weather_ts ON hourly_weather(timestamp);
CREATE INDEX IF NOT EXISTS idx_daily_weather_date ON daily_weather(date);
`,
	},
	{
		Version:     2,
		Description: "Staging tables: cleaned views of the raw tables",
		SQL: `
CREATE TABLE IF NOT EXISTS stg_current_weather (
    timestamp DATETIME NOT NULL,
    temp REAL,
    feels_like REAL,
    humidity INTEGER,
    pressure REAL,
    wind_speed REAL,
    wind_deg INTEGER,
    description TEXT,
    icon TEXT,
    temp_category TEXT,
    wind_category TEXT,
    last_updated DATETIME NOT NULL,
    UNIQUE(timestamp)
);

CREATE TABLE IF NOT EXISTS stg_hourly_weather (
    timestamp DATETIME NOT NULL,
    temp REAL,
    feels_like REAL,
    humidity INTEGER,
    pressure REAL,
    wind_speed REAL,
    wind_deg INTEGER,
    description TEXT,
    icon TEXT,
    pop REAL,
    hour_of_day INTEGER NOT NULL,
    day_of_week INTEGER NOT NULL,
    temp_category TEXT,
    wind_category TEXT,
    pop_bucket TEXT,
    last_updated DATETIME NOT NULL,
    UNIQUE(timestamp)
);

CREATE TABLE IF NOT EXISTS stg_daily_weather (
    date DATE NOT NULL,
    temp_min REAL,
    temp_max REAL,
    temp_day REAL,
    temp_night REAL,
    temp_avg REAL,
    temp_range REAL,
    humidity INTEGER,
    pressure REAL,
    wind_speed REAL,
    wind_deg INTEGER,
    description TEXT,
    icon TEXT,
    pop REAL,
    day_of_week INTEGER NOT NULL,
    month INTEGER NOT NULL,
    season TEXT NOT NULL,
    temp_category TEXT,
    wind_category TEXT,
    pop_bucket TEXT,
    last_updated DATETIME NOT NULL,
    UNIQUE(date)
);
`,
	},
	{
		Version:     3,
		Description: "Daily summary table reconciling the three cleaned streams",
		SQL: `
CREATE TABLE IF NOT EXISTS daily_weather_summary (
    date DATE PRIMARY KEY,
    current_temp_avg REAL,
    current_temp_min REAL,
    current_temp_max REAL,
    current_feels_like_avg REAL,
    current_humidity_avg REAL,
    current_pressure_avg REAL,
    current_wind_avg REAL,
    current_count INTEGER NOT NULL DEFAULT 0,
    dominant_description TEXT,
    dominant_temp_category TEXT,
    dominant_wind_category TEXT,
    hourly_temp_avg REAL,
    hourly_temp_min REAL,
    hourly_temp_max REAL,
    hourly_humidity_avg REAL,
    hourly_wind_avg REAL,
    hourly_pop_avg REAL,
    hourly_count INTEGER NOT NULL DEFAULT 0,
    daytime_temp_avg REAL,
    nighttime_temp_avg REAL,
    forecast_temp_min REAL,
    forecast_temp_max REAL,
    forecast_pop REAL,
    season TEXT,
    final_temp_avg REAL,
    final_temp_min REAL,
    final_temp_max REAL,
    final_wind_avg REAL,
    final_pop REAL,
    current_hourly_temp_diff REAL,
    day_night_temp_diff REAL,
    last_updated DATETIME NOT NULL
);
`,
	},
	{
		Version:     4,
		Description: "Trend analytics and business-facing summary tables",
		SQL: `
CREATE TABLE IF NOT EXISTS weather_trends (
    date DATE PRIMARY KEY,
    temp_avg REAL,
    humidity_avg REAL,
    wind_avg REAL,
    temp_7day_avg REAL,
    temp_30day_avg REAL,
    humidity_7day_avg REAL,
    humidity_30day_avg REAL,
    wind_7day_avg REAL,
    wind_30day_avg REAL,
    temp_volatility_7day REAL,
    trend_direction TEXT NOT NULL,
    season TEXT,
    season_temp_avg REAL,
    season_temp_dev REAL,
    season_temp_rank INTEGER,
    weather_pattern TEXT NOT NULL,
    extreme_indicator TEXT NOT NULL,
    last_updated DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS weather_summary (
    date DATE PRIMARY KEY,
    temp_avg_c REAL,
    temp_min_c REAL,
    temp_max_c REAL,
    humidity_pct REAL,
    wind_speed_mps REAL,
    wind_speed_mph REAL,
    precip_chance_pct REAL,
    description TEXT,
    temp_category TEXT,
    wind_category TEXT,
    weather_pattern TEXT,
    extreme_indicator TEXT,
    last_updated DATETIME NOT NULL
);
`,
	},
	{
		Version:     5,
		Description: "Pipeline run bookkeeping",
		SQL: `
CREATE TABLE IF NOT EXISTS pipeline_runs (
    id TEXT PRIMARY KEY,
    stage TEXT NOT NULL,
    started_at DATETIME NOT NULL,
    finished_at DATETIME,
    success BOOLEAN NOT NULL DEFAULT FALSE,
    rows_in INTEGER,
    rows_out INTEGER,
    error TEXT
);

CREATE INDEX IF NOT EXISTS idx_pipeline_runs_started ON pipeline_runs(started_at);
`,
	},
}

func (s *Store) Migrate() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		s.log.Info("applying migration", zap.Int("version", m.Version), zap.String("description", m.Description))

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

func (s *Store) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`)
	return err
}

func (s *Store) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (s *Store) MigrationVersion() (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}
