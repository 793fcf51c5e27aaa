package store

import (
	"fmt"

	"github.com/bostonweather/pipeline/internal/models"
)

// Derived tables are rebuilt in full on every transform run: each Replace*
// deletes the table contents and re-inserts inside one transaction, so
// readers never observe a partially transformed table.

func (s *Store) ReplaceStagingCurrent(rows []models.CleanCurrent) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM stg_current_weather"); err != nil {
		return fmt.Errorf("clear stg_current_weather: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO stg_current_weather (timestamp, temp, feels_like, humidity, pressure, wind_speed, wind_deg, description, icon, temp_category, wind_category, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(r.Timestamp, r.Temp, r.FeelsLike, r.Humidity, r.Pressure, r.WindSpeed, r.WindDeg, r.Description, r.Icon, r.TempCategory, r.WindCategory); err != nil {
			return fmt.Errorf("insert stg_current_weather %s: %w", r.Timestamp, err)
		}
	}
	return tx.Commit()
}

func (s *Store) ReplaceStagingHourly(rows []models.CleanHourly) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM stg_hourly_weather"); err != nil {
		return fmt.Errorf("clear stg_hourly_weather: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO stg_hourly_weather (timestamp, temp, feels_like, humidity, pressure, wind_speed, wind_deg, description, icon, pop, hour_of_day, day_of_week, temp_category, wind_category, pop_bucket, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(r.Timestamp, r.Temp, r.FeelsLike, r.Humidity, r.Pressure, r.WindSpeed, r.WindDeg, r.Description, r.Icon, r.Pop, r.HourOfDay, int(r.DayOfWeek), r.TempCategory, r.WindCategory, r.PopBucket); err != nil {
			return fmt.Errorf("insert stg_hourly_weather %s: %w", r.Timestamp, err)
		}
	}
	return tx.Commit()
}

func (s *Store) ReplaceStagingDaily(rows []models.CleanDaily) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM stg_daily_weather"); err != nil {
		return fmt.Errorf("clear stg_daily_weather: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO stg_daily_weather (date, temp_min, temp_max, temp_day, temp_night, temp_avg, temp_range, humidity, pressure, wind_speed, wind_deg, description, icon, pop, day_of_week, month, season, temp_category, wind_category, pop_bucket, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(r.Date, r.TempMin, r.TempMax, r.TempDay, r.TempNight, r.TempAvg, r.TempRange, r.Humidity, r.Pressure, r.WindSpeed, r.WindDeg, r.Description, r.Icon, r.Pop, int(r.DayOfWeek), int(r.Month), r.Season, r.TempCategory, r.WindCategory, r.PopBucket); err != nil {
			return fmt.Errorf("insert stg_daily_weather %s: %w", r.Date.Format("2006-01-02"), err)
		}
	}
	return tx.Commit()
}

func (s *Store) ReplaceDailySummaries(rows []models.DailySummary) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM daily_weather_summary"); err != nil {
		return fmt.Errorf("clear daily_weather_summary: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO daily_weather_summary (
			date,
			current_temp_avg, current_temp_min, current_temp_max, current_feels_like_avg,
			current_humidity_avg, current_pressure_avg, current_wind_avg, current_count,
			dominant_description, dominant_temp_category, dominant_wind_category,
			hourly_temp_avg, hourly_temp_min, hourly_temp_max, hourly_humidity_avg,
			hourly_wind_avg, hourly_pop_avg, hourly_count, daytime_temp_avg, nighttime_temp_avg,
			forecast_temp_min, forecast_temp_max, forecast_pop, season,
			final_temp_avg, final_temp_min, final_temp_max, final_wind_avg, final_pop,
			current_hourly_temp_diff, day_night_temp_diff, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(
			r.Date,
			r.CurrentTempAvg, r.CurrentTempMin, r.CurrentTempMax, r.CurrentFeelsLikeAvg,
			r.CurrentHumidityAvg, r.CurrentPressureAvg, r.CurrentWindAvg, r.CurrentCount,
			r.DominantDescription, r.DominantTempCat, r.DominantWindCat,
			r.HourlyTempAvg, r.HourlyTempMin, r.HourlyTempMax, r.HourlyHumidityAvg,
			r.HourlyWindAvg, r.HourlyPopAvg, r.HourlyCount, r.DaytimeTempAvg, r.NighttimeTempAvg,
			r.ForecastTempMin, r.ForecastTempMax, r.ForecastPop, r.Season,
			r.FinalTempAvg, r.FinalTempMin, r.FinalTempMax, r.FinalWindAvg, r.FinalPop,
			r.CurrentHourlyTempDiff, r.DayNightTempDiff,
		); err != nil {
			return fmt.Errorf("insert daily_weather_summary %s: %w", r.Date.Format("2006-01-02"), err)
		}
	}
	return tx.Commit()
}

func (s *Store) ReplaceTrends(rows []models.TrendRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM weather_trends"); err != nil {
		return fmt.Errorf("clear weather_trends: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO weather_trends (
			date, temp_avg, humidity_avg, wind_avg,
			temp_7day_avg, temp_30day_avg, humidity_7day_avg, humidity_30day_avg,
			wind_7day_avg, wind_30day_avg, temp_volatility_7day, trend_direction,
			season, season_temp_avg, season_temp_dev, season_temp_rank,
			weather_pattern, extreme_indicator, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(
			r.Date, r.TempAvg, r.HumidityAvg, r.WindAvg,
			r.Temp7DayAvg, r.Temp30DayAvg, r.Humidity7DayAvg, r.Humidity30DayAvg,
			r.Wind7DayAvg, r.Wind30DayAvg, r.TempVolatility7, r.TrendDirection,
			r.Season, r.SeasonTempAvg, r.SeasonTempDev, r.SeasonTempRank,
			r.WeatherPattern, r.ExtremeIndicator,
		); err != nil {
			return fmt.Errorf("insert weather_trends %s: %w", r.Date.Format("2006-01-02"), err)
		}
	}
	return tx.Commit()
}

func (s *Store) ReplaceReport(rows []models.ReportRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM weather_summary"); err != nil {
		return fmt.Errorf("clear weather_summary: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO weather_summary (
			date, temp_avg_c, temp_min_c, temp_max_c, humidity_pct,
			wind_speed_mps, wind_speed_mph, precip_chance_pct,
			description, temp_category, wind_category, weather_pattern, extreme_indicator,
			last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(
			r.Date, r.TempAvgC, r.TempMinC, r.TempMaxC, r.HumidityPct,
			r.WindSpeedMps, r.WindSpeedMph, r.PrecipChancePct,
			r.Description, r.TempCategory, r.WindCategory, r.WeatherPattern, r.ExtremeIndicator,
		); err != nil {
			return fmt.Errorf("insert weather_summary %s: %w", r.Date.Format("2006-01-02"), err)
		}
	}
	return tx.Commit()
}

func (s *Store) GetDailySummaries(limit int) ([]models.DailySummary, error) {
	rows, err := s.db.Query(`
		SELECT date,
			current_temp_avg, current_temp_min, current_temp_max, current_feels_like_avg,
			current_humidity_avg, current_pressure_avg, current_wind_avg, current_count,
			dominant_description, dominant_temp_category, dominant_wind_category,
			hourly_temp_avg, hourly_temp_min, hourly_temp_max, hourly_humidity_avg,
			hourly_wind_avg, hourly_pop_avg, hourly_count, daytime_temp_avg, nighttime_temp_avg,
			forecast_temp_min, forecast_temp_max, forecast_pop, season,
			final_temp_avg, final_temp_min, final_temp_max, final_wind_avg, final_pop,
			current_hourly_temp_diff, day_night_temp_diff, last_updated
		FROM daily_weather_summary
		ORDER BY date DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.DailySummary
	for rows.Next() {
		var r models.DailySummary
		if err := rows.Scan(
			&r.Date,
			&r.CurrentTempAvg, &r.CurrentTempMin, &r.CurrentTempMax, &r.CurrentFeelsLikeAvg,
			&r.CurrentHumidityAvg, &r.CurrentPressureAvg, &r.CurrentWindAvg, &r.CurrentCount,
			&r.DominantDescription, &r.DominantTempCat, &r.DominantWindCat,
			&r.HourlyTempAvg, &r.HourlyTempMin, &r.HourlyTempMax, &r.HourlyHumidityAvg,
			&r.HourlyWindAvg, &r.HourlyPopAvg, &r.HourlyCount, &r.DaytimeTempAvg, &r.NighttimeTempAvg,
			&r.ForecastTempMin, &r.ForecastTempMax, &r.ForecastPop, &r.Season,
			&r.FinalTempAvg, &r.FinalTempMin, &r.FinalTempMax, &r.FinalWindAvg, &r.FinalPop,
			&r.CurrentHourlyTempDiff, &r.DayNightTempDiff, &r.LastUpdated,
		); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *Store) GetTrends(limit int) ([]models.TrendRecord, error) {
	rows, err := s.db.Query(`
		SELECT date, temp_avg, humidity_avg, wind_avg,
			temp_7day_avg, temp_30day_avg, humidity_7day_avg, humidity_30day_avg,
			wind_7day_avg, wind_30day_avg, temp_volatility_7day, trend_direction,
			season, season_temp_avg, season_temp_dev, season_temp_rank,
			weather_pattern, extreme_indicator, last_updated
		FROM weather_trends
		ORDER BY date DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.TrendRecord
	for rows.Next() {
		var r models.TrendRecord
		if err := rows.Scan(
			&r.Date, &r.TempAvg, &r.HumidityAvg, &r.WindAvg,
			&r.Temp7DayAvg, &r.Temp30DayAvg, &r.Humidity7DayAvg, &r.Humidity30DayAvg,
			&r.Wind7DayAvg, &r.Wind30DayAvg, &r.TempVolatility7, &r.TrendDirection,
			&r.Season, &r.SeasonTempAvg, &r.SeasonTempDev, &r.SeasonTempRank,
			&r.WeatherPattern, &r.ExtremeIndicator, &r.LastUpdated,
		); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *Store) GetReport(limit int) ([]models.ReportRow, error) {
	rows, err := s.db.Query(`
		SELECT date, temp_avg_c, temp_min_c, temp_max_c, humidity_pct,
			wind_speed_mps, wind_speed_mph, precip_chance_pct,
			description, temp_category, wind_category, weather_pattern, extreme_indicator,
			last_updated
		FROM weather_summary
		ORDER BY date DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.ReportRow
	for rows.Next() {
		var r models.ReportRow
		if err := rows.Scan(
			&r.Date, &r.TempAvgC, &r.TempMinC, &r.TempMaxC, &r.HumidityPct,
			&r.WindSpeedMps, &r.WindSpeedMph, &r.PrecipChancePct,
			&r.Description, &r.TempCategory, &r.WindCategory, &r.WeatherPattern, &r.ExtremeIndicator,
			&r.LastUpdated,
		); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *Store) GetStagingCurrent() ([]models.CleanCurrent, error) {
	rows, err := s.db.Query(`
		SELECT timestamp, temp, feels_like, humidity, pressure, wind_speed, wind_deg, description, icon, temp_category, wind_category
		FROM stg_current_weather
		ORDER BY timestamp ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.CleanCurrent
	for rows.Next() {
		var r models.CleanCurrent
		if err := rows.Scan(&r.Timestamp, &r.Temp, &r.FeelsLike, &r.Humidity, &r.Pressure, &r.WindSpeed, &r.WindDeg, &r.Description, &r.Icon, &r.TempCategory, &r.WindCategory); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
