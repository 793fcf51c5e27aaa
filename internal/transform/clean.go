// Package transform implements the cleaning, aggregation, analytics and
// reporting stages that turn raw weather observations into analytics tables.
// Every stage is a pure function of its inputs and is recomputed in full on
// each run.
package transform

import (
	"database/sql"
	"time"

	"github.com/bostonweather/pipeline/internal/models"
)

// Validity ranges for raw numeric fields. A value outside its range becomes
// absent; the row itself always survives. Values are never clamped.
const (
	tempMinValid     = -50.0
	tempMaxValid     = 50.0
	humidityMinValid = 0
	humidityMaxValid = 100
	pressureMinValid = 800.0
	pressureMaxValid = 1200.0
	windDegMinValid  = 0
	windDegMaxValid  = 360
	popMinValid      = 0.0
	popMaxValid      = 1.0
)

func cleanTemp(v sql.NullFloat64) sql.NullFloat64 {
	return cleanRange(v, tempMinValid, tempMaxValid)
}

func cleanHumidity(v sql.NullInt64) sql.NullInt64 {
	if !v.Valid || v.Int64 < humidityMinValid || v.Int64 > humidityMaxValid {
		return sql.NullInt64{}
	}
	return v
}

func cleanPressure(v sql.NullFloat64) sql.NullFloat64 {
	return cleanRange(v, pressureMinValid, pressureMaxValid)
}

func cleanWindSpeed(v sql.NullFloat64) sql.NullFloat64 {
	if !v.Valid || v.Float64 < 0 {
		return sql.NullFloat64{}
	}
	return v
}

func cleanWindDeg(v sql.NullInt64) sql.NullInt64 {
	if !v.Valid || v.Int64 < windDegMinValid || v.Int64 > windDegMaxValid {
		return sql.NullInt64{}
	}
	return v
}

func cleanPop(v sql.NullFloat64) sql.NullFloat64 {
	return cleanRange(v, popMinValid, popMaxValid)
}

func cleanRange(v sql.NullFloat64, lo, hi float64) sql.NullFloat64 {
	if !v.Valid || v.Float64 < lo || v.Float64 > hi {
		return sql.NullFloat64{}
	}
	return v
}

// TempCategory buckets a cleaned temperature. A null input yields a null
// category, never a default.
func TempCategory(temp sql.NullFloat64) sql.NullString {
	if !temp.Valid {
		return sql.NullString{}
	}
	t := temp.Float64
	var cat string
	switch {
	case t < 0:
		cat = "freezing"
	case t < 10:
		cat = "cold"
	case t < 20:
		cat = "cool"
	case t < 30:
		cat = "warm"
	default:
		cat = "hot"
	}
	return sql.NullString{String: cat, Valid: true}
}

func WindCategory(speed sql.NullFloat64) sql.NullString {
	if !speed.Valid {
		return sql.NullString{}
	}
	w := speed.Float64
	var cat string
	switch {
	case w < 5:
		cat = "light"
	case w < 15:
		cat = "moderate"
	case w < 25:
		cat = "strong"
	default:
		cat = "very_strong"
	}
	return sql.NullString{String: cat, Valid: true}
}

func PopBucket(pop sql.NullFloat64) sql.NullString {
	if !pop.Valid {
		return sql.NullString{}
	}
	p := pop.Float64
	var bucket string
	switch {
	case p < 0.1:
		bucket = "low"
	case p < 0.5:
		bucket = "medium"
	default:
		bucket = "high"
	}
	return sql.NullString{String: bucket, Valid: true}
}

// Season maps a month to its meteorological season.
func Season(m time.Month) string {
	switch m {
	case time.December, time.January, time.February:
		return "winter"
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	default:
		return "fall"
	}
}

// CleanCurrentRows validates each current observation. Rows without a
// timestamp are dropped; everything else is kept with out-of-range fields
// nulled.
func CleanCurrentRows(raw []models.CurrentWeather) []models.CleanCurrent {
	out := make([]models.CleanCurrent, 0, len(raw))
	for _, r := range raw {
		if r.Timestamp.IsZero() {
			continue
		}
		temp := cleanTemp(r.Temp)
		wind := cleanWindSpeed(r.WindSpeed)
		out = append(out, models.CleanCurrent{
			Timestamp:    r.Timestamp.UTC(),
			Temp:         temp,
			FeelsLike:    cleanTemp(r.FeelsLike),
			Humidity:     cleanHumidity(r.Humidity),
			Pressure:     cleanPressure(r.Pressure),
			WindSpeed:    wind,
			WindDeg:      cleanWindDeg(r.WindDeg),
			Description:  r.Description,
			Icon:         r.Icon,
			TempCategory: TempCategory(temp),
			WindCategory: WindCategory(wind),
		})
	}
	return out
}

func CleanHourlyRows(raw []models.HourlyWeather) []models.CleanHourly {
	out := make([]models.CleanHourly, 0, len(raw))
	for _, r := range raw {
		if r.Timestamp.IsZero() {
			continue
		}
		ts := r.Timestamp.UTC()
		temp := cleanTemp(r.Temp)
		wind := cleanWindSpeed(r.WindSpeed)
		pop := cleanPop(r.Pop)
		out = append(out, models.CleanHourly{
			Timestamp:    ts,
			Temp:         temp,
			FeelsLike:    cleanTemp(r.FeelsLike),
			Humidity:     cleanHumidity(r.Humidity),
			Pressure:     cleanPressure(r.Pressure),
			WindSpeed:    wind,
			WindDeg:      cleanWindDeg(r.WindDeg),
			Description:  r.Description,
			Icon:         r.Icon,
			Pop:          pop,
			HourOfDay:    ts.Hour(),
			DayOfWeek:    ts.Weekday(),
			TempCategory: TempCategory(temp),
			WindCategory: WindCategory(wind),
			PopBucket:    PopBucket(pop),
		})
	}
	return out
}

// CleanDailyRows validates daily forecast rows. The derived average and range
// come from the cleaned min/max, so either being out of range leaves both
// derivations absent. The daily temperature category is computed from the
// derived average.
func CleanDailyRows(raw []models.DailyWeather) []models.CleanDaily {
	out := make([]models.CleanDaily, 0, len(raw))
	for _, r := range raw {
		if r.Date.IsZero() {
			continue
		}
		date := r.Date.UTC()
		tempMin := cleanTemp(r.TempMin)
		tempMax := cleanTemp(r.TempMax)
		wind := cleanWindSpeed(r.WindSpeed)
		pop := cleanPop(r.Pop)

		var tempAvg, tempRange sql.NullFloat64
		if tempMin.Valid && tempMax.Valid {
			tempAvg = sql.NullFloat64{Float64: (tempMax.Float64 + tempMin.Float64) / 2, Valid: true}
			tempRange = sql.NullFloat64{Float64: tempMax.Float64 - tempMin.Float64, Valid: true}
		}

		out = append(out, models.CleanDaily{
			Date:         date,
			TempMin:      tempMin,
			TempMax:      tempMax,
			TempDay:      cleanTemp(r.TempDay),
			TempNight:    cleanTemp(r.TempNight),
			TempAvg:      tempAvg,
			TempRange:    tempRange,
			Humidity:     cleanHumidity(r.Humidity),
			Pressure:     cleanPressure(r.Pressure),
			WindSpeed:    wind,
			WindDeg:      cleanWindDeg(r.WindDeg),
			Description:  r.Description,
			Icon:         r.Icon,
			Pop:          pop,
			DayOfWeek:    date.Weekday(),
			Month:        date.Month(),
			Season:       Season(date.Month()),
			TempCategory: TempCategory(tempAvg),
			WindCategory: WindCategory(wind),
			PopBucket:    PopBucket(pop),
		})
	}
	return out
}
