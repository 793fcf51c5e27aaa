package transform

import (
	"database/sql"
	"math"
	"sort"

	"github.com/bostonweather/pipeline/internal/models"
)

const (
	shortWindow = 7
	longWindow  = 30
)

// window is a trailing fixed-size window over optional values. Before the
// window fills it averages whatever rows it has seen; absent values occupy a
// slot but are excluded from the aggregate.
type window struct {
	size   int
	values []sql.NullFloat64
	sum    float64
	valid  int
}

func newWindow(size int) *window {
	return &window{size: size}
}

func (w *window) push(v sql.NullFloat64) {
	if len(w.values) == w.size {
		old := w.values[0]
		w.values = w.values[1:]
		if old.Valid {
			w.sum -= old.Float64
			w.valid--
		}
	}
	w.values = append(w.values, v)
	if v.Valid {
		w.sum += v.Float64
		w.valid++
	}
}

func (w *window) mean() sql.NullFloat64 {
	if w.valid == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: w.sum / float64(w.valid), Valid: true}
}

// stddev is the sample standard deviation of the window's present values. It
// needs at least two of them.
func (w *window) stddev() sql.NullFloat64 {
	if w.valid < 2 {
		return sql.NullFloat64{}
	}
	mean := w.sum / float64(w.valid)
	var ss float64
	for _, v := range w.values {
		if v.Valid {
			d := v.Float64 - mean
			ss += d * d
		}
	}
	return sql.NullFloat64{Float64: math.Sqrt(ss / float64(w.valid-1)), Valid: true}
}

func trendDirection(cur, prev sql.NullFloat64) string {
	if !cur.Valid || !prev.Valid {
		return "stable"
	}
	switch {
	case cur.Float64 > prev.Float64:
		return "increasing"
	case cur.Float64 < prev.Float64:
		return "decreasing"
	default:
		return "stable"
	}
}

// weatherPattern combines the temperature band with the precipitation signal.
// Either input missing yields "unknown" rather than a guessed label.
func weatherPattern(temp, pop sql.NullFloat64) string {
	if !temp.Valid || !pop.Valid {
		return "unknown"
	}
	var band string
	t := temp.Float64
	switch {
	case t < 0:
		band = "cold"
	case t <= 15:
		band = "mild"
	case t <= 25:
		band = "warm"
	default:
		band = "hot"
	}
	if pop.Float64 > 0.5 {
		return band + "_wet"
	}
	return band + "_dry"
}

// extremeIndicator flags one condition per day, checked in severity order.
// A rule whose input is absent is skipped, not treated as triggered.
func extremeIndicator(temp, wind, pop sql.NullFloat64) string {
	if temp.Valid && temp.Float64 > 30 {
		return "heat_wave"
	}
	if temp.Valid && temp.Float64 < -10 {
		return "cold_snap"
	}
	if wind.Valid && wind.Float64 > 20 {
		return "high_winds"
	}
	if pop.Valid && pop.Float64 > 0.8 {
		return "heavy_precipitation_expected"
	}
	return "normal"
}

// BuildTrends computes rolling and seasonal analytics over the summary rows.
// Only rows with a usable final temperature participate; rolling windows are
// trailing windows over the retained rows in date order.
func BuildTrends(summaries []models.DailySummary) []models.TrendRecord {
	rows := make([]models.DailySummary, 0, len(summaries))
	for _, s := range summaries {
		if s.FinalTempAvg.Valid {
			rows = append(rows, s)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	humidityOf := func(s models.DailySummary) sql.NullFloat64 {
		return coalesce(s.CurrentHumidityAvg, s.HourlyHumidityAvg)
	}

	temp7 := newWindow(shortWindow)
	temp30 := newWindow(longWindow)
	hum7 := newWindow(shortWindow)
	hum30 := newWindow(longWindow)
	wind7 := newWindow(shortWindow)
	wind30 := newWindow(longWindow)

	out := make([]models.TrendRecord, 0, len(rows))
	var prevTemp sql.NullFloat64
	for i, s := range rows {
		humidity := humidityOf(s)

		temp7.push(s.FinalTempAvg)
		temp30.push(s.FinalTempAvg)
		hum7.push(humidity)
		hum30.push(humidity)
		wind7.push(s.FinalWindAvg)
		wind30.push(s.FinalWindAvg)

		tr := models.TrendRecord{
			Date:             s.Date,
			TempAvg:          s.FinalTempAvg,
			HumidityAvg:      humidity,
			WindAvg:          s.FinalWindAvg,
			Temp7DayAvg:      temp7.mean(),
			Temp30DayAvg:     temp30.mean(),
			Humidity7DayAvg:  hum7.mean(),
			Humidity30DayAvg: hum30.mean(),
			Wind7DayAvg:      wind7.mean(),
			Wind30DayAvg:     wind30.mean(),
			TempVolatility7:  temp7.stddev(),
			Season:           s.Season,
			WeatherPattern:   weatherPattern(s.FinalTempAvg, s.FinalPop),
			ExtremeIndicator: extremeIndicator(s.FinalTempAvg, s.FinalWindAvg, s.FinalPop),
		}
		if i == 0 {
			tr.TrendDirection = "stable"
		} else {
			tr.TrendDirection = trendDirection(s.FinalTempAvg, prevTemp)
		}
		prevTemp = s.FinalTempAvg

		out = append(out, tr)
	}

	applySeasonStats(out)
	return out
}

// applySeasonStats fills the per-season mean, deviation and competition rank.
// Rank 1 is the warmest day of its season; equal temperatures share a rank
// and the next rank is skipped.
func applySeasonStats(trends []models.TrendRecord) {
	bySeason := make(map[string][]int)
	for i, t := range trends {
		if t.Season.Valid && t.TempAvg.Valid {
			bySeason[t.Season.String] = append(bySeason[t.Season.String], i)
		}
	}

	for _, idxs := range bySeason {
		var sum float64
		for _, i := range idxs {
			sum += trends[i].TempAvg.Float64
		}
		mean := sum / float64(len(idxs))

		for _, i := range idxs {
			t := trends[i].TempAvg.Float64
			trends[i].SeasonTempAvg = sql.NullFloat64{Float64: mean, Valid: true}
			trends[i].SeasonTempDev = sql.NullFloat64{Float64: t - mean, Valid: true}

			rank := 1
			for _, j := range idxs {
				if trends[j].TempAvg.Float64 > t {
					rank++
				}
			}
			trends[i].SeasonTempRank = sql.NullInt64{Int64: int64(rank), Valid: true}
		}
	}
}
