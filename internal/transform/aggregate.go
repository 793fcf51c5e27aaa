package transform

import (
	"database/sql"
	"math"
	"sort"
	"time"

	"github.com/bostonweather/pipeline/internal/models"
)

// meanAcc accumulates a conditional mean: absent inputs are skipped entirely,
// and an empty accumulator yields absence, never zero.
type meanAcc struct {
	sum float64
	n   int
}

func (a *meanAcc) add(v sql.NullFloat64) {
	if v.Valid {
		a.sum += v.Float64
		a.n++
	}
}

func (a *meanAcc) addInt(v sql.NullInt64) {
	if v.Valid {
		a.sum += float64(v.Int64)
		a.n++
	}
}

func (a *meanAcc) mean() sql.NullFloat64 {
	if a.n == 0 {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: a.sum / float64(a.n), Valid: true}
}

type minMaxAcc struct {
	min, max float64
	seen     bool
}

func (a *minMaxAcc) add(v sql.NullFloat64) {
	if !v.Valid {
		return
	}
	if !a.seen || v.Float64 < a.min {
		a.min = v.Float64
	}
	if !a.seen || v.Float64 > a.max {
		a.max = v.Float64
	}
	a.seen = true
}

func (a *minMaxAcc) minVal() sql.NullFloat64 {
	if !a.seen {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: a.min, Valid: true}
}

func (a *minMaxAcc) maxVal() sql.NullFloat64 {
	if !a.seen {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: a.max, Valid: true}
}

// modeAcc tracks the most frequent value. Ties break to the lexicographically
// smallest value so repeated runs over the same data are reproducible
// regardless of input order.
type modeAcc struct {
	counts map[string]int
}

func (a *modeAcc) add(v sql.NullString) {
	if !v.Valid {
		return
	}
	if a.counts == nil {
		a.counts = make(map[string]int)
	}
	a.counts[v.String]++
}

func (a *modeAcc) mode() sql.NullString {
	if len(a.counts) == 0 {
		return sql.NullString{}
	}
	var best string
	bestCount := -1
	for v, c := range a.counts {
		if c > bestCount || (c == bestCount && v < best) {
			best = v
			bestCount = c
		}
	}
	return sql.NullString{String: best, Valid: true}
}

// coalesce returns the first present value, or absence if none is.
func coalesce(vals ...sql.NullFloat64) sql.NullFloat64 {
	for _, v := range vals {
		if v.Valid {
			return v
		}
	}
	return sql.NullFloat64{}
}

// dateOf truncates a timestamp to its UTC calendar date.
func dateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

type currentDayAgg struct {
	temp      meanAcc
	tempRange minMaxAcc
	feelsLike meanAcc
	humidity  meanAcc
	pressure  meanAcc
	wind      meanAcc
	count     int64
	desc      modeAcc
	tempCat   modeAcc
	windCat   modeAcc
}

type hourlyDayAgg struct {
	temp      meanAcc
	tempRange minMaxAcc
	humidity  meanAcc
	wind      meanAcc
	pop       meanAcc
	count     int64
	dayTemp   meanAcc
	nightTemp meanAcc
}

// BuildDailySummaries reconciles the three cleaned streams into one row per
// date. The merge is a full outer union of dates: a date present in a single
// stream still yields a summary row with the other streams' fields absent.
// Coalesced finals prefer observed-current data, then hourly, then the daily
// forecast.
func BuildDailySummaries(current []models.CleanCurrent, hourly []models.CleanHourly, daily []models.CleanDaily) []models.DailySummary {
	currentByDate := make(map[time.Time]*currentDayAgg)
	for _, c := range current {
		d := dateOf(c.Timestamp)
		agg := currentByDate[d]
		if agg == nil {
			agg = &currentDayAgg{}
			currentByDate[d] = agg
		}
		agg.temp.add(c.Temp)
		agg.tempRange.add(c.Temp)
		agg.feelsLike.add(c.FeelsLike)
		agg.humidity.addInt(c.Humidity)
		agg.pressure.add(c.Pressure)
		agg.wind.add(c.WindSpeed)
		agg.count++
		agg.desc.add(c.Description)
		agg.tempCat.add(c.TempCategory)
		agg.windCat.add(c.WindCategory)
	}

	hourlyByDate := make(map[time.Time]*hourlyDayAgg)
	for _, h := range hourly {
		d := dateOf(h.Timestamp)
		agg := hourlyByDate[d]
		if agg == nil {
			agg = &hourlyDayAgg{}
			hourlyByDate[d] = agg
		}
		agg.temp.add(h.Temp)
		agg.tempRange.add(h.Temp)
		agg.humidity.addInt(h.Humidity)
		agg.wind.add(h.WindSpeed)
		agg.pop.add(h.Pop)
		agg.count++
		// Daytime covers hours 6-18 inclusive, nighttime the rest; values
		// outside each window are excluded from that aggregate, not zeroed.
		if h.HourOfDay >= 6 && h.HourOfDay <= 18 {
			agg.dayTemp.add(h.Temp)
		} else {
			agg.nightTemp.add(h.Temp)
		}
	}

	dailyByDate := make(map[time.Time]models.CleanDaily)
	for _, d := range daily {
		dailyByDate[dateOf(d.Date)] = d
	}

	dates := make(map[time.Time]struct{})
	for d := range currentByDate {
		dates[d] = struct{}{}
	}
	for d := range hourlyByDate {
		dates[d] = struct{}{}
	}
	for d := range dailyByDate {
		dates[d] = struct{}{}
	}

	ordered := make([]time.Time, 0, len(dates))
	for d := range dates {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Before(ordered[j]) })

	out := make([]models.DailySummary, 0, len(ordered))
	for _, date := range ordered {
		s := models.DailySummary{
			Date:   date,
			Season: sql.NullString{String: Season(date.Month()), Valid: true},
		}

		var dailyWind sql.NullFloat64
		if cur, ok := currentByDate[date]; ok {
			s.CurrentTempAvg = cur.temp.mean()
			s.CurrentTempMin = cur.tempRange.minVal()
			s.CurrentTempMax = cur.tempRange.maxVal()
			s.CurrentFeelsLikeAvg = cur.feelsLike.mean()
			s.CurrentHumidityAvg = cur.humidity.mean()
			s.CurrentPressureAvg = cur.pressure.mean()
			s.CurrentWindAvg = cur.wind.mean()
			s.CurrentCount = cur.count
			s.DominantDescription = cur.desc.mode()
			s.DominantTempCat = cur.tempCat.mode()
			s.DominantWindCat = cur.windCat.mode()
		}

		if hr, ok := hourlyByDate[date]; ok {
			s.HourlyTempAvg = hr.temp.mean()
			s.HourlyTempMin = hr.tempRange.minVal()
			s.HourlyTempMax = hr.tempRange.maxVal()
			s.HourlyHumidityAvg = hr.humidity.mean()
			s.HourlyWindAvg = hr.wind.mean()
			s.HourlyPopAvg = hr.pop.mean()
			s.HourlyCount = hr.count
			s.DaytimeTempAvg = hr.dayTemp.mean()
			s.NighttimeTempAvg = hr.nightTemp.mean()
		}

		if dy, ok := dailyByDate[date]; ok {
			s.ForecastTempMin = dy.TempMin
			s.ForecastTempMax = dy.TempMax
			s.ForecastPop = dy.Pop
			s.Season = sql.NullString{String: dy.Season, Valid: true}
			dailyWind = dy.WindSpeed
		}

		// Final average prefers observed-current over hourly; min/max fall
		// back one step further to the daily forecast, per field.
		s.FinalTempAvg = coalesce(s.CurrentTempAvg, s.HourlyTempAvg)
		s.FinalTempMin = coalesce(s.CurrentTempMin, s.HourlyTempMin, s.ForecastTempMin)
		s.FinalTempMax = coalesce(s.CurrentTempMax, s.HourlyTempMax, s.ForecastTempMax)
		s.FinalWindAvg = coalesce(s.CurrentWindAvg, s.HourlyWindAvg, dailyWind)
		s.FinalPop = coalesce(s.HourlyPopAvg, s.ForecastPop)

		if s.CurrentTempAvg.Valid && s.HourlyTempAvg.Valid {
			s.CurrentHourlyTempDiff = sql.NullFloat64{
				Float64: math.Abs(s.CurrentTempAvg.Float64 - s.HourlyTempAvg.Float64),
				Valid:   true,
			}
		}
		if s.DaytimeTempAvg.Valid && s.NighttimeTempAvg.Valid {
			s.DayNightTempDiff = sql.NullFloat64{
				Float64: s.DaytimeTempAvg.Float64 - s.NighttimeTempAvg.Float64,
				Valid:   true,
			}
		}

		out = append(out, s)
	}
	return out
}
