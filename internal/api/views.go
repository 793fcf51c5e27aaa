package api

import (
	"database/sql"
	"time"

	"github.com/bostonweather/pipeline/internal/models"
)

// View types translate sql.Null* fields to pointers so absent values encode
// as JSON null instead of zero.

func fptr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func iptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func sptr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func tptr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	return &v.Time
}

type summaryView struct {
	Date                  string   `json:"date"`
	CurrentTempAvg        *float64 `json:"current_temp_avg"`
	CurrentTempMin        *float64 `json:"current_temp_min"`
	CurrentTempMax        *float64 `json:"current_temp_max"`
	CurrentHumidityAvg    *float64 `json:"current_humidity_avg"`
	CurrentWindAvg        *float64 `json:"current_wind_avg"`
	CurrentCount          int64    `json:"current_count"`
	DominantDescription   *string  `json:"dominant_description"`
	HourlyTempAvg         *float64 `json:"hourly_temp_avg"`
	HourlyPopAvg          *float64 `json:"hourly_pop_avg"`
	HourlyCount           int64    `json:"hourly_count"`
	DaytimeTempAvg        *float64 `json:"daytime_temp_avg"`
	NighttimeTempAvg      *float64 `json:"nighttime_temp_avg"`
	ForecastTempMin       *float64 `json:"forecast_temp_min"`
	ForecastTempMax       *float64 `json:"forecast_temp_max"`
	Season                *string  `json:"season"`
	FinalTempAvg          *float64 `json:"final_temp_avg"`
	FinalTempMin          *float64 `json:"final_temp_min"`
	FinalTempMax          *float64 `json:"final_temp_max"`
	FinalWindAvg          *float64 `json:"final_wind_avg"`
	FinalPop              *float64 `json:"final_pop"`
	CurrentHourlyTempDiff *float64 `json:"current_hourly_temp_diff"`
	DayNightTempDiff      *float64 `json:"day_night_temp_diff"`
	LastUpdated           string   `json:"last_updated"`
}

func toSummaryView(s models.DailySummary) summaryView {
	return summaryView{
		Date:                  s.Date.Format("2006-01-02"),
		CurrentTempAvg:        fptr(s.CurrentTempAvg),
		CurrentTempMin:        fptr(s.CurrentTempMin),
		CurrentTempMax:        fptr(s.CurrentTempMax),
		CurrentHumidityAvg:    fptr(s.CurrentHumidityAvg),
		CurrentWindAvg:        fptr(s.CurrentWindAvg),
		CurrentCount:          s.CurrentCount,
		DominantDescription:   sptr(s.DominantDescription),
		HourlyTempAvg:         fptr(s.HourlyTempAvg),
		HourlyPopAvg:          fptr(s.HourlyPopAvg),
		HourlyCount:           s.HourlyCount,
		DaytimeTempAvg:        fptr(s.DaytimeTempAvg),
		NighttimeTempAvg:      fptr(s.NighttimeTempAvg),
		ForecastTempMin:       fptr(s.ForecastTempMin),
		ForecastTempMax:       fptr(s.ForecastTempMax),
		Season:                sptr(s.Season),
		FinalTempAvg:          fptr(s.FinalTempAvg),
		FinalTempMin:          fptr(s.FinalTempMin),
		FinalTempMax:          fptr(s.FinalTempMax),
		FinalWindAvg:          fptr(s.FinalWindAvg),
		FinalPop:              fptr(s.FinalPop),
		CurrentHourlyTempDiff: fptr(s.CurrentHourlyTempDiff),
		DayNightTempDiff:      fptr(s.DayNightTempDiff),
		LastUpdated:           s.LastUpdated.UTC().Format(time.RFC3339),
	}
}

type trendView struct {
	Date             string   `json:"date"`
	TempAvg          *float64 `json:"temp_avg"`
	HumidityAvg      *float64 `json:"humidity_avg"`
	WindAvg          *float64 `json:"wind_avg"`
	Temp7DayAvg      *float64 `json:"temp_7day_avg"`
	Temp30DayAvg     *float64 `json:"temp_30day_avg"`
	Humidity7DayAvg  *float64 `json:"humidity_7day_avg"`
	Humidity30DayAvg *float64 `json:"humidity_30day_avg"`
	Wind7DayAvg      *float64 `json:"wind_7day_avg"`
	Wind30DayAvg     *float64 `json:"wind_30day_avg"`
	TempVolatility7  *float64 `json:"temp_volatility_7day"`
	TrendDirection   string   `json:"trend_direction"`
	Season           *string  `json:"season"`
	SeasonTempAvg    *float64 `json:"season_temp_avg"`
	SeasonTempDev    *float64 `json:"season_temp_dev"`
	SeasonTempRank   *int64   `json:"season_temp_rank"`
	WeatherPattern   string   `json:"weather_pattern"`
	ExtremeIndicator string   `json:"extreme_indicator"`
}

func toTrendView(t models.TrendRecord) trendView {
	return trendView{
		Date:             t.Date.Format("2006-01-02"),
		TempAvg:          fptr(t.TempAvg),
		HumidityAvg:      fptr(t.HumidityAvg),
		WindAvg:          fptr(t.WindAvg),
		Temp7DayAvg:      fptr(t.Temp7DayAvg),
		Temp30DayAvg:     fptr(t.Temp30DayAvg),
		Humidity7DayAvg:  fptr(t.Humidity7DayAvg),
		Humidity30DayAvg: fptr(t.Humidity30DayAvg),
		Wind7DayAvg:      fptr(t.Wind7DayAvg),
		Wind30DayAvg:     fptr(t.Wind30DayAvg),
		TempVolatility7:  fptr(t.TempVolatility7),
		TrendDirection:   t.TrendDirection,
		Season:           sptr(t.Season),
		SeasonTempAvg:    fptr(t.SeasonTempAvg),
		SeasonTempDev:    fptr(t.SeasonTempDev),
		SeasonTempRank:   iptr(t.SeasonTempRank),
		WeatherPattern:   t.WeatherPattern,
		ExtremeIndicator: t.ExtremeIndicator,
	}
}

type reportView struct {
	Date             string   `json:"date"`
	TempAvgC         *float64 `json:"temp_avg_c"`
	TempMinC         *float64 `json:"temp_min_c"`
	TempMaxC         *float64 `json:"temp_max_c"`
	HumidityPct      *float64 `json:"humidity_pct"`
	WindSpeedMps     *float64 `json:"wind_speed_mps"`
	WindSpeedMph     *float64 `json:"wind_speed_mph"`
	PrecipChancePct  *float64 `json:"precip_chance_pct"`
	Description      *string  `json:"description"`
	TempCategory     *string  `json:"temp_category"`
	WindCategory     *string  `json:"wind_category"`
	WeatherPattern   *string  `json:"weather_pattern"`
	ExtremeIndicator *string  `json:"extreme_indicator"`
}

func toReportView(r models.ReportRow) reportView {
	return reportView{
		Date:             r.Date.Format("2006-01-02"),
		TempAvgC:         fptr(r.TempAvgC),
		TempMinC:         fptr(r.TempMinC),
		TempMaxC:         fptr(r.TempMaxC),
		HumidityPct:      fptr(r.HumidityPct),
		WindSpeedMps:     fptr(r.WindSpeedMps),
		WindSpeedMph:     fptr(r.WindSpeedMph),
		PrecipChancePct:  fptr(r.PrecipChancePct),
		Description:      sptr(r.Description),
		TempCategory:     sptr(r.TempCategory),
		WindCategory:     sptr(r.WindCategory),
		WeatherPattern:   sptr(r.WeatherPattern),
		ExtremeIndicator: sptr(r.ExtremeIndicator),
	}
}

type runView struct {
	ID         string     `json:"id"`
	Stage      string     `json:"stage"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Success    bool       `json:"success"`
	RowsIn     *int64     `json:"rows_in"`
	RowsOut    *int64     `json:"rows_out"`
	Error      *string    `json:"error"`
}

func toRunView(r models.PipelineRun) runView {
	return runView{
		ID:         r.ID,
		Stage:      r.Stage,
		StartedAt:  r.StartedAt,
		FinishedAt: tptr(r.FinishedAt),
		Success:    r.Success,
		RowsIn:     iptr(r.RowsIn),
		RowsOut:    iptr(r.RowsOut),
		Error:      sptr(r.Error),
	}
}
