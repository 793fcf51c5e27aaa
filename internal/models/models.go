package models

import (
	"database/sql"
	"time"
)

// CurrentWeather is a raw observation from the NWS latest-observation endpoint,
// keyed by observation timestamp. Written once by the extractor, never mutated.
type CurrentWeather struct {
	Timestamp   time.Time
	Temp        sql.NullFloat64
	FeelsLike   sql.NullFloat64
	Humidity    sql.NullInt64
	Pressure    sql.NullFloat64
	WindSpeed   sql.NullFloat64
	WindDeg     sql.NullInt64
	Description sql.NullString
	Icon        sql.NullString
}

// HourlyWeather is a raw hourly forecast period, keyed by period start time.
type HourlyWeather struct {
	Timestamp   time.Time
	Temp        sql.NullFloat64
	FeelsLike   sql.NullFloat64
	Humidity    sql.NullInt64
	Pressure    sql.NullFloat64
	WindSpeed   sql.NullFloat64
	WindDeg     sql.NullInt64
	Description sql.NullString
	Icon        sql.NullString
	Pop         sql.NullFloat64
}

// DailyWeather is a raw daily forecast row, keyed by calendar date (midnight UTC).
type DailyWeather struct {
	Date        time.Time
	TempMin     sql.NullFloat64
	TempMax     sql.NullFloat64
	TempDay     sql.NullFloat64
	TempNight   sql.NullFloat64
	Humidity    sql.NullInt64
	Pressure    sql.NullFloat64
	WindSpeed   sql.NullFloat64
	WindDeg     sql.NullInt64
	Description sql.NullString
	Icon        sql.NullString
	Pop         sql.NullFloat64
}

// CleanCurrent is a current observation after range validation. Every numeric
// field is either the raw value or null; out-of-range values null out, the row
// survives. Categories derive from the cleaned values only.
type CleanCurrent struct {
	Timestamp    time.Time
	Temp         sql.NullFloat64
	FeelsLike    sql.NullFloat64
	Humidity     sql.NullInt64
	Pressure     sql.NullFloat64
	WindSpeed    sql.NullFloat64
	WindDeg      sql.NullInt64
	Description  sql.NullString
	Icon         sql.NullString
	TempCategory sql.NullString
	WindCategory sql.NullString
}

type CleanHourly struct {
	Timestamp    time.Time
	Temp         sql.NullFloat64
	FeelsLike    sql.NullFloat64
	Humidity     sql.NullInt64
	Pressure     sql.NullFloat64
	WindSpeed    sql.NullFloat64
	WindDeg      sql.NullInt64
	Description  sql.NullString
	Icon         sql.NullString
	Pop          sql.NullFloat64
	HourOfDay    int
	DayOfWeek    time.Weekday
	TempCategory sql.NullString
	WindCategory sql.NullString
	PopBucket    sql.NullString
}

type CleanDaily struct {
	Date         time.Time
	TempMin      sql.NullFloat64
	TempMax      sql.NullFloat64
	TempDay      sql.NullFloat64
	TempNight    sql.NullFloat64
	TempAvg      sql.NullFloat64
	TempRange    sql.NullFloat64
	Humidity     sql.NullInt64
	Pressure     sql.NullFloat64
	WindSpeed    sql.NullFloat64
	WindDeg      sql.NullInt64
	Description  sql.NullString
	Icon         sql.NullString
	Pop          sql.NullFloat64
	DayOfWeek    time.Weekday
	Month        time.Month
	Season       string
	TempCategory sql.NullString
	WindCategory sql.NullString
	PopBucket    sql.NullString
}

// DailySummary reconciles the three cleaned streams for one calendar date.
// A date present in any stream yields exactly one row; fields from absent
// streams stay null.
type DailySummary struct {
	Date time.Time

	// Current-observation aggregates.
	CurrentTempAvg      sql.NullFloat64
	CurrentTempMin      sql.NullFloat64
	CurrentTempMax      sql.NullFloat64
	CurrentFeelsLikeAvg sql.NullFloat64
	CurrentHumidityAvg  sql.NullFloat64
	CurrentPressureAvg  sql.NullFloat64
	CurrentWindAvg      sql.NullFloat64
	CurrentCount        int64
	DominantDescription sql.NullString
	DominantTempCat     sql.NullString
	DominantWindCat     sql.NullString

	// Hourly-forecast aggregates.
	HourlyTempAvg     sql.NullFloat64
	HourlyTempMin     sql.NullFloat64
	HourlyTempMax     sql.NullFloat64
	HourlyHumidityAvg sql.NullFloat64
	HourlyWindAvg     sql.NullFloat64
	HourlyPopAvg      sql.NullFloat64
	HourlyCount       int64
	DaytimeTempAvg    sql.NullFloat64
	NighttimeTempAvg  sql.NullFloat64

	// Daily-forecast passthrough.
	ForecastTempMin sql.NullFloat64
	ForecastTempMax sql.NullFloat64
	ForecastPop     sql.NullFloat64
	Season          sql.NullString

	// Coalesced finals, priority current > hourly > daily forecast.
	FinalTempAvg sql.NullFloat64
	FinalTempMin sql.NullFloat64
	FinalTempMax sql.NullFloat64
	FinalWindAvg sql.NullFloat64
	FinalPop     sql.NullFloat64

	// Cross-stream differences, present only when both inputs are.
	CurrentHourlyTempDiff sql.NullFloat64
	DayNightTempDiff      sql.NullFloat64

	LastUpdated time.Time
}

// TrendRecord carries rolling and seasonal analytics for one summary date.
type TrendRecord struct {
	Date time.Time

	TempAvg     sql.NullFloat64
	HumidityAvg sql.NullFloat64
	WindAvg     sql.NullFloat64

	Temp7DayAvg      sql.NullFloat64
	Temp30DayAvg     sql.NullFloat64
	Humidity7DayAvg  sql.NullFloat64
	Humidity30DayAvg sql.NullFloat64
	Wind7DayAvg      sql.NullFloat64
	Wind30DayAvg     sql.NullFloat64
	TempVolatility7  sql.NullFloat64

	TrendDirection string

	Season           sql.NullString
	SeasonTempAvg    sql.NullFloat64
	SeasonTempDev    sql.NullFloat64
	SeasonTempRank   sql.NullInt64
	WeatherPattern   string
	ExtremeIndicator string

	LastUpdated time.Time
}

// ReportRow is the business-facing summary: rounded, unit-converted and
// display-labeled fields derived from DailySummary and TrendRecord.
type ReportRow struct {
	Date             time.Time
	TempAvgC         sql.NullFloat64
	TempMinC         sql.NullFloat64
	TempMaxC         sql.NullFloat64
	HumidityPct      sql.NullFloat64
	WindSpeedMps     sql.NullFloat64
	WindSpeedMph     sql.NullFloat64
	PrecipChancePct  sql.NullFloat64
	Description      sql.NullString
	TempCategory     sql.NullString
	WindCategory     sql.NullString
	WeatherPattern   sql.NullString
	ExtremeIndicator sql.NullString
	LastUpdated      time.Time
}

// PipelineRun records one execution of an extract or transform stage.
type PipelineRun struct {
	ID         string
	Stage      string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Success    bool
	RowsIn     sql.NullInt64
	RowsOut    sql.NullInt64
	Error      sql.NullString
}
