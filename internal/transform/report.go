package transform

import (
	"database/sql"
	"math"
	"strings"
	"time"

	"github.com/bostonweather/pipeline/internal/models"
)

const mpsToMph = 2.237

func round1(v sql.NullFloat64) sql.NullFloat64 {
	if !v.Valid {
		return v
	}
	return sql.NullFloat64{Float64: math.Round(v.Float64*10) / 10, Valid: true}
}

func round0(v sql.NullFloat64) sql.NullFloat64 {
	if !v.Valid {
		return v
	}
	return sql.NullFloat64{Float64: math.Round(v.Float64), Valid: true}
}

// displayLabel turns a machine label like "very_strong" or "cold_wet" into
// "Very Strong" / "Cold Wet" for the report table.
func displayLabel(v sql.NullString) sql.NullString {
	if !v.Valid {
		return v
	}
	words := strings.Split(v.String, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return sql.NullString{String: strings.Join(words, " "), Valid: true}
}

func displayLabelStr(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return displayLabel(sql.NullString{String: v, Valid: true})
}

// BuildReport renders the business-facing table from the summary and trend
// rows. Temperatures round to a tenth of a degree, humidity to a whole
// percent, precipitation chance to a tenth of a percent; wind is reported in
// both m/s and mph.
func BuildReport(summaries []models.DailySummary, trends []models.TrendRecord) []models.ReportRow {
	trendByDate := make(map[time.Time]models.TrendRecord, len(trends))
	for _, t := range trends {
		trendByDate[t.Date] = t
	}

	out := make([]models.ReportRow, 0, len(summaries))
	for _, s := range summaries {
		row := models.ReportRow{
			Date:         s.Date,
			TempAvgC:     round1(s.FinalTempAvg),
			TempMinC:     round1(s.FinalTempMin),
			TempMaxC:     round1(s.FinalTempMax),
			HumidityPct:  round0(coalesce(s.CurrentHumidityAvg, s.HourlyHumidityAvg)),
			WindSpeedMps: round1(s.FinalWindAvg),
			Description:  displayLabel(s.DominantDescription),
			TempCategory: displayLabel(s.DominantTempCat),
			WindCategory: displayLabel(s.DominantWindCat),
		}
		if s.FinalWindAvg.Valid {
			row.WindSpeedMph = round1(sql.NullFloat64{
				Float64: s.FinalWindAvg.Float64 * mpsToMph,
				Valid:   true,
			})
		}
		if s.FinalPop.Valid {
			row.PrecipChancePct = round1(sql.NullFloat64{
				Float64: s.FinalPop.Float64 * 100,
				Valid:   true,
			})
		}
		if t, ok := trendByDate[s.Date]; ok {
			row.WeatherPattern = displayLabelStr(t.WeatherPattern)
			row.ExtremeIndicator = displayLabelStr(t.ExtremeIndicator)
		}
		out = append(out, row)
	}
	return out
}
