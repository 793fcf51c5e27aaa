package transform

import (
	"database/sql"
	"math"
	"testing"

	"github.com/bostonweather/pipeline/internal/models"
)

func TestBuildReport_RoundingAndUnits(t *testing.T) {
	summaries := []models.DailySummary{{
		Date:               day("2026-07-01"),
		FinalTempAvg:       f(21.456),
		FinalTempMin:       f(15.04),
		FinalTempMax:       f(27.95),
		CurrentHumidityAvg: f(63.6),
		FinalWindAvg:       f(10),
		FinalPop:           f(0.347),
	}}
	report := BuildReport(summaries, nil)

	if len(report) != 1 {
		t.Fatalf("len(report) = %d, want 1", len(report))
	}
	r := report[0]
	if !r.TempAvgC.Valid || r.TempAvgC.Float64 != 21.5 {
		t.Errorf("TempAvgC = %v, want 21.5", r.TempAvgC)
	}
	if !r.TempMinC.Valid || r.TempMinC.Float64 != 15.0 {
		t.Errorf("TempMinC = %v, want 15.0", r.TempMinC)
	}
	if !r.HumidityPct.Valid || r.HumidityPct.Float64 != 64 {
		t.Errorf("HumidityPct = %v, want 64 (whole percent)", r.HumidityPct)
	}
	if !r.WindSpeedMps.Valid || r.WindSpeedMps.Float64 != 10 {
		t.Errorf("WindSpeedMps = %v, want 10", r.WindSpeedMps)
	}
	if !r.WindSpeedMph.Valid || math.Abs(r.WindSpeedMph.Float64-22.4) > 1e-9 {
		t.Errorf("WindSpeedMph = %v, want 22.4", r.WindSpeedMph)
	}
	if !r.PrecipChancePct.Valid || math.Abs(r.PrecipChancePct.Float64-34.7) > 1e-9 {
		t.Errorf("PrecipChancePct = %v, want 34.7", r.PrecipChancePct)
	}
}

func TestBuildReport_DisplayLabels(t *testing.T) {
	summaries := []models.DailySummary{{
		Date:                day("2026-07-01"),
		DominantDescription: str("scattered showers"),
		DominantTempCat:     str("warm"),
		DominantWindCat:     str("very_strong"),
	}}
	trends := []models.TrendRecord{{
		Date:             day("2026-07-01"),
		WeatherPattern:   "warm_wet",
		ExtremeIndicator: "heavy_precipitation_expected",
	}}
	report := BuildReport(summaries, trends)

	r := report[0]
	checks := []struct {
		got  sql.NullString
		want string
	}{
		{r.Description, "Scattered Showers"},
		{r.TempCategory, "Warm"},
		{r.WindCategory, "Very Strong"},
		{r.WeatherPattern, "Warm Wet"},
		{r.ExtremeIndicator, "Heavy Precipitation Expected"},
	}
	for _, c := range checks {
		if !c.got.Valid || c.got.String != c.want {
			t.Errorf("label = %v, want %q", c.got, c.want)
		}
	}
}

func TestBuildReport_NullsPropagate(t *testing.T) {
	report := BuildReport([]models.DailySummary{{Date: day("2026-07-01")}}, nil)
	r := report[0]
	if r.TempAvgC.Valid || r.WindSpeedMph.Valid || r.PrecipChancePct.Valid {
		t.Errorf("absent inputs should stay absent, got %+v", r)
	}
	if r.WeatherPattern.Valid || r.ExtremeIndicator.Valid {
		t.Error("pattern fields should be null without a matching trend row")
	}
}
