package extract

import (
	"database/sql"
	"strconv"
	"strings"
)

// compassDegrees maps the 16-point compass rose the forecast endpoints use to
// a heading in degrees.
var compassDegrees = map[string]int64{
	"N": 0, "NNE": 22, "NE": 45, "ENE": 67,
	"E": 90, "ESE": 112, "SE": 135, "SSE": 157,
	"S": 180, "SSW": 202, "SW": 225, "WSW": 247,
	"W": 270, "WNW": 292, "NW": 315, "NNW": 337,
}

func fahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}

// convertTemp normalizes a temperature to Celsius based on its WMO unit code.
// Unrecognized units are assumed Celsius; the observation endpoints report
// degC natively while the forecast endpoints report degF.
func convertTemp(value float64, unitCode string) float64 {
	if strings.HasSuffix(unitCode, "degF") || unitCode == "F" {
		return fahrenheitToCelsius(value)
	}
	return value
}

// pascalsToHpa converts station pressure, reported in Pa, to hPa.
func pascalsToHpa(pa float64) float64 {
	return pa / 100
}

func kmhToMps(kmh float64) float64 {
	return kmh / 3.6
}

func mphToMps(mph float64) float64 {
	return mph * 0.44704
}

// parseWindSpeed parses forecast wind strings like "10 mph" or "5 to 10 mph"
// into m/s, taking the first number of a range.
func parseWindSpeed(s string) sql.NullFloat64 {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 {
		return sql.NullFloat64{}
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return sql.NullFloat64{}
	}
	unit := fields[len(fields)-1]
	switch strings.ToLower(unit) {
	case "mph":
		v = mphToMps(v)
	case "km/h", "kph":
		v = kmhToMps(v)
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func compassToDegrees(dir string) sql.NullInt64 {
	deg, ok := compassDegrees[strings.ToUpper(strings.TrimSpace(dir))]
	if !ok {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: deg, Valid: true}
}

// percentToFraction converts a probability reported in percent to [0,1].
func percentToFraction(pct float64) float64 {
	return pct / 100
}

var iconKeywords = []struct {
	keyword string
	icon    string
}{
	{"thunder", "11d"},
	{"snow", "13d"},
	{"sleet", "13d"},
	{"ice", "13d"},
	{"rain", "10d"},
	{"shower", "09d"},
	{"drizzle", "09d"},
	{"fog", "50d"},
	{"haze", "50d"},
	{"mist", "50d"},
	{"mostly cloudy", "04d"},
	{"partly", "03d"},
	{"cloud", "02d"},
	{"overcast", "04d"},
	{"clear", "01d"},
	{"sunny", "01d"},
}

// iconForDescription maps a forecast description to an icon code. The first
// matching keyword wins; no match falls back to the clear-sky icon.
func iconForDescription(desc string) string {
	d := strings.ToLower(desc)
	for _, k := range iconKeywords {
		if strings.Contains(d, k.keyword) {
			return k.icon
		}
	}
	return "01d"
}
