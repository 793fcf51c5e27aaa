package extract

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

// newTestClient points a Client at a stub NWS server. The points response
// routes the forecast and station URLs back into the same server.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(42.3601, -71.0589, "weatherpipe-test", zap.NewNop())
	c.baseURL = srv.URL
	return c, srv
}

func stubMux(srv func() string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/points/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"properties":{
			"forecast":"%[1]s/forecast",
			"forecastHourly":"%[1]s/forecast/hourly",
			"observationStations":"%[1]s/stations"
		}}`, srv())
	})
	mux.HandleFunc("/stations", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"features":[{"properties":{"stationIdentifier":"KBOS"}}]}`)
	})
	return mux
}

func TestFetchCurrent(t *testing.T) {
	var base string
	mux := stubMux(func() string { return base })
	mux.HandleFunc("/stations/KBOS/observations/latest", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"properties":{
			"timestamp":"2026-07-01T14:52:00+00:00",
			"temperature":{"value":22.8,"unitCode":"wmoUnit:degC"},
			"heatIndex":{"value":null,"unitCode":"wmoUnit:degC"},
			"windChill":{"value":null,"unitCode":"wmoUnit:degC"},
			"relativeHumidity":{"value":58.4},
			"barometricPressure":{"value":101590},
			"windSpeed":{"value":18.36},
			"windDirection":{"value":230},
			"textDescription":"Partly Cloudy"
		}}`)
	})
	c, srv := newTestClient(t, mux)
	base = srv.URL

	cw, err := c.FetchCurrent(context.Background())
	if err != nil {
		t.Fatalf("FetchCurrent: %v", err)
	}
	if !cw.Temp.Valid || cw.Temp.Float64 != 22.8 {
		t.Errorf("Temp = %v, want 22.8", cw.Temp)
	}
	// Null heat index and wind chill: feels-like falls back to temperature.
	if !cw.FeelsLike.Valid || cw.FeelsLike.Float64 != 22.8 {
		t.Errorf("FeelsLike = %v, want 22.8", cw.FeelsLike)
	}
	if !cw.Humidity.Valid || cw.Humidity.Int64 != 58 {
		t.Errorf("Humidity = %v, want 58", cw.Humidity)
	}
	if !cw.Pressure.Valid || cw.Pressure.Float64 != 1015.9 {
		t.Errorf("Pressure = %v, want 1015.9 hPa", cw.Pressure)
	}
	if !cw.WindSpeed.Valid || math.Abs(cw.WindSpeed.Float64-5.1) > 1e-9 {
		t.Errorf("WindSpeed = %v, want 5.1 m/s", cw.WindSpeed)
	}
	if !cw.Icon.Valid || cw.Icon.String != "03d" {
		t.Errorf("Icon = %v, want 03d", cw.Icon)
	}
}

func TestFetchHourly(t *testing.T) {
	var base string
	mux := stubMux(func() string { return base })
	mux.HandleFunc("/forecast/hourly", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"properties":{"periods":[
			{"startTime":"2026-07-01T10:00:00-04:00","temperature":68,"temperatureUnit":"F",
			 "relativeHumidity":{"value":60},"probabilityOfPrecipitation":{"value":30},
			 "windSpeed":"10 mph","windDirection":"NW","shortForecast":"Mostly Sunny"},
			{"startTime":"2026-07-01T11:00:00-04:00","temperature":70,"temperatureUnit":"F",
			 "probabilityOfPrecipitation":{"value":null},
			 "windSpeed":"","windDirection":"","shortForecast":""}
		]}}`)
	})
	c, srv := newTestClient(t, mux)
	base = srv.URL

	rows, err := c.FetchHourly(context.Background())
	if err != nil {
		t.Fatalf("FetchHourly: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}

	r := rows[0]
	if !r.Temp.Valid || math.Abs(r.Temp.Float64-20) > 1e-9 {
		t.Errorf("Temp = %v, want 20C from 68F", r.Temp)
	}
	if !r.Pop.Valid || math.Abs(r.Pop.Float64-0.3) > 1e-9 {
		t.Errorf("Pop = %v, want 0.3 from 30%%", r.Pop)
	}
	if !r.WindDeg.Valid || r.WindDeg.Int64 != 315 {
		t.Errorf("WindDeg = %v, want 315 from NW", r.WindDeg)
	}
	if r.Timestamp.Hour() != 14 {
		t.Errorf("Timestamp hour = %d, want 14 UTC from 10:00-04:00", r.Timestamp.Hour())
	}

	// Second period: null pop and empty strings stay absent.
	if rows[1].Pop.Valid || rows[1].WindSpeed.Valid || rows[1].Description.Valid {
		t.Errorf("absent fields should stay null, got %+v", rows[1])
	}
}

func TestFetchDaily_GroupsDayAndNightPeriods(t *testing.T) {
	var base string
	mux := stubMux(func() string { return base })
	mux.HandleFunc("/forecast", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"properties":{"periods":[
			{"startTime":"2026-07-01T06:00:00-04:00","isDaytime":true,"temperature":77,"temperatureUnit":"F",
			 "probabilityOfPrecipitation":{"value":20},"windSpeed":"5 mph","windDirection":"SW","shortForecast":"Sunny"},
			{"startTime":"2026-07-01T18:00:00-04:00","isDaytime":false,"temperature":59,"temperatureUnit":"F",
			 "probabilityOfPrecipitation":{"value":40},"windSpeed":"5 mph","windDirection":"SW","shortForecast":"Clear"},
			{"startTime":"2026-07-02T06:00:00-04:00","isDaytime":true,"temperature":81,"temperatureUnit":"F",
			 "probabilityOfPrecipitation":{"value":10},"windSpeed":"10 mph","windDirection":"W","shortForecast":"Sunny"}
		]}}`)
	})
	c, srv := newTestClient(t, mux)
	base = srv.URL

	rows, err := c.FetchDaily(context.Background())
	if err != nil {
		t.Fatalf("FetchDaily: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2 dates", len(rows))
	}

	d1 := rows[0]
	if d1.Date.Format("2006-01-02") != "2026-07-01" {
		t.Errorf("Date = %s, want 2026-07-01", d1.Date.Format("2006-01-02"))
	}
	if !d1.TempMax.Valid || math.Abs(d1.TempMax.Float64-25) > 1e-9 {
		t.Errorf("TempMax = %v, want 25C from 77F day period", d1.TempMax)
	}
	if !d1.TempMin.Valid || math.Abs(d1.TempMin.Float64-15) > 1e-9 {
		t.Errorf("TempMin = %v, want 15C from 59F night period", d1.TempMin)
	}
	if !d1.Pop.Valid || math.Abs(d1.Pop.Float64-0.2) > 1e-9 {
		t.Errorf("Pop = %v, want 0.2 from day period", d1.Pop)
	}

	// Day-only date: min is estimated five degrees under the day temp.
	d2 := rows[1]
	dayTemp := fahrenheitToCelsius(81)
	if !d2.TempMax.Valid || math.Abs(d2.TempMax.Float64-dayTemp) > 1e-9 {
		t.Errorf("TempMax = %v, want %v", d2.TempMax, dayTemp)
	}
	if !d2.TempMin.Valid || math.Abs(d2.TempMin.Float64-(dayTemp-5)) > 1e-9 {
		t.Errorf("TempMin = %v, want day temp minus 5", d2.TempMin)
	}
}

func TestPoints_NotFoundIsPermanent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/points/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	c, _ := newTestClient(t, mux)

	_, err := c.Points(context.Background())
	if !errors.Is(err, ErrLocationNotSupported) {
		t.Errorf("err = %v, want ErrLocationNotSupported", err)
	}
}

func TestPoints_CachedAcrossCalls(t *testing.T) {
	var base string
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/points/", func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprintf(w, `{"properties":{
			"forecast":"%[1]s/forecast",
			"forecastHourly":"%[1]s/forecast/hourly",
			"observationStations":"%[1]s/stations"
		}}`, base)
	})
	c, srv := newTestClient(t, mux)
	base = srv.URL

	for i := 0; i < 3; i++ {
		if _, err := c.Points(context.Background()); err != nil {
			t.Fatalf("Points: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("points endpoint called %d times, want 1", calls)
	}
}
