// Package extract pulls observations and forecasts from the National Weather
// Service API and writes them to the raw tables.
package extract

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/bostonweather/pipeline/internal/httputil"
	"github.com/bostonweather/pipeline/internal/metrics"
	"github.com/bostonweather/pipeline/internal/models"
)

const (
	defaultBaseURL  = "https://api.weather.gov"
	pointsCacheTTL  = time.Hour
	maxHourlyRows   = 48
	maxForecastDays = 7
)

// ErrLocationNotSupported marks a points lookup the API answered with 404:
// the coordinates are outside NWS coverage and no retry will change that.
var ErrLocationNotSupported = errors.New("location not covered by NWS")

// Client talks to the NWS API for one fixed location. Calls retry with
// exponential backoff behind a circuit breaker; a tripped breaker fails fast
// until the API recovers.
type Client struct {
	baseURL string
	lat     float64
	lon     float64
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	points  *pointsCache
	log     *zap.Logger
}

func NewClient(lat, lon float64, userAgent string, log *zap.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		lat:     lat,
		lon:     lon,
		http:    httputil.NewClient(userAgent),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "nws",
			Timeout: time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		points: newPointsCache(pointsCacheTTL),
		log:    log.Named("nws"),
	}
}

func (c *Client) getJSON(ctx context.Context, endpoint, url string) ([]byte, error) {
	start := time.Now()
	body, err := c.breaker.Execute(func() (interface{}, error) {
		var payload []byte
		operation := func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("build request: %w", err))
			}
			resp, err := c.http.Do(req)
			if err != nil {
				if ctx.Err() != nil {
					return backoff.Permanent(err)
				}
				return fmt.Errorf("fetch %s: %w", endpoint, err)
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusOK:
			case resp.StatusCode == http.StatusNotFound:
				return backoff.Permanent(ErrLocationNotSupported)
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				return fmt.Errorf("fetch %s: status %d", endpoint, resp.StatusCode)
			default:
				b, _ := io.ReadAll(resp.Body)
				return backoff.Permanent(fmt.Errorf("fetch %s: status %d: %s", endpoint, resp.StatusCode, string(b)))
			}

			payload, err = io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("read body: %w", err)
			}
			return nil
		}

		bo := backoff.NewExponentialBackOff()
		bo.MaxElapsedTime = 2 * time.Minute
		if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
			return nil, err
		}
		return payload, nil
	})

	metrics.NWSAPILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.NWSAPICalls.WithLabelValues(endpoint, "error").Inc()
		return nil, err
	}
	metrics.NWSAPICalls.WithLabelValues(endpoint, "ok").Inc()
	return body.([]byte), nil
}

// Points resolves the per-location endpoint URLs, consulting the cache first.
func (c *Client) Points(ctx context.Context) (*PointsMetadata, error) {
	if meta, ok := c.points.get(); ok {
		return meta, nil
	}

	url := fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, c.lat, c.lon)
	body, err := c.getJSON(ctx, "points", url)
	if err != nil {
		return nil, err
	}

	props := gjson.GetBytes(body, "properties")
	if !props.Exists() {
		return nil, fmt.Errorf("points response missing properties")
	}
	meta := &PointsMetadata{
		ForecastURL:       props.Get("forecast").String(),
		ForecastHourlyURL: props.Get("forecastHourly").String(),
		StationsURL:       props.Get("observationStations").String(),
	}
	if meta.ForecastURL == "" || meta.ForecastHourlyURL == "" || meta.StationsURL == "" {
		return nil, fmt.Errorf("points response missing endpoint URLs")
	}

	c.points.put(meta)
	return meta, nil
}

func nullFloat(r gjson.Result) sql.NullFloat64 {
	if !r.Exists() || r.Type == gjson.Null {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: r.Float(), Valid: true}
}

// FetchCurrent reads the latest observation from the nearest station.
// Observation fields arrive in station units: degC (or degF by unit code),
// pressure in Pa, wind in km/h.
func (c *Client) FetchCurrent(ctx context.Context) (*models.CurrentWeather, error) {
	meta, err := c.Points(ctx)
	if err != nil {
		return nil, err
	}

	stations, err := c.getJSON(ctx, "stations", meta.StationsURL)
	if err != nil {
		return nil, err
	}
	stationID := gjson.GetBytes(stations, "features.0.properties.stationIdentifier").String()
	if stationID == "" {
		return nil, fmt.Errorf("no observation stations for location")
	}

	url := fmt.Sprintf("%s/stations/%s/observations/latest", c.baseURL, stationID)
	body, err := c.getJSON(ctx, "latest_observation", url)
	if err != nil {
		return nil, err
	}

	props := gjson.GetBytes(body, "properties")
	if !props.Exists() {
		return nil, fmt.Errorf("observation response missing properties")
	}

	ts, err := time.Parse(time.RFC3339, props.Get("timestamp").String())
	if err != nil {
		return nil, fmt.Errorf("parse observation timestamp: %w", err)
	}

	cw := &models.CurrentWeather{Timestamp: ts.UTC()}

	if t := props.Get("temperature"); t.Get("value").Exists() && t.Get("value").Type != gjson.Null {
		cw.Temp = sql.NullFloat64{
			Float64: convertTemp(t.Get("value").Float(), t.Get("unitCode").String()),
			Valid:   true,
		}
	}
	// Feels-like prefers heat index, then wind chill, then plain temperature.
	for _, field := range []string{"heatIndex", "windChill"} {
		if v := props.Get(field); v.Get("value").Exists() && v.Get("value").Type != gjson.Null {
			cw.FeelsLike = sql.NullFloat64{
				Float64: convertTemp(v.Get("value").Float(), v.Get("unitCode").String()),
				Valid:   true,
			}
			break
		}
	}
	if !cw.FeelsLike.Valid {
		cw.FeelsLike = cw.Temp
	}

	if h := nullFloat(props.Get("relativeHumidity.value")); h.Valid {
		cw.Humidity = sql.NullInt64{Int64: int64(h.Float64 + 0.5), Valid: true}
	}
	if p := nullFloat(props.Get("barometricPressure.value")); p.Valid {
		cw.Pressure = sql.NullFloat64{Float64: pascalsToHpa(p.Float64), Valid: true}
	}
	if w := nullFloat(props.Get("windSpeed.value")); w.Valid {
		cw.WindSpeed = sql.NullFloat64{Float64: kmhToMps(w.Float64), Valid: true}
	}
	if d := nullFloat(props.Get("windDirection.value")); d.Valid {
		cw.WindDeg = sql.NullInt64{Int64: int64(d.Float64), Valid: true}
	}
	if desc := props.Get("textDescription").String(); desc != "" {
		cw.Description = sql.NullString{String: desc, Valid: true}
		cw.Icon = sql.NullString{String: iconForDescription(desc), Valid: true}
	}

	return cw, nil
}

// FetchHourly reads the next 48 hourly forecast periods.
func (c *Client) FetchHourly(ctx context.Context) ([]models.HourlyWeather, error) {
	meta, err := c.Points(ctx)
	if err != nil {
		return nil, err
	}

	body, err := c.getJSON(ctx, "forecast_hourly", meta.ForecastHourlyURL)
	if err != nil {
		return nil, err
	}

	periods := gjson.GetBytes(body, "properties.periods")
	if !periods.Exists() || !periods.IsArray() {
		return nil, fmt.Errorf("hourly forecast response missing periods")
	}

	var out []models.HourlyWeather
	for _, p := range periods.Array() {
		if len(out) >= maxHourlyRows {
			break
		}
		ts, err := time.Parse(time.RFC3339, p.Get("startTime").String())
		if err != nil {
			c.log.Warn("skipping hourly period with bad startTime", zap.String("startTime", p.Get("startTime").String()))
			continue
		}

		hw := models.HourlyWeather{Timestamp: ts.UTC()}
		if t := p.Get("temperature"); t.Exists() && t.Type != gjson.Null {
			temp := convertTemp(t.Float(), p.Get("temperatureUnit").String())
			hw.Temp = sql.NullFloat64{Float64: temp, Valid: true}
			hw.FeelsLike = hw.Temp
		}
		if h := nullFloat(p.Get("relativeHumidity.value")); h.Valid {
			hw.Humidity = sql.NullInt64{Int64: int64(h.Float64 + 0.5), Valid: true}
		}
		hw.WindSpeed = parseWindSpeed(p.Get("windSpeed").String())
		hw.WindDeg = compassToDegrees(p.Get("windDirection").String())
		if pop := nullFloat(p.Get("probabilityOfPrecipitation.value")); pop.Valid {
			hw.Pop = sql.NullFloat64{Float64: percentToFraction(pop.Float64), Valid: true}
		}
		if desc := p.Get("shortForecast").String(); desc != "" {
			hw.Description = sql.NullString{String: desc, Valid: true}
			hw.Icon = sql.NullString{String: iconForDescription(desc), Valid: true}
		}

		out = append(out, hw)
	}
	return out, nil
}

type dayPeriods struct {
	day   *gjson.Result
	night *gjson.Result
}

// FetchDaily reads the multi-day forecast and folds its half-day periods into
// one row per calendar date. When a date has only one period the missing
// extreme is estimated five degrees off the known one.
func (c *Client) FetchDaily(ctx context.Context) ([]models.DailyWeather, error) {
	meta, err := c.Points(ctx)
	if err != nil {
		return nil, err
	}

	body, err := c.getJSON(ctx, "forecast", meta.ForecastURL)
	if err != nil {
		return nil, err
	}

	periods := gjson.GetBytes(body, "properties.periods")
	if !periods.Exists() || !periods.IsArray() {
		return nil, fmt.Errorf("daily forecast response missing periods")
	}

	byDate := make(map[time.Time]*dayPeriods)
	var dates []time.Time
	for _, p := range periods.Array() {
		p := p
		ts, err := time.Parse(time.RFC3339, p.Get("startTime").String())
		if err != nil {
			c.log.Warn("skipping forecast period with bad startTime", zap.String("startTime", p.Get("startTime").String()))
			continue
		}
		// The civil date in the forecast's local zone, stored at midnight UTC.
		date := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)

		dp := byDate[date]
		if dp == nil {
			dp = &dayPeriods{}
			byDate[date] = dp
			dates = append(dates, date)
		}
		if p.Get("isDaytime").Bool() {
			dp.day = &p
		} else if dp.night == nil {
			dp.night = &p
		}
	}

	var out []models.DailyWeather
	for _, date := range dates {
		if len(out) >= maxForecastDays {
			break
		}
		dp := byDate[date]
		dw := models.DailyWeather{Date: date}

		var dayTemp, nightTemp sql.NullFloat64
		if dp.day != nil {
			if t := dp.day.Get("temperature"); t.Exists() && t.Type != gjson.Null {
				dayTemp = sql.NullFloat64{
					Float64: convertTemp(t.Float(), dp.day.Get("temperatureUnit").String()),
					Valid:   true,
				}
			}
		}
		if dp.night != nil {
			if t := dp.night.Get("temperature"); t.Exists() && t.Type != gjson.Null {
				nightTemp = sql.NullFloat64{
					Float64: convertTemp(t.Float(), dp.night.Get("temperatureUnit").String()),
					Valid:   true,
				}
			}
		}

		dw.TempDay = dayTemp
		dw.TempNight = nightTemp
		switch {
		case dayTemp.Valid && nightTemp.Valid:
			dw.TempMax = dayTemp
			dw.TempMin = nightTemp
		case dayTemp.Valid:
			dw.TempMax = dayTemp
			dw.TempMin = sql.NullFloat64{Float64: dayTemp.Float64 - 5, Valid: true}
		case nightTemp.Valid:
			dw.TempMin = nightTemp
			dw.TempMax = sql.NullFloat64{Float64: nightTemp.Float64 + 5, Valid: true}
		}
		if !dw.TempDay.Valid {
			dw.TempDay = dw.TempMax
		}
		if !dw.TempNight.Valid {
			dw.TempNight = dw.TempMin
		}

		src := dp.day
		if src == nil {
			src = dp.night
		}
		if src != nil {
			if h := nullFloat(src.Get("relativeHumidity.value")); h.Valid {
				dw.Humidity = sql.NullInt64{Int64: int64(h.Float64 + 0.5), Valid: true}
			}
			dw.WindSpeed = parseWindSpeed(src.Get("windSpeed").String())
			dw.WindDeg = compassToDegrees(src.Get("windDirection").String())
			if pop := nullFloat(src.Get("probabilityOfPrecipitation.value")); pop.Valid {
				dw.Pop = sql.NullFloat64{Float64: percentToFraction(pop.Float64), Valid: true}
			}
			if desc := src.Get("shortForecast").String(); desc != "" {
				dw.Description = sql.NullString{String: desc, Valid: true}
				dw.Icon = sql.NullString{String: iconForDescription(desc), Valid: true}
			}
		}

		out = append(out, dw)
	}
	return out, nil
}
