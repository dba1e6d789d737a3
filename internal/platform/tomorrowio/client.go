// Package tomorrowio is a client for the Tomorrow.io forecast API.
package tomorrowio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mbrennan/weatheredge/internal/domain"
)

// Coordinates is a lat/lon pair.
type Coordinates struct {
	Lat float64
	Lon float64
}

// CityCoordinates maps the supported market cities to their coordinates.
// Tomorrow.io takes coordinates, not city names.
var CityCoordinates = map[string]Coordinates{
	"London":    {51.5074, -0.1278},
	"New York":  {40.7128, -74.0060},
	"Seoul":     {37.5665, 126.9780},
	"Tokyo":     {35.6762, 139.6503},
	"Paris":     {48.8566, 2.3522},
	"Singapore": {1.3521, 103.8198},
	"Hong Kong": {22.3193, 114.1694},
	"Dubai":     {25.2048, 55.2708},
}

// Client is the REST client for the Tomorrow.io weather forecast API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Tomorrow.io client. baseURL is the API root, e.g.
// "https://api.tomorrow.io".
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type forecastResponse struct {
	Timelines struct {
		Hourly []timelinePoint `json:"hourly"`
		Daily  []timelinePoint `json:"daily"`
	} `json:"timelines"`
}

type timelinePoint struct {
	Time   string `json:"time"`
	Values struct {
		Temperature    float64 `json:"temperature"`
		TemperatureMax float64 `json:"temperatureMax"`
		TemperatureMin float64 `json:"temperatureMin"`
		TemperatureAvg float64 `json:"temperatureAvg"`
		WeatherCode    int     `json:"weatherCode"`
	} `json:"values"`
}

// Forecast returns per-day forecast records for a city covering the next
// `days` days, derived from the daily timeline. Unknown cities fail with
// domain.ErrDataUnavailable.
func (c *Client) Forecast(ctx context.Context, city string, days int) ([]domain.WeatherRecord, error) {
	coords, ok := CityCoordinates[city]
	if !ok {
		return nil, fmt.Errorf("tomorrowio: city %q has no coordinates: %w", city, domain.ErrDataUnavailable)
	}

	params := url.Values{}
	params.Set("location", fmt.Sprintf("%v,%v", coords.Lat, coords.Lon))
	params.Set("apikey", c.apiKey)
	params.Set("units", "imperial")

	body, err := c.doGet(ctx, "/v4/weather/forecast?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("tomorrowio: forecast %s: %w", city, err)
	}

	var resp forecastResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("tomorrowio: decode forecast: %w", err)
	}

	timeline := resp.Timelines.Daily
	if len(timeline) == 0 {
		// Some plans only return hourly data; collapse it to one day.
		if rec, ok := dayFromHourly(city, resp.Timelines.Hourly); ok {
			return []domain.WeatherRecord{rec}, nil
		}
		return nil, fmt.Errorf("tomorrowio: forecast %s: empty timeline: %w", city, domain.ErrDataUnavailable)
	}

	now := time.Now().UTC()
	records := make([]domain.WeatherRecord, 0, len(timeline))
	for i, p := range timeline {
		if days > 0 && i >= days {
			break
		}
		ts, err := time.Parse(time.RFC3339, p.Time)
		if err != nil {
			continue
		}
		records = append(records, domain.WeatherRecord{
			City:          city,
			Date:          ts.UTC().Truncate(24 * time.Hour),
			HighF:         p.Values.TemperatureMax,
			LowF:          p.Values.TemperatureMin,
			AvgF:          p.Values.TemperatureAvg,
			ConditionCode: p.Values.WeatherCode,
			Condition:     ConditionName(p.Values.WeatherCode),
			Variant:       domain.WeatherForecast,
			FetchedAt:     now,
		})
	}
	return records, nil
}

// ForecastDay returns the forecast record for one specific day.
func (c *Client) ForecastDay(ctx context.Context, city string, date time.Time) (domain.WeatherRecord, error) {
	day := date.UTC().Truncate(24 * time.Hour)
	horizon := int(time.Until(day).Hours()/24) + 2
	if horizon < 1 {
		horizon = 1
	}

	records, err := c.Forecast(ctx, city, horizon)
	if err != nil {
		return domain.WeatherRecord{}, err
	}
	for _, rec := range records {
		if rec.Date.Equal(day) {
			return rec, nil
		}
	}
	return domain.WeatherRecord{}, fmt.Errorf("tomorrowio: no forecast for %s on %s: %w",
		city, day.Format("2006-01-02"), domain.ErrDataUnavailable)
}

func dayFromHourly(city string, hourly []timelinePoint) (domain.WeatherRecord, bool) {
	if len(hourly) == 0 {
		return domain.WeatherRecord{}, false
	}
	if len(hourly) > 24 {
		hourly = hourly[:24]
	}

	rec := domain.WeatherRecord{
		City:          city,
		HighF:         hourly[0].Values.Temperature,
		LowF:          hourly[0].Values.Temperature,
		ConditionCode: hourly[0].Values.WeatherCode,
		Condition:     ConditionName(hourly[0].Values.WeatherCode),
		Variant:       domain.WeatherForecast,
		FetchedAt:     time.Now().UTC(),
	}
	if ts, err := time.Parse(time.RFC3339, hourly[0].Time); err == nil {
		rec.Date = ts.UTC().Truncate(24 * time.Hour)
	}

	sum := 0.0
	for _, p := range hourly {
		t := p.Values.Temperature
		if t > rec.HighF {
			rec.HighF = t
		}
		if t < rec.LowF {
			rec.LowF = t
		}
		sum += t
	}
	rec.AvgF = sum / float64(len(hourly))
	return rec, true
}

// conditionNames maps Tomorrow.io weather codes to readable conditions.
var conditionNames = map[int]string{
	0:    "Unknown",
	1000: "Clear",
	1100: "Mostly Clear",
	1101: "Partly Cloudy",
	1102: "Mostly Cloudy",
	1001: "Cloudy",
	2000: "Fog",
	2100: "Light Fog",
	4000: "Drizzle",
	4001: "Rain",
	4200: "Light Rain",
	4201: "Heavy Rain",
	5000: "Snow",
	5001: "Flurries",
	5100: "Light Snow",
	5101: "Heavy Snow",
	6000: "Freezing Drizzle",
	6001: "Freezing Rain",
	6200: "Light Freezing Rain",
	6201: "Heavy Freezing Rain",
	7000: "Ice Pellets",
	8000: "Thunderstorm",
}

// ConditionName returns the readable name for a Tomorrow.io weather code.
func ConditionName(code int) string {
	if name, ok := conditionNames[code]; ok {
		return name
	}
	return "Unknown"
}

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: %s", domain.ErrRateLimited, string(body))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnauthorized, string(body))
	default:
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
}
