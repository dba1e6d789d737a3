// Package visualcrossing is a client for the Visual Crossing Timeline API,
// the source of observed (ground truth) weather.
package visualcrossing

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

const dateLayout = "2006-01-02"

// maxRetries bounds the backoff loop on 429 responses. Visual Crossing's
// free tier rate limits aggressively.
const maxRetries = 5

// Client is the REST client for the Visual Crossing Timeline API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Visual Crossing client. baseURL is the API root, e.g.
// "https://weather.visualcrossing.com".
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type timelineResponse struct {
	Days []apiDay `json:"days"`
}

type apiDay struct {
	Datetime   string  `json:"datetime"` // YYYY-MM-DD
	TempMax    float64 `json:"tempmax"`
	TempMin    float64 `json:"tempmin"`
	Temp       float64 `json:"temp"`
	Conditions string  `json:"conditions"`
}

// ObservedRange fetches observed weather for the `days` days ending at
// endDate inclusive.
func (c *Client) ObservedRange(ctx context.Context, city string, endDate time.Time, days int) ([]domain.WeatherRecord, error) {
	if days < 0 {
		days = 0
	}
	end := endDate.UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -days)

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("unitGroup", "us")
	params.Set("include", "days")
	params.Set("contentType", "json")

	path := fmt.Sprintf("/VisualCrossingWebServices/rest/services/timeline/%s/%s/%s?%s",
		url.PathEscape(city), start.Format(dateLayout), end.Format(dateLayout), params.Encode())

	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("visualcrossing: observed range %s: %w", city, err)
	}

	var resp timelineResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("visualcrossing: decode timeline: %w", err)
	}

	now := time.Now().UTC()
	records := make([]domain.WeatherRecord, 0, len(resp.Days))
	for _, d := range resp.Days {
		date, err := time.Parse(dateLayout, d.Datetime)
		if err != nil {
			continue
		}
		records = append(records, domain.WeatherRecord{
			City:      city,
			Date:      date.UTC(),
			HighF:     d.TempMax,
			LowF:      d.TempMin,
			AvgF:      d.Temp,
			Condition: d.Conditions,
			Variant:   domain.WeatherObserved,
			FetchedAt: now,
		})
	}
	return records, nil
}

// ObservedDay fetches observed weather for a single day. Missing days fail
// with domain.ErrDataUnavailable.
func (c *Client) ObservedDay(ctx context.Context, city string, date time.Time) (domain.WeatherRecord, error) {
	records, err := c.ObservedRange(ctx, city, date, 0)
	if err != nil {
		return domain.WeatherRecord{}, err
	}
	if len(records) == 0 {
		return domain.WeatherRecord{}, fmt.Errorf("visualcrossing: no data for %s on %s: %w",
			city, date.Format(dateLayout), domain.ErrDataUnavailable)
	}
	return records[0], nil
}

// ForecastDay fetches the forecast for a single future day. The timeline
// endpoint serves forecasts the same way it serves history; only the variant
// on the record differs.
func (c *Client) ForecastDay(ctx context.Context, city string, date time.Time) (domain.WeatherRecord, error) {
	records, err := c.ObservedRange(ctx, city, date, 0)
	if err != nil {
		return domain.WeatherRecord{}, err
	}
	if len(records) == 0 {
		return domain.WeatherRecord{}, fmt.Errorf("visualcrossing: no forecast for %s on %s: %w",
			city, date.Format(dateLayout), domain.ErrDataUnavailable)
	}
	rec := records[0]
	rec.Variant = domain.WeatherForecast
	return rec, nil
}

// doGet sends a GET request, backing off and retrying on 429.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	delay := 10 * time.Second

	for attempt := 0; attempt < maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("http request: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests:
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", domain.ErrContextDone, ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
			continue
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, fmt.Errorf("%w: %s", domain.ErrUnauthorized, string(body))
		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, string(body))
		default:
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
		}
	}

	return nil, fmt.Errorf("retries exhausted: %w", domain.ErrRateLimited)
}
