package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mbrennan/weatheredge/internal/domain"
)

// ClobClient is the REST client for the Polymarket CLOB (Central Limit
// Order Book) API. Only the public read endpoints are used: order books and
// price history. No orders are ever submitted.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewClobClient creates a new CLOB REST client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
func NewClobClient(baseURL string) *ClobClient {
	return &ClobClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetOrderBook fetches the current order book for a token.
func (c *ClobClient) GetOrderBook(ctx context.Context, tokenID string) (domain.OrderbookSnapshot, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	body, err := c.doGet(ctx, "/book?"+params.Encode())
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("polymarket/clob: get book %s: %w", tokenID, err)
	}

	var apiBook APIBook
	if err := json.Unmarshal(body, &apiBook); err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("polymarket/clob: decode book: %w", err)
	}

	snap := apiBook.ToDomainSnapshot()
	if snap.AssetID == "" {
		snap.AssetID = tokenID
	}
	return snap, nil
}

// GetPriceHistory returns traded price samples for a token between startTs
// and endTs, oldest first.
func (c *ClobClient) GetPriceHistory(ctx context.Context, tokenID string, startTs, endTs time.Time) ([]PricePoint, error) {
	params := url.Values{}
	params.Set("market", tokenID)
	params.Set("startTs", strconv.FormatInt(startTs.Unix(), 10))
	params.Set("endTs", strconv.FormatInt(endTs.Unix(), 10))
	params.Set("fidelity", "60") // hourly samples

	body, err := c.doGet(ctx, "/prices-history?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/clob: price history %s: %w", tokenID, err)
	}

	var hist apiPriceHistory
	if err := json.Unmarshal(body, &hist); err != nil {
		return nil, fmt.Errorf("polymarket/clob: decode price history: %w", err)
	}

	points := make([]PricePoint, 0, len(hist.History))
	for _, h := range hist.History {
		points = append(points, PricePoint{
			Timestamp: time.Unix(h.T, 0).UTC(),
			Price:     h.P,
		})
	}
	return points, nil
}

// PriceAt returns the last traded price at or before t, from up to window of
// history before it. Returns domain.ErrDataUnavailable when no sample exists.
func (c *ClobClient) PriceAt(ctx context.Context, tokenID string, t time.Time, window time.Duration) (PricePoint, error) {
	points, err := c.GetPriceHistory(ctx, tokenID, t.Add(-window), t)
	if err != nil {
		return PricePoint{}, err
	}

	var best PricePoint
	found := false
	for _, p := range points {
		if p.Timestamp.After(t) {
			continue
		}
		if !found || p.Timestamp.After(best.Timestamp) {
			best = p
			found = true
		}
	}
	if !found {
		return PricePoint{}, fmt.Errorf("polymarket/clob: no price for %s at %s: %w",
			tokenID, t.Format(time.RFC3339), domain.ErrDataUnavailable)
	}
	return best, nil
}

// doGet sends an unauthenticated GET request to the CLOB API.
func (c *ClobClient) doGet(ctx context.Context, path string) ([]byte, error) {
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

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}
