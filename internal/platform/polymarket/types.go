package polymarket

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mbrennan/weatheredge/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat unmarshals from JSON number or numeric string; Gamma sends
// liquidity and volume as strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*f = flexFloat(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs
// --------------------------------------------------------------------------

// APIMarket represents a market as returned by the Polymarket Gamma API.
type APIMarket struct {
	ID            string    `json:"id"`
	Question      string    `json:"question"`
	Slug          string    `json:"slug"`
	Active        flexBool  `json:"active"` // API may send bool or "true"/"false" string
	Closed        bool      `json:"closed"`
	Outcomes      string    `json:"outcomes"`      // JSON-encoded: e.g. "[\"Yes\",\"No\"]"
	OutcomePrices string    `json:"outcomePrices"` // JSON-encoded: e.g. "[\"0.06\",\"0.94\"]"
	ClobTokenIDs  string    `json:"clobTokenIds"`  // JSON-encoded token ID array
	Liquidity     flexFloat `json:"liquidity"`
	Volume        flexFloat `json:"volume"`
	EndDate       string    `json:"endDate"`
	Tokens        []Token   `json:"tokens"`
	CreatedAt     string    `json:"createdAt"`
	UpdatedAt     string    `json:"updatedAt"`
}

// Token is the CLOB token entry embedded in market responses.
type Token struct {
	TokenID string  `json:"token_id"`
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price"`
	Winner  bool    `json:"winner"`
}

// thresholdRe pulls the temperature threshold out of a weather market
// question, e.g. "Will the high temperature in Austin exceed 85°F on ...".
var thresholdRe = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*°?\s*F`)

// ParseThreshold extracts the °F threshold and direction from a market
// question. The second return is false when the question does not look like
// a temperature threshold market.
func ParseThreshold(question string) (float64, domain.BucketDirection, bool) {
	m := thresholdRe.FindStringSubmatch(question)
	if m == nil {
		return 0, "", false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, "", false
	}

	lower := strings.ToLower(question)
	switch {
	case strings.Contains(lower, "below") || strings.Contains(lower, "under") ||
		strings.Contains(lower, "less than"):
		return v, domain.BucketBelow, true
	case strings.Contains(lower, "exceed") || strings.Contains(lower, "above") ||
		strings.Contains(lower, "higher than") || strings.Contains(lower, "reach"):
		return v, domain.BucketExceeds, true
	default:
		return 0, "", false
	}
}

// ToDomainMarket converts an APIMarket into a domain.Market. Markets whose
// question does not carry a parseable temperature threshold produce a market
// with no buckets; callers treat those as invalid.
func (m *APIMarket) ToDomainMarket(city string) domain.Market {
	out := domain.Market{
		ID:        m.ID,
		Question:  m.Question,
		Slug:      m.Slug,
		City:      city,
		Liquidity: float64(m.Liquidity),
		Volume:    float64(m.Volume),
	}

	switch {
	case m.Closed:
		out.Status = domain.MarketStatusClosed
	case bool(m.Active):
		out.Status = domain.MarketStatusActive
	default:
		out.Status = domain.MarketStatusResolved
	}

	if t, err := time.Parse(time.RFC3339, m.EndDate); err == nil {
		out.EndDate = t
	}
	if t, err := time.Parse(time.RFC3339, m.CreatedAt); err == nil {
		out.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, m.UpdatedAt); err == nil {
		out.UpdatedAt = t
	}

	threshold, dir, ok := ParseThreshold(m.Question)
	if !ok {
		return out
	}

	var outcomes, prices, tokenIDs []string
	_ = json.Unmarshal([]byte(m.Outcomes), &outcomes)
	_ = json.Unmarshal([]byte(m.OutcomePrices), &prices)
	_ = json.Unmarshal([]byte(m.ClobTokenIDs), &tokenIDs)

	// The Yes side carries the threshold condition; No is its mirror.
	for i, name := range outcomes {
		b := domain.OutcomeBucket{
			Label:     name,
			Threshold: threshold,
			Direction: dir,
		}
		if !strings.EqualFold(name, "yes") {
			if dir == domain.BucketExceeds {
				b.Direction = domain.BucketBelow
			} else {
				b.Direction = domain.BucketExceeds
			}
		}
		if i < len(prices) {
			b.Price, _ = strconv.ParseFloat(prices[i], 64)
		}
		if i < len(tokenIDs) {
			b.TokenID = tokenIDs[i]
		}
		out.Buckets = append(out.Buckets, b)
	}

	return out
}

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// APIBook is the order book response from the CLOB API. Prices and sizes are
// decimal strings.
type APIBook struct {
	Market    string     `json:"market"`
	AssetID   string     `json:"asset_id"`
	Timestamp string     `json:"timestamp"` // unix millis as string
	Bids      []APILevel `json:"bids"`
	Asks      []APILevel `json:"asks"`
}

// APILevel is one price level in an APIBook.
type APILevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// ToDomainSnapshot converts an APIBook into a domain.OrderbookSnapshot.
func (b *APIBook) ToDomainSnapshot() domain.OrderbookSnapshot {
	snap := domain.OrderbookSnapshot{AssetID: b.AssetID}

	if ms, err := strconv.ParseInt(b.Timestamp, 10, 64); err == nil {
		snap.Timestamp = time.UnixMilli(ms).UTC()
	}

	for _, lvl := range b.Bids {
		p, err1 := strconv.ParseFloat(lvl.Price, 64)
		s, err2 := strconv.ParseFloat(lvl.Size, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		snap.Bids = append(snap.Bids, domain.PriceLevel{Price: p, Size: s})
		if p > snap.BestBid {
			snap.BestBid = p
		}
	}
	for _, lvl := range b.Asks {
		p, err1 := strconv.ParseFloat(lvl.Price, 64)
		s, err2 := strconv.ParseFloat(lvl.Size, 64)
		if err1 != nil || err2 != nil {
			continue
		}
		snap.Asks = append(snap.Asks, domain.PriceLevel{Price: p, Size: s})
		if snap.BestAsk == 0 || p < snap.BestAsk {
			snap.BestAsk = p
		}
	}

	return snap
}

// PricePoint is one sample from the CLOB price history endpoint.
type PricePoint struct {
	Timestamp time.Time
	Price     float64
}

type apiPriceHistory struct {
	History []struct {
		T int64   `json:"t"` // unix seconds
		P float64 `json:"p"`
	} `json:"history"`
}
