package polymarket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mbrennan/weatheredge/internal/domain"
)

func TestParseThreshold(t *testing.T) {
	tests := []struct {
		question  string
		threshold float64
		direction domain.BucketDirection
		ok        bool
	}{
		{"Will the high temperature in Austin exceed 85°F on August 28?", 85, domain.BucketExceeds, true},
		{"Will NYC reach 90 F tomorrow?", 90, domain.BucketExceeds, true},
		{"Will the high in London be above 72.5°F?", 72.5, domain.BucketExceeds, true},
		{"Will the temperature in Chicago stay below 32°F?", 32, domain.BucketBelow, true},
		{"Will the high be under 50 °F in Seattle?", 50, domain.BucketBelow, true},
		{"Will the low be less than -5°F in Fairbanks?", -5, domain.BucketBelow, true},
		{"Will Bitcoin exceed $100,000?", 0, "", false},
		{"Will it rain in Paris tomorrow?", 0, "", false},
		// Threshold present but no direction keyword.
		{"High temperature of 85°F in Austin", 0, "", false},
	}

	for _, tt := range tests {
		got, dir, ok := ParseThreshold(tt.question)
		if ok != tt.ok {
			t.Errorf("ParseThreshold(%q) ok = %v, want %v", tt.question, ok, tt.ok)
			continue
		}
		if !ok {
			continue
		}
		if got != tt.threshold || dir != tt.direction {
			t.Errorf("ParseThreshold(%q) = (%v, %s), want (%v, %s)",
				tt.question, got, dir, tt.threshold, tt.direction)
		}
	}
}

func TestToDomainMarketBuildsMirroredBuckets(t *testing.T) {
	api := APIMarket{
		ID:            "mkt-1",
		Question:      "Will the high temperature in Austin exceed 85°F on August 28?",
		Slug:          "austin-high-85f",
		Active:        true,
		Outcomes:      `["Yes","No"]`,
		OutcomePrices: `["0.0626","0.9374"]`,
		ClobTokenIDs:  `["tok-yes","tok-no"]`,
		Liquidity:     500,
		EndDate:       "2026-08-28T12:00:00Z",
	}

	m := api.ToDomainMarket("Austin")

	if m.City != "Austin" || m.Status != domain.MarketStatusActive {
		t.Fatalf("market = %+v, want active Austin market", m)
	}
	if len(m.Buckets) != 2 {
		t.Fatalf("len(Buckets) = %d, want 2", len(m.Buckets))
	}

	yes, no := m.Buckets[0], m.Buckets[1]
	if yes.Direction != domain.BucketExceeds || yes.Threshold != 85 {
		t.Errorf("yes bucket = %+v, want exceeds 85", yes)
	}
	if no.Direction != domain.BucketBelow {
		t.Errorf("no bucket direction = %s, want below (mirror of yes)", no.Direction)
	}
	if yes.TokenID != "tok-yes" || no.TokenID != "tok-no" {
		t.Errorf("token IDs = %q, %q", yes.TokenID, no.TokenID)
	}
	if yes.Price != 0.0626 || no.Price != 0.9374 {
		t.Errorf("prices = %v, %v", yes.Price, no.Price)
	}
	if got := m.TargetDate(); !got.Equal(time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("TargetDate() = %v", got)
	}
}

func TestToDomainMarketWithoutThresholdHasNoBuckets(t *testing.T) {
	api := APIMarket{
		ID:       "mkt-2",
		Question: "Will it rain in Paris tomorrow?",
		Active:   true,
	}
	if m := api.ToDomainMarket("Paris"); len(m.Buckets) != 0 {
		t.Errorf("len(Buckets) = %d, want 0 for unparseable question", len(m.Buckets))
	}
}

func TestAPIBookToDomainSnapshot(t *testing.T) {
	api := APIBook{
		AssetID:   "tok-yes",
		Timestamp: "1756339200000",
		Bids: []APILevel{
			{Price: "0.05", Size: "100"},
			{Price: "0.06", Size: "50"},
		},
		Asks: []APILevel{
			{Price: "0.08", Size: "200"},
			{Price: "0.07", Size: "40"},
			{Price: "bad", Size: "1"},
		},
	}

	snap := api.ToDomainSnapshot()

	if snap.BestBid != 0.06 {
		t.Errorf("BestBid = %v, want 0.06", snap.BestBid)
	}
	if snap.BestAsk != 0.07 {
		t.Errorf("BestAsk = %v, want 0.07", snap.BestAsk)
	}
	if len(snap.Bids) != 2 || len(snap.Asks) != 2 {
		t.Errorf("levels = %d bids, %d asks; malformed level should be dropped",
			len(snap.Bids), len(snap.Asks))
	}
	want := time.UnixMilli(1756339200000).UTC()
	if !snap.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", snap.Timestamp, want)
	}
}

func TestFlexTypesDecodeStringsAndLiterals(t *testing.T) {
	var m APIMarket
	blob := `{"id":"x","active":"true","liquidity":"123.5","volume":42}`
	if err := json.Unmarshal([]byte(blob), &m); err != nil {
		t.Fatal(err)
	}
	if !bool(m.Active) || float64(m.Liquidity) != 123.5 || float64(m.Volume) != 42 {
		t.Errorf("decoded = active %v, liquidity %v, volume %v", m.Active, m.Liquidity, m.Volume)
	}
}
