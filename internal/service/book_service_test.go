package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/mbrennan/weatheredge/internal/domain"
	"github.com/mbrennan/weatheredge/internal/platform/polymarket"
)

type fakeBookSource struct {
	book      domain.OrderbookSnapshot
	bookErr   error
	history   []polymarket.PricePoint
	histErr   error
	bookCalls int
}

func (f *fakeBookSource) GetOrderBook(_ context.Context, _ string) (domain.OrderbookSnapshot, error) {
	f.bookCalls++
	return f.book, f.bookErr
}

func (f *fakeBookSource) GetPriceHistory(_ context.Context, _ string, _, _ time.Time) ([]polymarket.PricePoint, error) {
	return f.history, f.histErr
}

func (f *fakeBookSource) PriceAt(_ context.Context, _ string, t time.Time, _ time.Duration) (polymarket.PricePoint, error) {
	if f.histErr != nil {
		return polymarket.PricePoint{}, f.histErr
	}
	var best polymarket.PricePoint
	for _, p := range f.history {
		if !p.Timestamp.After(t) && p.Timestamp.After(best.Timestamp) {
			best = p
		}
	}
	if best.Timestamp.IsZero() {
		return polymarket.PricePoint{}, domain.ErrDataUnavailable
	}
	return best, nil
}

func TestSnapshotAtHistoricalSynthesizesBook(t *testing.T) {
	at := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	src := &fakeBookSource{history: []polymarket.PricePoint{
		{Price: 0.05, Timestamp: at.Add(-2 * time.Hour)},
		{Price: 0.07, Timestamp: at.Add(-30 * time.Minute)},
		{Price: 0.09, Timestamp: at.Add(30 * time.Minute)}, // after the instant
	}}

	svc := NewBookService(src, nil, testLogger())

	snap, err := svc.SnapshotAt(context.Background(), "tok-1", at)
	if err != nil {
		t.Fatal(err)
	}
	if snap.BestBid != 0.07 || snap.BestAsk != 0.07 {
		t.Errorf("best bid/ask = %v/%v, want 0.07 (last trade at or before the instant)",
			snap.BestBid, snap.BestAsk)
	}
	if len(snap.Bids) != 1 || len(snap.Asks) != 1 {
		t.Errorf("synthetic book has %d bids, %d asks, want 1 each", len(snap.Bids), len(snap.Asks))
	}
	if src.bookCalls != 0 {
		t.Error("historical snapshot fetched the live book")
	}
}

func TestSnapshotAtLiveUsesOrderBook(t *testing.T) {
	src := &fakeBookSource{book: domain.OrderbookSnapshot{
		AssetID: "tok-1",
		Bids:    []domain.PriceLevel{{Price: 0.06, Size: 50}},
		Asks:    []domain.PriceLevel{{Price: 0.07, Size: 40}},
		BestBid: 0.06,
		BestAsk: 0.07,
	}}

	svc := NewBookService(src, nil, testLogger())

	snap, err := svc.SnapshotAt(context.Background(), "tok-1", time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if snap.BestBid != 0.06 || snap.BestAsk != 0.07 {
		t.Errorf("best bid/ask = %v/%v, want live book 0.06/0.07", snap.BestBid, snap.BestAsk)
	}
	if src.bookCalls != 1 {
		t.Errorf("book calls = %d, want 1", src.bookCalls)
	}
}

func TestStability(t *testing.T) {
	at := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	flat := make([]polymarket.PricePoint, 10)
	for i := range flat {
		flat[i] = polymarket.PricePoint{Price: 0.06, Timestamp: at.Add(-time.Duration(i) * time.Hour)}
	}

	tests := []struct {
		name    string
		history []polymarket.PricePoint
		want    float64
	}{
		{"flat series scores 1", flat, 1},
		{"too few samples scores neutral", flat[:1], 0.5},
		{
			// stddev 0.10 across two alternating prices.
			"volatile series scores 0",
			[]polymarket.PricePoint{
				{Price: 0.10, Timestamp: at.Add(-2 * time.Hour)},
				{Price: 0.30, Timestamp: at.Add(-1 * time.Hour)},
			},
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewBookService(&fakeBookSource{history: tt.history}, nil, testLogger())
			if got := svc.Stability(context.Background(), "tok-1", at); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Stability = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStabilityHistoryErrorScoresNeutral(t *testing.T) {
	svc := NewBookService(&fakeBookSource{histErr: domain.ErrDataUnavailable}, nil, testLogger())
	if got := svc.Stability(context.Background(), "tok-1", time.Now()); got != 0.5 {
		t.Errorf("Stability = %v, want 0.5", got)
	}
}
