package book

import (
	"math"
	"testing"

	"github.com/mbrennan/weatheredge/internal/domain"
)

const eps = 1e-9

func TestValuateEmptyBook(t *testing.T) {
	val := Valuate(domain.OrderbookSnapshot{}, 0.10)

	if val.BidVWAP != 0.0 {
		t.Errorf("BidVWAP = %v, want 0.0", val.BidVWAP)
	}
	if val.AskVWAP != 1.0 {
		t.Errorf("AskVWAP = %v, want 1.0", val.AskVWAP)
	}
	if val.FairMid != 0.5 {
		t.Errorf("FairMid = %v, want 0.5", val.FairMid)
	}
	if val.Hollow {
		t.Error("empty book should not be hollow")
	}
}

func TestValuateVWAP(t *testing.T) {
	snap := domain.OrderbookSnapshot{
		Bids: []domain.PriceLevel{
			{Price: 0.40, Size: 100},
			{Price: 0.38, Size: 300},
		},
		Asks: []domain.PriceLevel{
			{Price: 0.44, Size: 200},
			{Price: 0.46, Size: 200},
		},
	}

	val := Valuate(snap, 0.10)

	wantBid := (0.40*100 + 0.38*300) / 400
	wantAsk := (0.44*200 + 0.46*200) / 400
	if math.Abs(val.BidVWAP-wantBid) > eps {
		t.Errorf("BidVWAP = %v, want %v", val.BidVWAP, wantBid)
	}
	if math.Abs(val.AskVWAP-wantAsk) > eps {
		t.Errorf("AskVWAP = %v, want %v", val.AskVWAP, wantAsk)
	}
	if math.Abs(val.FairMid-(wantBid+wantAsk)/2) > eps {
		t.Errorf("FairMid = %v, want %v", val.FairMid, (wantBid+wantAsk)/2)
	}
	if val.Hollow {
		t.Error("tight book flagged hollow")
	}
}

func TestValuateOneSidedBook(t *testing.T) {
	snap := domain.OrderbookSnapshot{
		Bids: []domain.PriceLevel{{Price: 0.30, Size: 50}},
	}

	val := Valuate(snap, 0.10)

	if math.Abs(val.BidVWAP-0.30) > eps {
		t.Errorf("BidVWAP = %v, want 0.30", val.BidVWAP)
	}
	if val.AskVWAP != 1.0 {
		t.Errorf("AskVWAP = %v, want 1.0 for missing asks", val.AskVWAP)
	}
	if math.Abs(val.FairMid-0.65) > eps {
		t.Errorf("FairMid = %v, want 0.65", val.FairMid)
	}
}

func TestValuateHollowBook(t *testing.T) {
	// A single extreme bid far above the depth-weighted level.
	snap := domain.OrderbookSnapshot{
		Bids: []domain.PriceLevel{
			{Price: 0.90, Size: 1},
			{Price: 0.10, Size: 1000},
		},
		Asks: []domain.PriceLevel{{Price: 0.95, Size: 500}},
	}

	val := Valuate(snap, 0.10)
	if !val.Hollow {
		t.Error("extreme low-volume best bid should flag the book hollow")
	}
}

func TestValuateDefaultTolerance(t *testing.T) {
	snap := domain.OrderbookSnapshot{
		Bids: []domain.PriceLevel{
			{Price: 0.80, Size: 1},
			{Price: 0.20, Size: 1000},
		},
	}
	// Non-positive tolerance falls back to the default rather than flagging
	// every book hollow.
	val := Valuate(snap, 0)
	if !val.Hollow {
		t.Error("expected hollow under default tolerance")
	}

	tight := domain.OrderbookSnapshot{
		Bids: []domain.PriceLevel{{Price: 0.50, Size: 100}, {Price: 0.49, Size: 100}},
	}
	if Valuate(tight, 0).Hollow {
		t.Error("tight book flagged hollow under default tolerance")
	}
}
