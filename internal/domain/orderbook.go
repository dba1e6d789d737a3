package domain

import "time"

// PriceLevel is a single price+size entry in an orderbook.
type PriceLevel struct {
	Price float64
	Size  float64
}

// OrderbookSnapshot is a full snapshot of bids and asks for an asset.
type OrderbookSnapshot struct {
	AssetID   string
	Bids      []PriceLevel
	Asks      []PriceLevel
	BestBid   float64
	BestAsk   float64
	Timestamp time.Time
}

// PriceChange is an incremental orderbook level update.
type PriceChange struct {
	AssetID   string
	Side      string // "BUY" or "SELL"
	Price     float64
	Size      float64 // 0 means remove level
	Timestamp time.Time
}

// BookValuation is the depth-weighted view of a snapshot. An empty side falls
// back to the worst case for a taker: BidVWAP 0.0, AskVWAP 1.0, so an empty
// book yields a FairMid of 0.5.
type BookValuation struct {
	BidVWAP float64
	AskVWAP float64
	FairMid float64
	Hollow  bool // thin-interior book, best quote diverges from its side's VWAP
}
