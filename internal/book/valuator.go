// Package book derives depth-weighted valuations from orderbook snapshots.
package book

import (
	"math"

	"github.com/mbrennan/weatheredge/internal/domain"
)

// DefaultHollowTolerance is the max divergence between a side's best quote
// and its VWAP before the book is flagged hollow.
const DefaultHollowTolerance = 0.10

// Valuate computes the depth-weighted valuation of a snapshot. A side with no
// depth takes the worst case for a taker: BidVWAP 0.0, AskVWAP 1.0, so an
// empty book values at FairMid 0.5. A book whose best quote sits more than
// tolerance away from the same side's VWAP is flagged Hollow; hollow books
// must not be trusted for pricing and force a SKIP downstream.
func Valuate(snap domain.OrderbookSnapshot, tolerance float64) domain.BookValuation {
	if tolerance <= 0 {
		tolerance = DefaultHollowTolerance
	}

	val := domain.BookValuation{BidVWAP: 0.0, AskVWAP: 1.0}

	if len(snap.Bids) > 0 {
		val.BidVWAP = vwap(snap.Bids)
		best := bestBid(snap)
		if math.Abs(best-val.BidVWAP) > tolerance {
			val.Hollow = true
		}
	}
	if len(snap.Asks) > 0 {
		val.AskVWAP = vwap(snap.Asks)
		best := bestAsk(snap)
		if math.Abs(best-val.AskVWAP) > tolerance {
			val.Hollow = true
		}
	}

	val.FairMid = (val.BidVWAP + val.AskVWAP) / 2
	return val
}

func vwap(levels []domain.PriceLevel) float64 {
	var notional, size float64
	for _, lvl := range levels {
		notional += lvl.Price * lvl.Size
		size += lvl.Size
	}
	if size == 0 {
		return 0
	}
	return notional / size
}

func bestBid(snap domain.OrderbookSnapshot) float64 {
	if snap.BestBid > 0 {
		return snap.BestBid
	}
	best := snap.Bids[0].Price
	for _, lvl := range snap.Bids[1:] {
		if lvl.Price > best {
			best = lvl.Price
		}
	}
	return best
}

func bestAsk(snap domain.OrderbookSnapshot) float64 {
	if snap.BestAsk > 0 {
		return snap.BestAsk
	}
	best := snap.Asks[0].Price
	for _, lvl := range snap.Asks[1:] {
		if lvl.Price < best {
			best = lvl.Price
		}
	}
	return best
}
