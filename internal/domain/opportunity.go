package domain

import (
	"math"
	"time"
)

// Signal is the action recommended for a market at evaluation time.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
	SignalSkip Signal = "SKIP"
)

// TradeOpportunity is the result of evaluating one outcome bucket against the
// fair-price model. Edge is relative: (fair - market) / market.
type TradeOpportunity struct {
	MarketID    string
	TokenID     string
	City        string
	Question    string
	MarketPrice float64
	FairPrice   float64
	Edge        float64
	Confidence  float64
	Liquidity   float64
	Signal      Signal
	SkipReason  string
	EvaluatedAt time.Time
}

// Score ranks opportunities by the size of the mispricing weighted by how
// much we trust the inputs.
func (o TradeOpportunity) Score() float64 {
	return math.Abs(o.Edge) * o.Confidence
}

// Actionable reports whether the opportunity calls for placing a trade.
func (o TradeOpportunity) Actionable() bool {
	return o.Signal == SignalBuy || o.Signal == SignalSell
}
