// Package signal classifies fair-vs-market mispricings into trade signals.
package signal

import (
	"math"
	"sort"
	"time"

	"github.com/mbrennan/weatheredge/internal/domain"
)

// Default thresholds. These mirror the strategy's live tuning: cheap longshot
// buckets only (MaxPrice), a meaningful relative edge, and enough depth to
// fill a fixed allocation.
const (
	DefaultMinLiquidity    = 50.0
	DefaultMinEdge         = 0.15
	DefaultMaxPrice        = 0.10
	DefaultMinConfidence   = 0.60
	DefaultEdgeCap         = 1.0
	DefaultLiquidityTarget = 1000.0
)

// Confidence weights. The base term keeps a floor under every evaluation;
// the rest reward edge magnitude, depth, price stability and a fair price
// away from the saturated extremes.
const (
	weightBase           = 0.30
	weightEdge           = 0.30
	weightLiquidity      = 0.20
	weightStability      = 0.10
	weightReasonableness = 0.10
)

// Config carries the classification thresholds.
type Config struct {
	MinLiquidity    float64
	MinEdge         float64
	MaxPrice        float64
	MinConfidence   float64
	EdgeCap         float64
	LiquidityTarget float64
}

func (c Config) withDefaults() Config {
	if c.MinLiquidity <= 0 {
		c.MinLiquidity = DefaultMinLiquidity
	}
	if c.MinEdge <= 0 {
		c.MinEdge = DefaultMinEdge
	}
	if c.MaxPrice <= 0 {
		c.MaxPrice = DefaultMaxPrice
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = DefaultMinConfidence
	}
	if c.EdgeCap <= 0 {
		c.EdgeCap = DefaultEdgeCap
	}
	if c.LiquidityTarget <= 0 {
		c.LiquidityTarget = DefaultLiquidityTarget
	}
	return c
}

// Input is one outcome bucket's state at evaluation time. PriceStability is
// in [0,1], 1 meaning the recent price series was flat.
type Input struct {
	MarketID       string
	TokenID        string
	City           string
	Question       string
	MarketPrice    float64
	FairPrice      float64
	Liquidity      float64
	PriceStability float64
	Hollow         bool
}

// Evaluate computes edge and confidence for one bucket and classifies it.
// Classification priority: untradeable conditions force SKIP before edge is
// considered; a zero market price leaves the edge undefined and also skips.
func Evaluate(in Input, cfg Config) domain.TradeOpportunity {
	cfg = cfg.withDefaults()

	opp := domain.TradeOpportunity{
		MarketID:    in.MarketID,
		TokenID:     in.TokenID,
		City:        in.City,
		Question:    in.Question,
		MarketPrice: in.MarketPrice,
		FairPrice:   in.FairPrice,
		Liquidity:   in.Liquidity,
		EvaluatedAt: time.Now().UTC(),
	}

	if in.MarketPrice == 0 {
		opp.Signal = domain.SignalSkip
		opp.SkipReason = "zero market price"
		return opp
	}

	opp.Edge = (in.FairPrice - in.MarketPrice) / in.MarketPrice
	opp.Confidence = confidence(opp.Edge, in, cfg)

	switch {
	case in.Liquidity < cfg.MinLiquidity:
		opp.Signal = domain.SignalSkip
		opp.SkipReason = "liquidity below minimum"
	case in.MarketPrice > cfg.MaxPrice:
		opp.Signal = domain.SignalSkip
		opp.SkipReason = "price above maximum"
	case in.Hollow:
		opp.Signal = domain.SignalSkip
		opp.SkipReason = "hollow order book"
	case opp.Edge >= cfg.MinEdge && opp.Confidence >= cfg.MinConfidence:
		opp.Signal = domain.SignalBuy
	case opp.Edge <= -cfg.MinEdge && opp.Confidence >= cfg.MinConfidence:
		opp.Signal = domain.SignalSell
	default:
		opp.Signal = domain.SignalHold
	}

	return opp
}

func confidence(edge float64, in Input, cfg Config) float64 {
	edgeComp := math.Min(math.Abs(edge)/cfg.EdgeCap, 1)
	liqComp := math.Min(in.Liquidity/cfg.LiquidityTarget, 1)

	stability := in.PriceStability
	if stability < 0 {
		stability = 0
	} else if stability > 1 {
		stability = 1
	}

	reasonableness := 1.0
	if in.FairPrice < 0.02 || in.FairPrice > 0.98 {
		reasonableness = 0.5
	}

	return weightBase +
		weightEdge*edgeComp +
		weightLiquidity*liqComp +
		weightStability*stability +
		weightReasonableness*reasonableness
}

// Rank orders opportunities best-first by |edge|*confidence, breaking ties by
// liquidity. The input slice is not modified.
func Rank(opps []domain.TradeOpportunity) []domain.TradeOpportunity {
	ranked := make([]domain.TradeOpportunity, len(opps))
	copy(ranked, opps)

	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := ranked[i].Score(), ranked[j].Score()
		if si != sj {
			return si > sj
		}
		return ranked[i].Liquidity > ranked[j].Liquidity
	})
	return ranked
}

// Filter keeps only the executable (BUY/SELL) opportunities.
func Filter(opps []domain.TradeOpportunity) []domain.TradeOpportunity {
	var out []domain.TradeOpportunity
	for _, o := range opps {
		if o.Actionable() {
			out = append(out, o)
		}
	}
	return out
}
