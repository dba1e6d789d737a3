// Package forecast converts temperature forecasts into fair probabilities for
// threshold-style weather markets.
package forecast

import (
	"math"

	"github.com/mbrennan/weatheredge/internal/domain"
)

// DefaultDeviationBand is the width, in °F, of the linear region around the
// threshold. Within one band the model treats probability as linear in the
// temperature difference; beyond it the tails saturate exponentially.
const DefaultDeviationBand = 3.5

// ModelConfig tunes the probability model.
type ModelConfig struct {
	// DeviationBand is the half-width of the linear region in °F.
	// Zero or negative falls back to DefaultDeviationBand.
	DeviationBand float64

	// DecayRate is the exponential decay constant k of the tails, per °F.
	// Zero or negative derives ln2/band, a half-life of one band-width.
	DecayRate float64
}

func (c ModelConfig) band() float64 {
	if c.DeviationBand > 0 {
		return c.DeviationBand
	}
	return DefaultDeviationBand
}

func (c ModelConfig) decay() float64 {
	if c.DecayRate > 0 {
		return c.DecayRate
	}
	return math.Ln2 / c.band()
}

// FairProbability returns the model probability that the daily high exceeds
// threshold, given the expected (forecast or observed) temperature.
//
// With diff = temp - threshold and band = cfg.DeviationBand:
//
//	|diff| <= band:  p = 0.5 + 0.5*diff/band
//	 diff  >  band:  p = 1 - 0.5*exp(-k*(diff-band))
//	 diff  < -band:  p = 0.5*exp(-k*(-diff-band))
//
// The decay constant k defaults to ln2/band, a tail half-life of one band.
// The result is clamped to [0,1]. Pure and deterministic.
func FairProbability(temp, threshold float64, cfg ModelConfig) float64 {
	return probFromDiff(temp-threshold, cfg.band(), cfg.decay())
}

// BucketProbability maps an outcome bucket onto FairProbability. A "below"
// bucket mirrors the model by negating the temperature difference.
func BucketProbability(b domain.OutcomeBucket, temp float64, cfg ModelConfig) float64 {
	diff := temp - b.Threshold
	if b.Direction == domain.BucketBelow {
		diff = -diff
	}
	return probFromDiff(diff, cfg.band(), cfg.decay())
}

func probFromDiff(diff, band, k float64) float64 {
	var p float64
	switch {
	case math.Abs(diff) <= band:
		p = 0.5 + 0.5*diff/band
	case diff > band:
		p = 1 - 0.5*math.Exp(-k*(diff-band))
	default:
		p = 0.5 * math.Exp(-k*(-diff-band))
	}

	return clamp01(p)
}

func clamp01(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
