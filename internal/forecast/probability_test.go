package forecast

import (
	"math"
	"testing"

	"github.com/mbrennan/weatheredge/internal/domain"
)

const eps = 1e-9

func TestFairProbabilityLinearRegion(t *testing.T) {
	cfg := ModelConfig{DeviationBand: 3.5}

	tests := []struct {
		name      string
		temp      float64
		threshold float64
		want      float64
	}{
		{"at threshold", 85.0, 85.0, 0.5},
		{"one band above", 88.5, 85.0, 1.0},
		{"one band below", 81.5, 85.0, 0.0},
		{"half band above", 86.75, 85.0, 0.75},
		{"half band below", 83.25, 85.0, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FairProbability(tt.temp, tt.threshold, cfg)
			if math.Abs(got-tt.want) > eps {
				t.Errorf("FairProbability(%v, %v) = %v, want %v", tt.temp, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestFairProbabilityTails(t *testing.T) {
	cfg := ModelConfig{DeviationBand: 3.5}

	// One band past the linear region the tail has decayed by half.
	k := math.Ln2 / 3.5
	got := FairProbability(85.0+7.0, 85.0, cfg)
	want := 1 - 0.5*math.Exp(-k*3.5)
	if math.Abs(got-want) > eps {
		t.Errorf("upper tail = %v, want %v", got, want)
	}

	got = FairProbability(85.0-7.0, 85.0, cfg)
	want = 0.5 * math.Exp(-k*3.5)
	if math.Abs(got-want) > eps {
		t.Errorf("lower tail = %v, want %v", got, want)
	}
}

func TestFairProbabilityCustomDecayRate(t *testing.T) {
	band := 3.5

	// A steeper explicit k pulls the upper tail closer to 1 than the
	// derived ln2/band default at the same distance.
	slow := ModelConfig{DeviationBand: band}
	fast := ModelConfig{DeviationBand: band, DecayRate: 1.0}

	got := FairProbability(85.0+7.0, 85.0, fast)
	want := 1 - 0.5*math.Exp(-1.0*band)
	if math.Abs(got-want) > eps {
		t.Errorf("upper tail with k=1 = %v, want %v", got, want)
	}
	if def := FairProbability(85.0+7.0, 85.0, slow); got <= def {
		t.Errorf("k=1 tail %v not above ln2/band tail %v", got, def)
	}

	// The knob leaves the linear region untouched.
	if p := FairProbability(86.75, 85.0, fast); math.Abs(p-0.75) > eps {
		t.Errorf("linear region with k=1 = %v, want 0.75", p)
	}
}

func TestFairProbabilityBounds(t *testing.T) {
	cfg := ModelConfig{}
	for _, diff := range []float64{-100, -20, -5, 0, 5, 20, 100} {
		p := FairProbability(70+diff, 70, cfg)
		if p < 0 || p > 1 {
			t.Errorf("diff %v: probability %v outside [0,1]", diff, p)
		}
	}
}

func TestFairProbabilityMonotonicWithinSegments(t *testing.T) {
	cfg := ModelConfig{DeviationBand: 3.5}

	segments := [][2]float64{
		{-20, -3.6}, // lower tail
		{-3.5, 3.5}, // linear region
		{3.6, 20},   // upper tail
	}
	for _, seg := range segments {
		prev := math.Inf(-1)
		for diff := seg[0]; diff <= seg[1]; diff += 0.1 {
			p := FairProbability(80+diff, 80, cfg)
			if p < prev-eps {
				t.Fatalf("probability not monotonic at diff=%v: %v < %v", diff, p, prev)
			}
			prev = p
		}
	}
}

func TestBucketProbabilityBelowMirrors(t *testing.T) {
	cfg := ModelConfig{DeviationBand: 3.5}

	exceeds := domain.OutcomeBucket{Threshold: 85, Direction: domain.BucketExceeds}
	below := domain.OutcomeBucket{Threshold: 85, Direction: domain.BucketBelow}

	for _, temp := range []float64{75, 83, 85, 87, 95} {
		pUp := BucketProbability(exceeds, temp, cfg)
		pDown := BucketProbability(below, temp, cfg)
		if math.Abs(pUp+pDown-1) > eps {
			t.Errorf("temp %v: exceeds %v + below %v != 1", temp, pUp, pDown)
		}
	}
}

func TestModelConfigDefaultBand(t *testing.T) {
	// Zero config must behave like the default band.
	got := FairProbability(88.5, 85.0, ModelConfig{})
	if math.Abs(got-1.0) > eps {
		t.Errorf("default band: FairProbability(88.5, 85) = %v, want 1.0", got)
	}
}
