package sim

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// DistKind names a stochastic duration/transfer-time distribution.
type DistKind string

const (
	DistNormal      DistKind = "normal"
	DistUniform     DistKind = "uniform"
	DistExponential DistKind = "exponential"
)

// Distribution holds the parameters for one of the three supported
// duration/transfer-time distributions. Only the fields relevant to Kind are
// meaningful: Mean/Std for normal, Low/High for uniform, Rate for
// exponential.
type Distribution struct {
	Kind DistKind
	Mean float64
	Std  float64
	Low  float64
	High float64
	Rate float64
}

// Fixed returns a degenerate distribution that always samples v.
// Used for fallback durations and zero-delay self transfers.
func Fixed(v float64) Distribution {
	return Distribution{Kind: DistNormal, Mean: v, Std: 0}
}

// Validate checks that Kind is one of the supported distributions and that
// its parameters can produce finite samples. Degenerate parameters fail here
// rather than yielding NaN or Inf durations mid-run.
func (d Distribution) Validate() error {
	switch d.Kind {
	case DistNormal:
		if d.Std < 0 {
			return configErrorf("normal distribution with negative std %v", d.Std)
		}
	case DistUniform:
		if d.High < d.Low {
			return configErrorf("uniform distribution with high %v below low %v", d.High, d.Low)
		}
	case DistExponential:
		if d.Rate <= 0 {
			return configErrorf("exponential distribution with non-positive rate %v", d.Rate)
		}
	default:
		return configErrorf("%v: %q", ErrUnknownDistribution, string(d.Kind))
	}
	return nil
}

// Sample draws a duration from the distribution using the given source.
// Normal samples are clamped at 0 from below. An unknown kind returns
// ErrUnknownDistribution; it is never silently defaulted.
func (d Distribution) Sample(src rand.Source) (float64, error) {
	switch d.Kind {
	case DistNormal:
		if d.Std == 0 {
			return max(0, d.Mean), nil
		}
		n := distuv.Normal{Mu: d.Mean, Sigma: d.Std, Src: src}
		return max(0, n.Rand()), nil
	case DistUniform:
		u := distuv.Uniform{Min: d.Low, Max: d.High, Src: src}
		return u.Rand(), nil
	case DistExponential:
		e := distuv.Exponential{Rate: d.Rate, Src: src}
		return e.Rand(), nil
	default:
		return 0, configErrorf("%v: %q", ErrUnknownDistribution, string(d.Kind))
	}
}

// Expected returns the analytic mean of the distribution. Scheduling
// strategies and rollout heuristics use this, never a fresh random sample.
func (d Distribution) Expected() float64 {
	switch d.Kind {
	case DistNormal:
		return d.Mean
	case DistUniform:
		return distuv.Uniform{Min: d.Low, Max: d.High}.Mean()
	case DistExponential:
		return distuv.Exponential{Rate: d.Rate}.Mean()
	default:
		return 0
	}
}

// MinPlausible returns an admissible per-draw floor: no sample is plausibly
// below it. Normal uses max(0, mean-3*std) (samples are clamped at 0 anyway),
// uniform its lower bound, exponential 0. Lower-bound computations sum these
// floors, so they never overestimate the achievable makespan.
func (d Distribution) MinPlausible() float64 {
	switch d.Kind {
	case DistNormal:
		return max(0, d.Mean-3*d.Std)
	case DistUniform:
		return d.Low
	case DistExponential:
		return 0
	default:
		return 0
	}
}
