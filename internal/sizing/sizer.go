// Package sizing computes the fraction of capital to allocate to a signal.
package sizing

import (
	"math"

	"github.com/rxtech-lab/argo-ensemble/internal/types"
)

const (
	BaseSize     = 1.0
	MinSize      = 0.05
	MaxSize      = 1.0
	HalfLifeBars = 10.0
	// MinVolatility is the fractional volatility floor of the decay term.
	MinVolatility = 0.005
	MaxDecay      = 1.5
)

// RegimeMultiplier scales the base size by market state.
func RegimeMultiplier(regime types.Regime) float64 {
	switch regime {
	case types.RegimeHighVol:
		return 0.3
	case types.RegimeTrending:
		return 0.8
	default:
		return 1.0
	}
}

// DecayFactor is the half-life decay per bar divided by volatility, capped at MaxDecay.
// volPct is a percentage.
func DecayFactor(volPct float64) float64 {
	decay := 1 - math.Exp(-math.Ln2/HalfLifeBars)
	vol := math.Max(volPct/100, MinVolatility)

	return math.Min(decay/vol, MaxDecay)
}

// Raw returns the unclamped position size.
func Raw(regime types.Regime, volPct, confidencePct float64) float64 {
	return BaseSize * RegimeMultiplier(regime) * DecayFactor(volPct) * confidencePct / 100
}

// Size returns the position size clamped to [MinSize, MaxSize].
func Size(regime types.Regime, volPct, confidencePct float64) float64 {
	return math.Max(MinSize, math.Min(MaxSize, Raw(regime, volPct, confidencePct)))
}
