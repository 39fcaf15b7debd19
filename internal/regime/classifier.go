// Package regime classifies the market state of a bar from its feature record.
package regime

import (
	"github.com/rxtech-lab/argo-ensemble/internal/features"
	"github.com/rxtech-lab/argo-ensemble/internal/types"
)

const (
	HighVolADX         = 30.0
	HighVolRealizedVol = 3.0
	TrendingADX        = 25.0
	LowVolRealizedVol  = 1.5
)

// Classify returns the regime of a record. The checks run in a fixed order and
// the first match wins.
func Classify(rec features.Record) types.Regime {
	switch {
	case rec.ADX > HighVolADX && rec.RealizedVol > HighVolRealizedVol:
		return types.RegimeHighVol
	case rec.ADX > TrendingADX:
		return types.RegimeTrending
	case rec.RealizedVol < LowVolRealizedVol:
		return types.RegimeLowVol
	default:
		return types.RegimeNormal
	}
}
