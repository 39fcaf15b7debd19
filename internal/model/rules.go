package model

import (
	"math"

	"github.com/rxtech-lab/argo-ensemble/internal/features"
	"github.com/rxtech-lab/argo-ensemble/internal/types"
)

const (
	mtfRSILow      = 50.0
	mtfRSIHigh     = 70.0
	mtfMinADX      = 20.0
	mtfMinBullish  = 4
	rewardRSILow   = 45.0
	rewardRSIHigh  = 70.0
	rewardHighVol  = 5
	rewardDefault  = 4
	rewardShortMax = 1

	meanRevLowBand    = 0.1
	meanRevHighBand   = 0.9
	meanRevOversold   = 35.0
	meanRevOverbought = 65.0

	featureScoreThreshold = 3.0

	momentumMinROC       = 1.0
	momentumMinVolume    = 1.2
	momentumLongRSILow   = 40.0
	momentumLongRSIHigh  = 75.0
	momentumShortRSILow  = 25.0
	momentumShortRSIHigh = 60.0

	divergenceVolume  = 1.5
	divergenceStochK  = 20.0
	divergenceMinHits = 3

	layeredRSILow    = 45.0
	layeredRSIHigh   = 70.0
	layeredMinVolume = 1.0
	layeredBodyWick  = 0.5
)

func between(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

func count(conds ...bool) int {
	n := 0
	for _, c := range conds {
		if c {
			n++
		}
	}

	return n
}

func mtfConsensus(r features.Record) types.Vote {
	bullish := count(
		r.EMA9x21Cross > 0,
		r.EMA21x50Cross > 0,
		between(r.RSI14, mtfRSILow, mtfRSIHigh),
		r.MACDHistSlope > 0,
		r.ADX > mtfMinADX,
	)

	if bullish >= mtfMinBullish {
		return types.VoteLong
	}

	if r.EMA9x21Cross < 0 && r.EMA21x50Cross < 0 && r.RSI14 < mtfRSILow && r.MACDHistSlope < 0 && r.ADX > mtfMinADX {
		return types.VoteShort
	}

	return types.VoteNeutral
}

func rewardAdaptive(r features.Record, regime types.Regime) types.Vote {
	score := count(
		r.EMA9x21Cross > 0,
		r.MACDHist > 0,
		between(r.RSI14, rewardRSILow, rewardRSIHigh),
		r.VolumeRatio > 1.0,
		r.PriceVsEMA50 > 0,
		r.DIDiff > 0,
	)

	threshold := rewardDefault
	if regime == types.RegimeHighVol {
		threshold = rewardHighVol
	}

	switch {
	case score >= threshold:
		return types.VoteLong
	case score <= rewardShortMax:
		return types.VoteShort
	default:
		return types.VoteNeutral
	}
}

// meanReversion is switched off in trending markets.
func meanReversion(r features.Record, regime types.Regime) types.Vote {
	if regime == types.RegimeTrending {
		return types.VoteNeutral
	}

	switch {
	case r.BBPosition < meanRevLowBand && r.RSI14 < meanRevOversold:
		return types.VoteLong
	case r.BBPosition > meanRevHighBand && r.RSI14 > meanRevOverbought:
		return types.VoteShort
	default:
		return types.VoteNeutral
	}
}

type term struct {
	weight float64
	value  func(features.Record) float64
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func unit(v, scale float64) float64 {
	return clamp(v/scale, -1, 1)
}

func signum(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// featureTerms are the 17 weighted inputs of the feature-weighted model.
// Each value is normalized to [-1, 1].
var featureTerms = []term{
	{1.0, func(r features.Record) float64 { return r.EMA9x21Cross }},
	{1.0, func(r features.Record) float64 { return r.EMA21x50Cross }},
	{0.5, func(r features.Record) float64 { return unit(r.RSI14-50, 10) }},
	{0.5, func(r features.Record) float64 { return unit(r.RSISlope, 5) }},
	{1.0, func(r features.Record) float64 { return signum(r.MACDHist) }},
	{0.5, func(r features.Record) float64 { return signum(r.MACDHistSlope) }},
	{0.5, func(r features.Record) float64 { return unit(r.StochK-50, 25) }},
	{0.5, func(r features.Record) float64 { return unit(r.ROC5, 2) }},
	{0.5, func(r features.Record) float64 { return unit(r.PriceVsEMA50, 2) }},
	{0.5, func(r features.Record) float64 { return unit(r.DIDiff, 10) }},
	{0.5, func(r features.Record) float64 { return unit(r.Slope10, 0.5) }},
	{0.5, func(r features.Record) float64 { return unit(r.OBVSlope, 1) }},
	{0.5, func(r features.Record) float64 { return unit(r.MFI-50, 20) }},
	{0.5, func(r features.Record) float64 { return unit(r.VWAPDistance, 1) }},
	{0.5, func(r features.Record) float64 { return r.HigherLows }},
	{-0.5, func(r features.Record) float64 { return r.LowerHighs }},
	{0.5, func(r features.Record) float64 {
		if r.VolumeRatio > 1 {
			return 1
		}

		return 0
	}},
}

// FeatureScore returns the linear score used by the feature-weighted model.
func FeatureScore(r features.Record) float64 {
	score := 0.0
	for _, t := range featureTerms {
		score += t.weight * t.value(r)
	}

	return score
}

func featureWeighted(r features.Record) types.Vote {
	score := FeatureScore(r)

	switch {
	case score >= featureScoreThreshold:
		return types.VoteLong
	case score <= -featureScoreThreshold:
		return types.VoteShort
	default:
		return types.VoteNeutral
	}
}

func volumeMomentum(r features.Record) types.Vote {
	if r.VolumeRatio <= momentumMinVolume {
		return types.VoteNeutral
	}

	switch {
	case r.ROC5 > momentumMinROC && r.RSI14 > momentumLongRSILow && r.RSI14 < momentumLongRSIHigh:
		return types.VoteLong
	case r.ROC5 < -momentumMinROC && r.RSI14 > momentumShortRSILow && r.RSI14 < momentumShortRSIHigh:
		return types.VoteShort
	default:
		return types.VoteNeutral
	}
}

func squeezeBreakout(r features.Record) types.Vote {
	if !features.Has(r.BBSqueeze) && !features.Has(r.KeltnerSqueeze) {
		return types.VoteNeutral
	}

	switch {
	case r.MACDHistSlope > 0 && r.ROC5 > 0:
		return types.VoteLong
	case r.MACDHistSlope < 0 && r.ROC5 < 0:
		return types.VoteShort
	default:
		return types.VoteNeutral
	}
}

func divergence(r features.Record) types.Vote {
	hits := count(
		features.Has(r.OBVDivergence),
		features.Has(r.RSIDivergence),
		r.VolumeRatio > divergenceVolume,
		r.StochK < divergenceStochK,
	)

	if hits >= divergenceMinHits {
		return types.VoteLong
	}

	return types.VoteNeutral
}

func layered(r features.Record) types.Vote {
	trend := r.EMA21x50Cross > 0 && r.PriceVsEMA50 > 0
	momentum := between(r.RSI14, layeredRSILow, layeredRSIHigh) && r.MACDHist > 0
	volume := r.VolumeRatio >= layeredMinVolume && r.OBVSlope > 0
	structure := features.Has(r.HigherLows) || features.Has(r.NearSupport) || r.BodyWickRatio > layeredBodyWick

	if trend && momentum && volume && structure {
		return types.VoteLong
	}

	return types.VoteNeutral
}
