// Package features derives the 32-field feature record of a bar from its
// indicator set and the raw bars.
package features

import (
	"math"

	"github.com/rxtech-lab/argo-ensemble/internal/indicator"
	"github.com/rxtech-lab/argo-ensemble/internal/types"
)

// WarmUp is the number of bars required before a record can be extracted.
const WarmUp = 60

// Window lengths and thresholds of the feature formulas.
const (
	slopeLag          = 3
	stochWindow       = 14
	rocWindow         = 5
	trendSlopeWindow  = 10
	squeezeWindow     = 20
	squeezeRatio      = 0.8
	keltnerMultiplier = 1.5
	volWindow         = 20
	volumeWindow      = 20
	volumeChangeLag   = 3
	obvSlopeLag       = 5
	divergenceWindow  = 10
	mfiWindow         = 14
	vwapWindow        = 20
	swingWindow       = 5
	rangeWindow       = 10
	compressionRatio  = 0.7
	supportWindow     = 20
	supportDistance   = 0.02
)

// Extract returns the feature record of bar i.
// ok is false when i is inside the warm-up or outside the series.
func Extract(series types.BarSeries, set indicator.Set, i int) (Record, bool) {
	n := series.Len()
	if i < WarmUp || i >= n || set.Len() != n {
		return Record{}, false
	}

	bars := series.Bars
	bar := bars[i]
	c := bar.Close

	rec := Record{
		Index:         i,
		RSI14:         set.RSI14[i],
		RSI7:          set.RSI7[i],
		RSISlope:      set.RSI14[i] - set.RSI14[i-slopeLag],
		MACDHist:      set.MACDHist[i],
		MACDHistSlope: set.MACDHist[i] - set.MACDHist[i-slopeLag],
		StochK:        stochK(bars, i),
		RSIOfRSI:      stochastic(set.RSI14[i-stochWindow+1:i+1], set.RSI14[i]),
		ROC5:          pctChange(bars[i-rocWindow].Close, c),

		EMA9x21Cross:  sign(set.EMA9[i] > set.EMA21[i]),
		EMA21x50Cross: sign(set.EMA21[i] > set.EMA50[i]),
		PriceVsEMA50:  pctChange(set.EMA50[i], c),
		ADX:           set.ADX[i],
		DIDiff:        set.PlusDI[i] - set.MinusDI[i],
		Slope10:       slope10(bars, i),

		ATRPct:         ratio(set.ATR[i], c) * 100,
		BBWidth:        bbWidthAt(set, i),
		BBPosition:     bbPosition(set, c, i),
		BBSqueeze:      flag(bbSqueeze(set, i)),
		KeltnerSqueeze: flag(keltnerSqueeze(set, i)),
		RealizedVol:    realizedVol(bars, i),

		VolumeRatio:   volumeRatio(bars, i),
		VolumeChange3: pctChange(bars[i-volumeChangeLag].Volume, bar.Volume),
		OBVSlope:      obvSlope(bars, set, i),
		OBVDivergence: flag(c-bars[i-divergenceWindow].Close < 0 && set.OBV[i]-set.OBV[i-divergenceWindow] > 0),
		MFI:           mfi(bars, i),
		VWAPDistance:  vwapDistance(bars, i),

		HigherLows:       flag(higherLows(bars, i)),
		LowerHighs:       flag(lowerHighs(bars, i)),
		RangeCompression: flag(rangeCompression(bars, i)),
		RSIDivergence:    flag(rsiDivergence(bars, set, i)),
		NearSupport:      flag(nearSupport(bars, i)),
		BodyWickRatio:    bodyWickRatio(bar),
	}

	return rec, true
}

// ExtractAll returns the records of every index. Entries inside the warm-up are
// zero values with ok false in the parallel slice.
func ExtractAll(series types.BarSeries, set indicator.Set) ([]Record, []bool) {
	n := series.Len()
	records := make([]Record, n)
	ok := make([]bool, n)

	for i := WarmUp; i < n; i++ {
		records[i], ok[i] = Extract(series, set, i)
	}

	return records, ok
}

// Latest returns the record of the last bar.
func Latest(series types.BarSeries, set indicator.Set) (Record, bool) {
	return Extract(series, set, series.Len()-1)
}

func sign(b bool) float64 {
	if b {
		return 1
	}

	return -1
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}

	return num / den
}

func pctChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}

	return (to/from - 1) * 100
}

func stochastic(window []float64, value float64) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range window {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	if hi == lo {
		return 50
	}

	return (value - lo) / (hi - lo) * 100
}

func stochK(bars []types.Bar, i int) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, b := range bars[i-stochWindow+1 : i+1] {
		lo = math.Min(lo, b.Low)
		hi = math.Max(hi, b.High)
	}

	if hi == lo {
		return 50
	}

	return (bars[i].Close - lo) / (hi - lo) * 100
}

// slope10 is the least-squares slope of the last closes as a percent of the mean close.
func slope10(bars []types.Bar, i int) float64 {
	window := bars[i-trendSlopeWindow+1 : i+1]
	k := float64(len(window))

	var sumX, sumY, sumXY, sumXX float64

	for x, b := range window {
		fx := float64(x)
		sumX += fx
		sumY += b.Close
		sumXY += fx * b.Close
		sumXX += fx * fx
	}

	den := k*sumXX - sumX*sumX
	if den == 0 {
		return 0
	}

	slope := (k*sumXY - sumX*sumY) / den

	return ratio(slope, sumY/k) * 100
}

func bbWidthAt(set indicator.Set, i int) float64 {
	return ratio(set.BBUpper[i]-set.BBLower[i], set.BBMiddle[i]) * 100
}

func bbPosition(set indicator.Set, c float64, i int) float64 {
	width := set.BBUpper[i] - set.BBLower[i]
	if width == 0 {
		return 0.5
	}

	return math.Max(0, math.Min(1, (c-set.BBLower[i])/width))
}

func bbSqueeze(set indicator.Set, i int) bool {
	sum := 0.0
	for k := i - squeezeWindow + 1; k <= i; k++ {
		sum += bbWidthAt(set, k)
	}

	return bbWidthAt(set, i) <= squeezeRatio*sum/squeezeWindow
}

// keltnerSqueeze reports whether the Bollinger bands sit inside the Keltner channel
// built on the same 20-bar mean.
func keltnerSqueeze(set indicator.Set, i int) bool {
	upper := set.BBMiddle[i] + keltnerMultiplier*set.ATR[i]
	lower := set.BBMiddle[i] - keltnerMultiplier*set.ATR[i]

	return set.BBUpper[i] < upper && set.BBLower[i] > lower
}

func realizedVol(bars []types.Bar, i int) float64 {
	returns := make([]float64, 0, volWindow)

	for k := i - volWindow + 1; k <= i; k++ {
		returns = append(returns, ratio(bars[k].Close-bars[k-1].Close, bars[k-1].Close))
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}

	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}

	return math.Sqrt(variance/float64(len(returns)-1)) * 100
}

func meanVolume(bars []types.Bar, i int) float64 {
	sum := 0.0
	for _, b := range bars[i-volumeWindow+1 : i+1] {
		sum += b.Volume
	}

	return sum / volumeWindow
}

func volumeRatio(bars []types.Bar, i int) float64 {
	avg := meanVolume(bars, i)
	if avg == 0 {
		return 1
	}

	return bars[i].Volume / avg
}

func obvSlope(bars []types.Bar, set indicator.Set, i int) float64 {
	return ratio(set.OBV[i]-set.OBV[i-obvSlopeLag], meanVolume(bars, i))
}

func typicalPrice(b types.Bar) float64 {
	return (b.High + b.Low + b.Close) / 3
}

func mfi(bars []types.Bar, i int) float64 {
	var positive, negative float64

	for k := i - mfiWindow + 1; k <= i; k++ {
		tp := typicalPrice(bars[k])
		prev := typicalPrice(bars[k-1])
		flow := tp * bars[k].Volume

		switch {
		case tp > prev:
			positive += flow
		case tp < prev:
			negative += flow
		}
	}

	if negative == 0 {
		if positive == 0 {
			return 50
		}

		return 100
	}

	return 100 - 100/(1+positive/negative)
}

func vwapDistance(bars []types.Bar, i int) float64 {
	var pv, v float64

	for _, b := range bars[i-vwapWindow+1 : i+1] {
		pv += typicalPrice(b) * b.Volume
		v += b.Volume
	}

	if v == 0 {
		return 0
	}

	return pctChange(pv/v, bars[i].Close)
}

func minLow(bars []types.Bar, from, to int) float64 {
	out := math.Inf(1)
	for _, b := range bars[from : to+1] {
		out = math.Min(out, b.Low)
	}

	return out
}

func maxHigh(bars []types.Bar, from, to int) float64 {
	out := math.Inf(-1)
	for _, b := range bars[from : to+1] {
		out = math.Max(out, b.High)
	}

	return out
}

func higherLows(bars []types.Bar, i int) bool {
	w := swingWindow
	recent := minLow(bars, i-w+1, i)
	middle := minLow(bars, i-2*w+1, i-w)
	oldest := minLow(bars, i-3*w+1, i-2*w)

	return recent > middle && middle > oldest
}

func lowerHighs(bars []types.Bar, i int) bool {
	w := swingWindow
	recent := maxHigh(bars, i-w+1, i)
	middle := maxHigh(bars, i-2*w+1, i-w)
	oldest := maxHigh(bars, i-3*w+1, i-2*w)

	return recent < middle && middle < oldest
}

func rangeCompression(bars []types.Bar, i int) bool {
	w := rangeWindow
	recent := maxHigh(bars, i-w+1, i) - minLow(bars, i-w+1, i)
	prior := maxHigh(bars, i-2*w+1, i-w) - minLow(bars, i-2*w+1, i-w)

	return prior > 0 && recent < compressionRatio*prior
}

// rsiDivergence is a bullish divergence: the close makes a low at or below the
// prior window's lowest close while RSI stays above its value at that low.
func rsiDivergence(bars []types.Bar, set indicator.Set, i int) bool {
	w := divergenceWindow

	recentLow := math.Inf(1)
	for k := i - w + 1; k <= i; k++ {
		recentLow = math.Min(recentLow, bars[k].Close)
	}

	if bars[i].Close > recentLow {
		return false
	}

	priorIdx := i - 2*w + 1
	for k := priorIdx; k <= i-w; k++ {
		if bars[k].Close < bars[priorIdx].Close {
			priorIdx = k
		}
	}

	return bars[i].Close <= bars[priorIdx].Close && set.RSI14[i] > set.RSI14[priorIdx]
}

func nearSupport(bars []types.Bar, i int) bool {
	support := minLow(bars, i-supportWindow+1, i)
	if support <= 0 {
		return false
	}

	return (bars[i].Close-support)/support <= supportDistance
}

func bodyWickRatio(b types.Bar) float64 {
	return ratio(math.Abs(b.Close-b.Open), b.High-b.Low)
}
