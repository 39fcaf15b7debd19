// Package indicator computes the technical indicator series used by the feature extractor.
//
// Every series has the same length as its input and is causal: the value at index i
// depends only on bars 0..i. Indices before an indicator's window is filled hold a
// neutral value instead of NaN.
package indicator

import "github.com/rxtech-lab/argo-ensemble/internal/types"

// Fixed indicator periods.
const (
	EMAFastPeriod    = 9
	EMAMidPeriod     = 21
	EMASlowPeriod    = 50
	RSIPeriod        = 14
	RSIFastPeriod    = 7
	ATRPeriod        = 14
	BollingerPeriod  = 20
	BollingerStdDev  = 2.0
	MACDFastPeriod   = 12
	MACDSlowPeriod   = 26
	MACDSignalPeriod = 9
	ADXPeriod        = 14
)

// Neutral values reported before the window is filled.
const (
	NeutralRSI = 50.0
	NeutralADX = 25.0
)

// Set holds every indicator series of one BarSeries, aligned index by index.
type Set struct {
	EMA9  []float64
	EMA21 []float64
	EMA50 []float64

	RSI14 []float64
	RSI7  []float64

	ATR []float64

	BBUpper  []float64
	BBMiddle []float64
	BBLower  []float64

	MACD       []float64
	MACDSignal []float64
	MACDHist   []float64

	OBV []float64

	ADX     []float64
	PlusDI  []float64
	MinusDI []float64
}

// Len returns the number of indices covered by the set.
func (s Set) Len() int {
	return len(s.EMA9)
}

// Compute calculates all indicators over the series.
func Compute(series types.BarSeries) Set {
	closes := series.Closes()
	highs := series.Highs()
	lows := series.Lows()
	volumes := series.Volumes()

	upper, middle, lower := Bollinger(closes, BollingerPeriod, BollingerStdDev)
	macd, signal, hist := MACD(closes, MACDFastPeriod, MACDSlowPeriod, MACDSignalPeriod)
	adx, plusDI, minusDI := ADX(highs, lows, closes, ADXPeriod)

	return Set{
		EMA9:       EMA(closes, EMAFastPeriod),
		EMA21:      EMA(closes, EMAMidPeriod),
		EMA50:      EMA(closes, EMASlowPeriod),
		RSI14:      RSI(closes, RSIPeriod),
		RSI7:       RSI(closes, RSIFastPeriod),
		ATR:        ATR(highs, lows, closes, ATRPeriod),
		BBUpper:    upper,
		BBMiddle:   middle,
		BBLower:    lower,
		MACD:       macd,
		MACDSignal: signal,
		MACDHist:   hist,
		OBV:        OBV(closes, volumes),
		ADX:        adx,
		PlusDI:     plusDI,
		MinusDI:    minusDI,
	}
}
