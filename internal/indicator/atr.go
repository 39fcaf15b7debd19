package indicator

import "math"

// TrueRange returns the true range of every bar. The first bar uses high-low.
func TrueRange(highs, lows, closes []float64) []float64 {
	out := make([]float64, len(closes))

	for i := range closes {
		hl := highs[i] - lows[i]
		if i == 0 {
			out[i] = hl

			continue
		}

		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		out[i] = math.Max(hl, math.Max(hc, lc))
	}

	return out
}

// ATR returns Wilder's average true range. The first period entries hold the
// running mean true range, which seeds the smoothing at index period-1.
func ATR(highs, lows, closes []float64, period int) []float64 {
	tr := TrueRange(highs, lows, closes)
	out := make([]float64, len(tr))

	if period <= 0 {
		return out
	}

	sum := 0.0

	for i, v := range tr {
		if i < period {
			sum += v
			out[i] = sum / float64(i+1)

			continue
		}

		out[i] = (out[i-1]*float64(period-1) + v) / float64(period)
	}

	return out
}
