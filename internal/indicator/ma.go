package indicator

import "math"

// SMA returns the simple moving average over a trailing window.
// Indices before the window is filled average the bars seen so far.
func SMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if period <= 0 {
		return out
	}

	sum := 0.0

	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}

		out[i] = sum / float64(min(i+1, period))
	}

	return out
}

// StdDev returns the population standard deviation over a trailing window.
func StdDev(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if period <= 0 {
		return out
	}

	means := SMA(values, period)

	for i := range values {
		start := max(0, i-period+1)
		variance := 0.0

		for _, v := range values[start : i+1] {
			d := v - means[i]
			variance += d * d
		}

		out[i] = math.Sqrt(variance / float64(i+1-start))
	}

	return out
}
