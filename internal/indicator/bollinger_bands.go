package indicator

// Bollinger returns the upper, middle and lower Bollinger bands.
// Before the window is filled all three bands equal the close.
func Bollinger(closes []float64, period int, k float64) (upper, middle, lower []float64) {
	n := len(closes)
	upper = make([]float64, n)
	middle = make([]float64, n)
	lower = make([]float64, n)

	means := SMA(closes, period)
	devs := StdDev(closes, period)

	for i := range closes {
		if i < period-1 {
			upper[i], middle[i], lower[i] = closes[i], closes[i], closes[i]

			continue
		}

		middle[i] = means[i]
		upper[i] = means[i] + k*devs[i]
		lower[i] = means[i] - k*devs[i]
	}

	return upper, middle, lower
}
