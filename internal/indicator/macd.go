package indicator

// MACD returns the MACD line, its signal line and the histogram.
// The MACD line is zero until the slow EMA window is filled.
func MACD(closes []float64, fast, slow, signalPeriod int) (macd, signal, hist []float64) {
	n := len(closes)
	macd = make([]float64, n)

	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)

	for i := range closes {
		if i < slow-1 {
			continue
		}

		macd[i] = fastEMA[i] - slowEMA[i]
	}

	signal = EMA(macd, signalPeriod)
	hist = make([]float64, n)

	for i := range macd {
		hist[i] = macd[i] - signal[i]
	}

	return macd, signal, hist
}
