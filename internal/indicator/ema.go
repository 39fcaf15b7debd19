package indicator

// EMA returns the exponential moving average of values.
// The first period-1 entries hold the running simple mean, which also seeds the
// recurrence at index period-1.
func EMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 || period <= 0 {
		return out
	}

	alpha := 2.0 / float64(period+1)
	sum := 0.0

	for i, v := range values {
		if i < period {
			sum += v
			out[i] = sum / float64(i+1)

			continue
		}

		out[i] = alpha*v + (1-alpha)*out[i-1]
	}

	return out
}
