package indicator

// OBV returns on-balance volume starting from zero at the first bar.
func OBV(closes, volumes []float64) []float64 {
	out := make([]float64, len(closes))

	for i := 1; i < len(closes); i++ {
		switch {
		case closes[i] > closes[i-1]:
			out[i] = out[i-1] + volumes[i]
		case closes[i] < closes[i-1]:
			out[i] = out[i-1] - volumes[i]
		default:
			out[i] = out[i-1]
		}
	}

	return out
}
