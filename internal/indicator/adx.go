package indicator

import "math"

// ADX returns Wilder's average directional index together with +DI and -DI.
//
// The directional indicators are zero before index period. ADX holds NeutralADX
// until 2*period-1, where it is seeded with the mean DX of the first period values.
func ADX(highs, lows, closes []float64, period int) (adx, plusDI, minusDI []float64) {
	n := len(closes)
	adx = make([]float64, n)
	plusDI = make([]float64, n)
	minusDI = make([]float64, n)

	for i := range adx {
		adx[i] = NeutralADX
	}

	if period <= 0 || n <= period {
		return adx, plusDI, minusDI
	}

	tr := TrueRange(highs, lows, closes)
	dx := make([]float64, n)

	var smoothTR, smoothPlus, smoothMinus float64

	for i := 1; i < n; i++ {
		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]

		plusDM, minusDM := 0.0, 0.0
		if up > down && up > 0 {
			plusDM = up
		}

		if down > up && down > 0 {
			minusDM = down
		}

		if i <= period {
			smoothTR += tr[i]
			smoothPlus += plusDM
			smoothMinus += minusDM

			if i < period {
				continue
			}
		} else {
			p := float64(period)
			smoothTR = smoothTR - smoothTR/p + tr[i]
			smoothPlus = smoothPlus - smoothPlus/p + plusDM
			smoothMinus = smoothMinus - smoothMinus/p + minusDM
		}

		if smoothTR > 0 {
			plusDI[i] = 100 * smoothPlus / smoothTR
			minusDI[i] = 100 * smoothMinus / smoothTR
		}

		if total := plusDI[i] + minusDI[i]; total > 0 {
			dx[i] = 100 * math.Abs(plusDI[i]-minusDI[i]) / total
		}
	}

	seed := 2*period - 1
	if n <= seed {
		return adx, plusDI, minusDI
	}

	sum := 0.0
	for i := period; i <= seed; i++ {
		sum += dx[i]
	}

	adx[seed] = sum / float64(period)

	for i := seed + 1; i < n; i++ {
		adx[i] = (adx[i-1]*float64(period-1) + dx[i]) / float64(period)
	}

	return adx, plusDI, minusDI
}
