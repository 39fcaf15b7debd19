package simulator

import (
	"math"

	"github.com/rxtech-lab/argo-ensemble/internal/types"
)

// NoLossProfitFactor is reported when there are winning trades and no losses.
const NoLossProfitFactor = 999.0

// Stats summarizes a list of trades.
func Stats(trades []types.Trade) types.TradeStats {
	stats := types.TradeStats{TradeCount: len(trades)}
	if len(trades) == 0 {
		return stats
	}

	var gains, losses float64

	for _, t := range trades {
		stats.TotalReturn += t.ReturnPct

		if t.IsWin() {
			stats.WinCount++
			gains += t.ReturnPct
		} else {
			losses -= t.ReturnPct
		}
	}

	stats.WinRate = float64(stats.WinCount) / float64(len(trades))

	switch {
	case losses > 0:
		stats.ProfitFactor = gains / losses
	case gains > 0:
		stats.ProfitFactor = NoLossProfitFactor
	}

	stats.Sharpe = Sharpe(trades)

	return stats
}

// Sharpe is the mean over the sample standard deviation of per-trade returns.
// It is 0 with fewer than two trades or no dispersion.
func Sharpe(trades []types.Trade) float64 {
	n := len(trades)
	if n < 2 {
		return 0
	}

	mean := 0.0
	for _, t := range trades {
		mean += t.ReturnPct
	}

	mean /= float64(n)

	variance := 0.0
	for _, t := range trades {
		d := t.ReturnPct - mean
		variance += d * d
	}

	std := math.Sqrt(variance / float64(n-1))
	if std == 0 {
		return 0
	}

	return mean / std
}
