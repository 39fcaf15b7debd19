// Package simulator replays long-only trades over a bar range with take-profit,
// stop-loss, trailing-stop and time-stop exits.
package simulator

import (
	"github.com/rxtech-lab/argo-ensemble/internal/types"
	"github.com/shopspring/decimal"
)

const (
	TakeProfitATR = 3.5
	StopLossATR   = 1.8
	TrailATR      = 1.5
	MaxHoldBars   = 30
)

// Decider returns the vote for bar i.
type Decider func(i int) types.Vote

type position struct {
	entryIndex   int
	entryPrice   float64
	takeProfit   float64
	initialStop  float64
	trail        float64
	highestClose float64
}

// Run simulates trades whose entries and exits lie in [start, end).
// A position opens at the close of a bar voted LONG and is checked from the
// next bar on. A position still open at end-1 is closed at that bar's close.
func Run(series types.BarSeries, atr []float64, start, end int, decide Decider) []types.Trade {
	start = max(start, 0)
	end = min(end, series.Len(), len(atr))

	var (
		trades []types.Trade
		pos    *position
	)

	for i := start; i < end; i++ {
		bar := series.Bars[i]

		if pos == nil {
			if atr[i] > 0 && decide(i) == types.VoteLong {
				stop := bar.Close - StopLossATR*atr[i]
				pos = &position{
					entryIndex:   i,
					entryPrice:   bar.Close,
					takeProfit:   bar.Close + TakeProfitATR*atr[i],
					initialStop:  stop,
					trail:        stop,
					highestClose: bar.Close,
				}
			}

			continue
		}

		switch {
		case bar.High >= pos.takeProfit:
			trades = append(trades, closeTrade(pos, i, pos.takeProfit, types.TradeExitTakeProfit))
			pos = nil
		case bar.Low <= pos.trail:
			reason := types.TradeExitTrailing
			if pos.trail == pos.initialStop {
				reason = types.TradeExitStopLoss
			}

			trades = append(trades, closeTrade(pos, i, pos.trail, reason))
			pos = nil
		case i-pos.entryIndex >= MaxHoldBars:
			trades = append(trades, closeTrade(pos, i, bar.Close, types.TradeExitTime))
			pos = nil
		case bar.Close > pos.highestClose:
			pos.highestClose = bar.Close
			if trail := bar.Close - TrailATR*atr[i]; trail > pos.trail {
				pos.trail = trail
			}
		}
	}

	if pos != nil && pos.entryIndex < end-1 {
		trades = append(trades, closeTrade(pos, end-1, series.Bars[end-1].Close, types.TradeExitEnd))
	}

	return trades
}

func closeTrade(pos *position, exitIndex int, exitPrice float64, reason types.TradeExit) types.Trade {
	return types.Trade{
		EntryIndex: pos.entryIndex,
		ExitIndex:  exitIndex,
		EntryPrice: pos.entryPrice,
		ExitPrice:  exitPrice,
		ReturnPct:  PctReturn(pos.entryPrice, exitPrice),
		Exit:       reason,
	}
}

// PctReturn returns (exit-entry)/entry in percent, rounded to 6 decimals.
func PctReturn(entry, exit float64) float64 {
	if entry == 0 {
		return 0
	}

	entryDec := decimal.NewFromFloat(entry)
	exitDec := decimal.NewFromFloat(exit)

	return exitDec.Sub(entryDec).Div(entryDec).Mul(decimal.NewFromInt(100)).Round(6).InexactFloat64()
}
