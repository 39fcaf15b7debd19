package types

// TradeExit is why a simulated position was closed.
type TradeExit string

const (
	TradeExitTakeProfit TradeExit = "TP"
	TradeExitStopLoss   TradeExit = "SL"
	TradeExitTrailing   TradeExit = "TRAIL"
	TradeExitTime       TradeExit = "TIME"
	// TradeExitEnd closes a position still open at the end of its segment
	TradeExitEnd TradeExit = "END"
)

// Trade is one simulated long round trip.
type Trade struct {
	EntryIndex int     `json:"entry_index" yaml:"entry_index"`
	ExitIndex  int     `json:"exit_index" yaml:"exit_index"`
	EntryPrice float64 `json:"entry_price" yaml:"entry_price"`
	ExitPrice  float64 `json:"exit_price" yaml:"exit_price"`
	// ReturnPct is (exit - entry) / entry * 100
	ReturnPct float64   `json:"return_pct" yaml:"return_pct"`
	Exit      TradeExit `json:"exit" yaml:"exit"`
}

// BarsHeld returns the number of bars between entry and exit.
func (t Trade) BarsHeld() int {
	return t.ExitIndex - t.EntryIndex
}

// IsWin reports whether the trade closed with a positive return.
func (t Trade) IsWin() bool {
	return t.ReturnPct > 0
}
