package types

import "time"

// EnsembleModelID is the model id used for rows of the "at least 4 of 8 agree" rule.
const EnsembleModelID = "ensemble"

// TradeStats aggregates a list of simulated trades.
type TradeStats struct {
	// Count of all trades.
	TradeCount int `json:"trade_count" yaml:"trade_count"`
	// Count of trades with a positive return.
	WinCount int `json:"win_count" yaml:"win_count"`
	// WinRate in [0,1].
	WinRate float64 `json:"win_rate" yaml:"win_rate"`
	// ProfitFactor is gross gains over gross losses. 999 when there are gains and no losses.
	ProfitFactor float64 `json:"profit_factor" yaml:"profit_factor"`
	// TotalReturn is the sum of percentage returns.
	TotalReturn float64 `json:"total_return" yaml:"total_return"`
	// Sharpe is mean over sample standard deviation of the per-trade returns.
	Sharpe float64 `json:"sharpe" yaml:"sharpe"`
}

// BacktestResult is one row per (model, symbol, segment).
type BacktestResult struct {
	ModelID   string    `json:"model_id" yaml:"model_id"`
	Symbol    string    `json:"symbol" yaml:"symbol"`
	IsTrain   bool      `json:"is_train" yaml:"is_train"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	TradeStats `yaml:",inline"`
}

// ModelWeight is the persisted blending weight of one sub-model.
type ModelWeight struct {
	ModelID       string    `json:"model_id" yaml:"model_id"`
	Weight        float64   `json:"weight" yaml:"weight"`
	RecentSharpe  float64   `json:"recent_sharpe" yaml:"recent_sharpe"`
	RecentWinRate float64   `json:"recent_win_rate" yaml:"recent_win_rate"`
	UpdatedAt     time.Time `json:"updated_at" yaml:"updated_at"`
}

// LeaderboardEntry ranks a model by its out-of-sample results across the universe.
type LeaderboardEntry struct {
	Rank       int     `json:"rank" yaml:"rank"`
	ModelID    string  `json:"model_id" yaml:"model_id"`
	Name       string  `json:"name" yaml:"name"`
	Weight     float64 `json:"weight" yaml:"weight"`
	TestTrades int     `json:"test_trades" yaml:"test_trades"`
	WinRate    float64 `json:"win_rate" yaml:"win_rate"`
	Return     float64 `json:"total_return" yaml:"total_return"`
	Sharpe     float64 `json:"sharpe" yaml:"sharpe"`
}

// CompareEntry puts a model's train and test results side by side.
type CompareEntry struct {
	ModelID     string  `json:"model_id" yaml:"model_id"`
	TrainSharpe float64 `json:"train_sharpe" yaml:"train_sharpe"`
	TestSharpe  float64 `json:"test_sharpe" yaml:"test_sharpe"`
	TrainWin    float64 `json:"train_win_rate" yaml:"train_win_rate"`
	TestWin     float64 `json:"test_win_rate" yaml:"test_win_rate"`
	TrainTrades int     `json:"train_trades" yaml:"train_trades"`
	TestTrades  int     `json:"test_trades" yaml:"test_trades"`
	// OverfitGap is train sharpe minus test sharpe
	OverfitGap float64 `json:"overfit_gap" yaml:"overfit_gap"`
}

// AuditEntry is one row of the audit log.
type AuditEntry struct {
	ID        string    `json:"id" yaml:"id"`
	Action    string    `json:"action" yaml:"action"`
	Details   string    `json:"details" yaml:"details"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}
