package types

import "time"

// FeatureView is the read-only "features" report for one symbol.
type FeatureView struct {
	Symbol   string           `json:"symbol" yaml:"symbol"`
	BarTime  time.Time        `json:"bar_time" yaml:"bar_time"`
	Close    float64          `json:"close" yaml:"close"`
	Regime   Regime           `json:"regime" yaml:"regime"`
	Votes    VotesSnapshot    `json:"votes" yaml:"votes"`
	Features FeaturesSnapshot `json:"features" yaml:"features"`
}

// Report is the structured outcome of one invocation.
type Report struct {
	OK           bool               `json:"ok" yaml:"ok"`
	Action       string             `json:"action" yaml:"action"`
	Error        string             `json:"error,omitempty" yaml:"error,omitempty"`
	ValidActions []string           `json:"valid_actions,omitempty" yaml:"valid_actions,omitempty"`
	Signals      []Signal           `json:"signals,omitempty" yaml:"signals,omitempty"`
	Resolved     []Signal           `json:"resolved,omitempty" yaml:"resolved,omitempty"`
	Results      []BacktestResult   `json:"results,omitempty" yaml:"results,omitempty"`
	Weights      []ModelWeight      `json:"weights,omitempty" yaml:"weights,omitempty"`
	Leaderboard  []LeaderboardEntry `json:"leaderboard,omitempty" yaml:"leaderboard,omitempty"`
	Compare      []CompareEntry     `json:"compare,omitempty" yaml:"compare,omitempty"`
	Audit        []AuditEntry       `json:"audit,omitempty" yaml:"audit,omitempty"`
	Features     *FeatureView       `json:"features,omitempty" yaml:"features,omitempty"`
	// Skipped lists instruments dropped from the run with the reason
	Skipped  map[string]string `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Duration time.Duration     `json:"duration" yaml:"duration"`
}

// FailedReport builds a report for an invocation that did no work.
func FailedReport(action string, err error) Report {
	return Report{
		OK:     false,
		Action: action,
		Error:  err.Error(),
	}
}
