package types

import (
	"time"

	"github.com/moznion/go-optional"
)

// Regime is a coarse market-state classification.
type Regime string

const (
	RegimeTrending Regime = "TRENDING"
	RegimeHighVol  Regime = "HIGH_VOL"
	RegimeLowVol   Regime = "LOW_VOL"
	RegimeNormal   Regime = "NORMAL"
)

// Vote is the decision of one sub-model.
type Vote string

const (
	// VoteLong tells the ensemble to open a long position
	VoteLong Vote = "LONG"
	// VoteShort is a bearish vote. The simulator is long-only and never opens on it
	VoteShort Vote = "SHORT"
	// VoteNeutral means no action
	VoteNeutral Vote = "NEUTRAL"
)

type SignalStatus string

const (
	SignalStatusActive   SignalStatus = "ACTIVE"
	SignalStatusResolved SignalStatus = "RESOLVED"
)

type ExitReason string

const (
	ExitReasonNone    ExitReason = ""
	ExitReasonTPHit   ExitReason = "TP_HIT"
	ExitReasonSLHit   ExitReason = "SL_HIT"
	ExitReasonExpired ExitReason = "EXPIRED"
)

// FeatureValue is one named entry of a FeaturesSnapshot.
type FeatureValue struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

// FeaturesSnapshot is the ordered, immutable copy of a feature record stored with a signal.
type FeaturesSnapshot []FeatureValue

// Get returns the value of the named feature.
func (f FeaturesSnapshot) Get(name string) (float64, bool) {
	for _, v := range f {
		if v.Name == name {
			return v.Value, true
		}
	}

	return 0, false
}

// VoteEntry is one sub-model's vote with the weight it carried at scan time.
type VoteEntry struct {
	ModelID string  `json:"model_id" yaml:"model_id"`
	Name    string  `json:"name" yaml:"name"`
	Vote    Vote    `json:"vote" yaml:"vote"`
	Weight  float64 `json:"weight" yaml:"weight"`
}

// VotesSnapshot is the ordered, immutable record of all votes behind a signal.
type VotesSnapshot []VoteEntry

// LongCount returns the number of LONG votes.
func (v VotesSnapshot) LongCount() int {
	count := 0

	for _, e := range v {
		if e.Vote == VoteLong {
			count++
		}
	}

	return count
}

// WeightedScore returns the sum of weights of the models voting LONG.
func (v VotesSnapshot) WeightedScore() float64 {
	score := 0.0

	for _, e := range v {
		if e.Vote == VoteLong {
			score += e.Weight
		}
	}

	return score
}

type Signal struct {
	// ID is the unique identifier of the signal
	ID string `json:"id" yaml:"id"`
	// Symbol is the instrument the signal was emitted for
	Symbol string `json:"symbol" yaml:"symbol"`
	// Direction of the trade, always LONG for emitted signals
	Direction Vote `json:"direction" yaml:"direction"`
	// EntryPrice is the close of the bar the signal was evaluated on
	EntryPrice float64 `json:"entry_price" yaml:"entry_price"`
	TPPrice    float64 `json:"tp_price" yaml:"tp_price"`
	SLPrice    float64 `json:"sl_price" yaml:"sl_price"`
	TPPct      float64 `json:"tp_pct" yaml:"tp_pct"`
	SLPct      float64 `json:"sl_pct" yaml:"sl_pct"`
	// Confidence in percent, capped at 95
	Confidence    int     `json:"confidence" yaml:"confidence"`
	Regime        Regime  `json:"regime" yaml:"regime"`
	PositionSize  float64 `json:"position_size" yaml:"position_size"`
	ModelsAgree   int     `json:"models_agree" yaml:"models_agree"`
	WeightedScore float64 `json:"weighted_score" yaml:"weighted_score"`
	// Votes and Features are stored for audit and debugging
	Votes        VotesSnapshot    `json:"votes" yaml:"votes"`
	Features     FeaturesSnapshot `json:"features" yaml:"features"`
	Status       SignalStatus     `json:"status" yaml:"status"`
	CurrentPrice float64          `json:"current_price" yaml:"current_price"`
	PnLPct       float64          `json:"pnl_pct" yaml:"pnl_pct"`
	ExitReason   ExitReason       `json:"exit_reason" yaml:"exit_reason"`
	CreatedAt    time.Time        `json:"created_at" yaml:"created_at"`
	// ResolvedAt is set once the signal reaches a terminal state
	ResolvedAt optional.Option[time.Time] `json:"resolved_at" yaml:"-"`
	// Inserted reports whether this scan persisted the signal. False when an ACTIVE
	// signal already existed for the symbol or the write failed.
	Inserted bool `json:"inserted,omitempty" yaml:"inserted,omitempty"`
}

// IsActive reports whether the signal is still open.
func (s Signal) IsActive() bool {
	return s.Status == SignalStatusActive
}
