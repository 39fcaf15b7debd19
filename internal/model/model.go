// Package model holds the closed set of heuristic sub-models and the ensemble vote.
//
// Every sub-model is a pure rule over one feature record and the bar's regime.
// The set is fixed at compile time; Decide switches over it.
package model

import (
	"github.com/rxtech-lab/argo-ensemble/internal/features"
	"github.com/rxtech-lab/argo-ensemble/internal/types"
	"github.com/rxtech-lab/argo-ensemble/pkg/errors"
)

// ID identifies a sub-model.
type ID int

const (
	MTFConsensus ID = iota + 1
	RewardAdaptive
	MeanReversion
	FeatureWeighted
	VolumeMomentum
	SqueezeBreakout
	Divergence
	Layered
)

// EnsembleMinLong is the number of LONG votes the ensemble rule needs.
const EnsembleMinLong = 4

var all = []ID{
	MTFConsensus, RewardAdaptive, MeanReversion, FeatureWeighted,
	VolumeMomentum, SqueezeBreakout, Divergence, Layered,
}

type info struct {
	key         string
	name        string
	description string
}

var infos = map[ID]info{
	MTFConsensus:    {"mtf_consensus", "Multi-Timeframe Consensus", "EMA alignment, RSI band, MACD momentum and ADX must mostly agree"},
	RewardAdaptive:  {"reward_adaptive", "Reward Adaptive", "Counts bullish conditions with a stricter bar in high volatility"},
	MeanReversion:   {"mean_reversion", "Mean Reversion", "Buys Bollinger extremes with oversold RSI outside trends"},
	FeatureWeighted: {"feature_weighted", "Feature Weighted", "Fixed linear score over 17 normalized features"},
	VolumeMomentum:  {"volume_momentum", "Volume-Weighted Momentum", "Price momentum confirmed by above-average volume"},
	SqueezeBreakout: {"squeeze_breakout", "Squeeze Breakout", "Direction of the breakout from a volatility squeeze"},
	Divergence:      {"divergence", "Divergence", "Bullish OBV and RSI divergences near exhausted selling"},
	Layered:         {"layered", "Layered Gates", "Trend, momentum, volume and structure gates must all pass"},
}

// All returns the sub-models in their fixed order.
func All() []ID {
	out := make([]ID, len(all))
	copy(out, all)

	return out
}

// Count is the number of sub-models.
func Count() int {
	return len(all)
}

// Parse returns the ID with the given key.
func Parse(key string) (ID, error) {
	for _, id := range all {
		if infos[id].key == key {
			return id, nil
		}
	}

	return 0, errors.Newf(errors.ErrCodeUnknownModel, "unknown model %q", key)
}

// Key returns the stable identifier used in storage.
func (id ID) Key() string {
	return infos[id].key
}

func (id ID) Name() string {
	return infos[id].name
}

func (id ID) Description() string {
	return infos[id].description
}

func (id ID) String() string {
	return id.Key()
}

// Decide returns the vote of the sub-model for one record.
func (id ID) Decide(rec features.Record, regime types.Regime) types.Vote {
	switch id {
	case MTFConsensus:
		return mtfConsensus(rec)
	case RewardAdaptive:
		return rewardAdaptive(rec, regime)
	case MeanReversion:
		return meanReversion(rec, regime)
	case FeatureWeighted:
		return featureWeighted(rec)
	case VolumeMomentum:
		return volumeMomentum(rec)
	case SqueezeBreakout:
		return squeezeBreakout(rec)
	case Divergence:
		return divergence(rec)
	case Layered:
		return layered(rec)
	default:
		return types.VoteNeutral
	}
}

// Votes runs every sub-model and records its vote with the weight returned by weightOf.
func Votes(rec features.Record, regime types.Regime, weightOf func(ID) float64) types.VotesSnapshot {
	out := make(types.VotesSnapshot, 0, len(all))

	for _, id := range all {
		out = append(out, types.VoteEntry{
			ModelID: id.Key(),
			Name:    id.Name(),
			Vote:    id.Decide(rec, regime),
			Weight:  weightOf(id),
		})
	}

	return out
}

// Tally counts LONG and SHORT votes.
func Tally(votes []types.Vote) (long, short int) {
	for _, v := range votes {
		switch v {
		case types.VoteLong:
			long++
		case types.VoteShort:
			short++
		}
	}

	return long, short
}

// Ensemble returns LONG when at least EnsembleMinLong models vote LONG.
// The ensemble is long-only and never returns SHORT.
func Ensemble(votes []types.Vote) types.Vote {
	long, _ := Tally(votes)
	if long >= EnsembleMinLong {
		return types.VoteLong
	}

	return types.VoteNeutral
}

// DecideAll returns the vote of every sub-model in the order of All.
func DecideAll(rec features.Record, regime types.Regime) []types.Vote {
	out := make([]types.Vote, len(all))
	for i, id := range all {
		out[i] = id.Decide(rec, regime)
	}

	return out
}
