// Package weighting turns out-of-sample sub-model performance into ensemble weights.
package weighting

import (
	"math"
	"time"

	"github.com/rxtech-lab/argo-ensemble/internal/model"
	"github.com/rxtech-lab/argo-ensemble/internal/types"
)

// MinSharpe is the floor applied to every Sharpe ratio before normalization,
// so a losing model keeps a small non-zero weight.
const MinSharpe = 0.01

// Aggregate is the test-segment performance of one sub-model across all instruments.
type Aggregate struct {
	Sharpe  float64
	WinRate float64
}

// Update computes a weight for every sub-model. Models without an aggregate are
// treated as Sharpe 0 and receive the floor. Weights sum to 1.
func Update(aggregates map[model.ID]Aggregate, now time.Time) []types.ModelWeight {
	ids := model.All()
	floored := make([]float64, len(ids))
	total := 0.0

	for i, id := range ids {
		floored[i] = math.Max(aggregates[id].Sharpe, MinSharpe)
		total += floored[i]
	}

	out := make([]types.ModelWeight, len(ids))

	for i, id := range ids {
		agg := aggregates[id]
		out[i] = types.ModelWeight{
			ModelID:       id.Key(),
			Weight:        floored[i] / total,
			RecentSharpe:  agg.Sharpe,
			RecentWinRate: agg.WinRate,
			UpdatedAt:     now,
		}
	}

	return out
}

// Table looks up stored weights by model.
type Table struct {
	weights map[string]float64
}

// NewTable builds a table from stored weights.
func NewTable(weights []types.ModelWeight) Table {
	t := Table{weights: make(map[string]float64, len(weights))}
	for _, w := range weights {
		t.weights[w.ModelID] = w.Weight
	}

	return t
}

// Default returns the weight used when a model has no stored weight.
func Default() float64 {
	return 1.0 / float64(model.Count())
}

// Weight returns the stored weight of id, or the uniform default.
func (t Table) Weight(id model.ID) float64 {
	if w, ok := t.weights[id.Key()]; ok {
		return w
	}

	return Default()
}

// Sum returns the total weight over all sub-models as seen by Weight.
func (t Table) Sum() float64 {
	sum := 0.0
	for _, id := range model.All() {
		sum += t.Weight(id)
	}

	return sum
}
