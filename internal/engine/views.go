package engine

import (
	"context"
	"sort"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-ensemble/internal/model"
	"github.com/rxtech-lab/argo-ensemble/internal/types"
	"github.com/rxtech-lab/argo-ensemble/pkg/errors"
)

// The views below only read from the store.

// signals lists every ACTIVE signal and the most recently resolved ones. With a symbol
// it narrows both lists to that instrument.
func (e *Engine) signals(ctx context.Context, symbol string, limit int) (types.Report, error) {
	if symbol != "" {
		return e.symbolSignals(ctx, symbol, limit)
	}

	active, err := e.store.ListSignals(ctx, optional.Some(types.SignalStatusActive), 0)
	if err != nil {
		return types.Report{}, err
	}

	resolved, err := e.store.ListSignals(ctx, optional.Some(types.SignalStatusResolved), limit)
	if err != nil {
		return types.Report{}, err
	}

	return types.Report{Signals: active, Resolved: resolved}, nil
}

func (e *Engine) symbolSignals(ctx context.Context, symbol string, limit int) (types.Report, error) {
	active, err := e.store.ActiveSignal(ctx, symbol)
	if err != nil {
		return types.Report{}, err
	}

	all, err := e.store.ListSignals(ctx, optional.Some(types.SignalStatusResolved), 0)
	if err != nil {
		return types.Report{}, err
	}

	report := types.Report{}
	if active.IsSome() {
		report.Signals = []types.Signal{active.Unwrap()}
	}

	for _, signal := range all {
		if signal.Symbol != symbol {
			continue
		}

		if limit > 0 && len(report.Resolved) == limit {
			break
		}

		report.Resolved = append(report.Resolved, signal)
	}

	return report, nil
}

func (e *Engine) monitor(ctx context.Context) (types.Report, error) {
	monitored, err := e.scanner.Monitor(ctx)
	if err != nil {
		return types.Report{}, err
	}

	return types.Report{Signals: monitored}, nil
}

func (e *Engine) auditLog(ctx context.Context, limit int) (types.Report, error) {
	entries, err := e.store.ListAudit(ctx, limit)
	if err != nil {
		return types.Report{}, err
	}

	return types.Report{Audit: entries}, nil
}

func (e *Engine) features(ctx context.Context, symbol string) (types.Report, error) {
	if symbol == "" {
		return types.Report{}, errors.New(errors.ErrCodeMissingParameter, "the features action needs a symbol")
	}

	view, err := e.scanner.Inspect(ctx, symbol)
	if err != nil {
		return types.Report{}, err
	}

	return types.Report{Features: &view}, nil
}

// leaderboard ranks the sub-models and the ensemble by their test-segment Sharpe.
func (e *Engine) leaderboard(ctx context.Context) (types.Report, error) {
	rows, err := e.store.ListBacktestResults(ctx, optional.Some(false))
	if err != nil {
		return types.Report{}, err
	}

	weights, err := e.store.ListWeights(ctx)
	if err != nil {
		return types.Report{}, err
	}

	return types.Report{
		Leaderboard: Leaderboard(rows, weights),
		Weights:     weights,
	}, nil
}

func (e *Engine) compare(ctx context.Context) (types.Report, error) {
	rows, err := e.store.ListBacktestResults(ctx, optional.None[bool]())
	if err != nil {
		return types.Report{}, err
	}

	return types.Report{Compare: Compare(rows)}, nil
}

// Leaderboard aggregates test rows per model and sorts by Sharpe, best first.
// Models without a stored weight show weight 0.
func Leaderboard(rows []types.BacktestResult, weights []types.ModelWeight) []types.LeaderboardEntry {
	byModel := make(map[string]float64, len(weights))
	for _, w := range weights {
		byModel[w.ModelID] = w.Weight
	}

	aggregates := aggregate(rows, optional.Some(false))
	entries := make([]types.LeaderboardEntry, 0, len(aggregates))

	for _, modelID := range modelOrder() {
		agg, ok := aggregates[modelID]
		if !ok {
			continue
		}

		entries = append(entries, types.LeaderboardEntry{
			ModelID:    modelID,
			Name:       displayName(modelID),
			Weight:     byModel[modelID],
			TestTrades: agg.TradeCount,
			WinRate:    agg.WinRate,
			Return:     agg.TotalReturn,
			Sharpe:     agg.Sharpe,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Sharpe > entries[j].Sharpe
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}

	return entries
}

// Compare puts the train and test aggregates of every model side by side.
func Compare(rows []types.BacktestResult) []types.CompareEntry {
	train := aggregate(rows, optional.Some(true))
	test := aggregate(rows, optional.Some(false))

	var entries []types.CompareEntry

	for _, modelID := range modelOrder() {
		tr, okTrain := train[modelID]
		te, okTest := test[modelID]

		if !okTrain && !okTest {
			continue
		}

		entries = append(entries, types.CompareEntry{
			ModelID:     modelID,
			TrainSharpe: tr.Sharpe,
			TestSharpe:  te.Sharpe,
			TrainWin:    tr.WinRate,
			TestWin:     te.WinRate,
			TrainTrades: tr.TradeCount,
			TestTrades:  te.TradeCount,
			OverfitGap:  tr.Sharpe - te.Sharpe,
		})
	}

	return entries
}

// aggregate folds the per-instrument rows of each model into one TradeStats. Counts and
// returns add up; Sharpe is the trade-weighted mean of the row Sharpes.
func aggregate(rows []types.BacktestResult, isTrain optional.Option[bool]) map[string]types.TradeStats {
	out := make(map[string]types.TradeStats)
	sharpeSum := make(map[string]float64)

	for _, row := range rows {
		if isTrain.IsSome() && row.IsTrain != isTrain.Unwrap() {
			continue
		}

		agg := out[row.ModelID]
		agg.TradeCount += row.TradeCount
		agg.WinCount += row.WinCount
		agg.TotalReturn += row.TotalReturn
		out[row.ModelID] = agg
		sharpeSum[row.ModelID] += row.Sharpe * float64(row.TradeCount)
	}

	for modelID, agg := range out {
		if agg.TradeCount > 0 {
			agg.WinRate = float64(agg.WinCount) / float64(agg.TradeCount)
			agg.Sharpe = sharpeSum[modelID] / float64(agg.TradeCount)
		}

		out[modelID] = agg
	}

	return out
}

func modelOrder() []string {
	ids := make([]string, 0, model.Count()+1)
	for _, id := range model.All() {
		ids = append(ids, id.Key())
	}

	return append(ids, types.EnsembleModelID)
}

func displayName(modelID string) string {
	id, err := model.Parse(modelID)
	if err != nil {
		return "Ensemble"
	}

	return id.Name()
}
