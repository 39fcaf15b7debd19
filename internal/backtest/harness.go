// Package backtest runs the walk-forward evaluation of every sub-model and the ensemble
// over an instrument universe and turns the out-of-sample results into model weights.
package backtest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rxtech-lab/argo-ensemble/internal/config"
	"github.com/rxtech-lab/argo-ensemble/internal/features"
	"github.com/rxtech-lab/argo-ensemble/internal/indicator"
	"github.com/rxtech-lab/argo-ensemble/internal/logger"
	"github.com/rxtech-lab/argo-ensemble/internal/metrics"
	"github.com/rxtech-lab/argo-ensemble/internal/model"
	"github.com/rxtech-lab/argo-ensemble/internal/regime"
	"github.com/rxtech-lab/argo-ensemble/internal/simulator"
	"github.com/rxtech-lab/argo-ensemble/internal/storage"
	"github.com/rxtech-lab/argo-ensemble/internal/types"
	"github.com/rxtech-lab/argo-ensemble/internal/weighting"
	"github.com/rxtech-lab/argo-ensemble/pkg/errors"
	"github.com/rxtech-lab/argo-ensemble/pkg/marketdata"
	"github.com/rxtech-lab/argo-ensemble/pkg/marketdata/provider"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const component = "backtest"

// Options are the run parameters of the harness.
type Options struct {
	Interval   provider.Interval
	BarLimit   int
	MinBars    int
	Workers    int
	Timeout    time.Duration
	SplitRatio float64
	PurgeGap   int
}

// OptionsFromConfig maps the engine configuration onto harness options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Interval:   cfg.ParsedInterval(),
		BarLimit:   cfg.BarLimit,
		MinBars:    cfg.Backtest.MinBars,
		Workers:    cfg.Workers,
		Timeout:    cfg.RequestTimeout,
		SplitRatio: cfg.Backtest.SplitRatio,
		PurgeGap:   cfg.Backtest.PurgeGap,
	}
}

// Callbacks report progress. Nil fields are not called. They may be called concurrently.
type Callbacks struct {
	// OnFetched is called once per instrument after its bars were requested.
	OnFetched func(symbol string, err error)
	// OnEvaluated is called once per fetched instrument after its simulation.
	OnEvaluated func(symbol string, err error)
}

// ModelTrades are the simulated trades of one model on one instrument.
type ModelTrades struct {
	ModelID string
	Train   []types.Trade
	Test    []types.Trade
}

// InstrumentResult is the evaluation of one series.
type InstrumentResult struct {
	Symbol string
	Window Window
	// Rows holds a train and a test row per model, models in order, the ensemble last
	Rows   []types.BacktestResult
	Trades []ModelTrades
}

// RunResult is the outcome of a full walk-forward run.
type RunResult struct {
	Results []types.BacktestResult
	Weights []types.ModelWeight
	// Skipped maps each dropped instrument to the reason
	Skipped map[string]string
	// PersistErrors lists storage failures that were audited but did not abort the run
	PersistErrors []string
}

type Harness struct {
	provider  provider.Provider
	store     storage.Store
	logger    *logger.Logger
	metrics   *metrics.Recorder
	opts      Options
	now       func() time.Time
	callbacks Callbacks
}

// NewHarness creates a harness. rec may be nil.
func NewHarness(p provider.Provider, store storage.Store, opts Options, log *logger.Logger, rec *metrics.Recorder) *Harness {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Harness{
		provider: p,
		store:    store,
		logger:   log.Named(component),
		metrics:  rec,
		opts:     opts,
		now:      time.Now,
	}
}

// SetCallbacks installs progress callbacks.
func (h *Harness) SetCallbacks(callbacks Callbacks) {
	h.callbacks = callbacks
}

// SetClock replaces the clock stamped on result rows and weights.
func (h *Harness) SetClock(now func() time.Time) {
	h.now = now
}

// Evaluate precomputes indicators, records and votes once, then simulates every model and
// the ensemble on the train and the test segment. Train trades never reach past TrainEnd.
func (h *Harness) Evaluate(series types.BarSeries) (InstrumentResult, error) {
	n := series.Len()
	if n < h.opts.MinBars {
		return InstrumentResult{}, errors.NewInsufficientDataErrorf(h.opts.MinBars, n, series.Symbol,
			"%s has %d bars, %d required", series.Symbol, n, h.opts.MinBars)
	}

	window, err := Split(n, h.opts.SplitRatio, h.opts.PurgeGap, features.WarmUp)
	if err != nil {
		return InstrumentResult{}, err
	}

	set := indicator.Compute(series)
	records, ok := features.ExtractAll(series, set)

	votes := make([][]types.Vote, n)
	for i := range votes {
		if ok[i] {
			votes[i] = model.DecideAll(records[i], regime.Classify(records[i]))
		}
	}

	result := InstrumentResult{
		Symbol: series.Symbol,
		Window: window,
	}

	now := h.now()

	simulate := func(modelID string, decide simulator.Decider) {
		train := simulator.Run(series, set.ATR, window.TrainStart, window.TrainEnd, decide)
		test := simulator.Run(series, set.ATR, window.TestStart, window.TestEnd, decide)

		result.Trades = append(result.Trades, ModelTrades{ModelID: modelID, Train: train, Test: test})
		result.Rows = append(result.Rows,
			row(modelID, series.Symbol, true, train, now),
			row(modelID, series.Symbol, false, test, now),
		)
	}

	for idx, id := range model.All() {
		simulate(id.Key(), func(i int) types.Vote {
			if votes[i] == nil {
				return types.VoteNeutral
			}

			return votes[i][idx]
		})
	}

	simulate(types.EnsembleModelID, func(i int) types.Vote {
		if votes[i] == nil {
			return types.VoteNeutral
		}

		return model.Ensemble(votes[i])
	})

	return result, nil
}

// Run clears the previous results, fetches the universe, evaluates every instrument in
// parallel and rewrites the model weights from the pooled test-segment trades.
// Instruments that cannot be fetched or evaluated are skipped. Storage failures are
// audited and logged without aborting.
func (h *Harness) Run(ctx context.Context, symbols []string) (RunResult, error) {
	if len(symbols) == 0 {
		return RunResult{}, errors.New(errors.ErrCodeBacktestNoInstruments, "no instruments to backtest")
	}

	var result RunResult

	if err := h.store.ClearBacktestResults(ctx); err != nil {
		h.persistFailed(ctx, &result, "clear_backtest_results", err)
	}

	fetched, err := marketdata.FetchUniverse(ctx, h.provider, symbols, marketdata.FetchOptions{
		Interval:  h.opts.Interval,
		Limit:     h.opts.BarLimit,
		MinBars:   h.opts.MinBars,
		Workers:   h.opts.Workers,
		Timeout:   h.opts.Timeout,
		OnFetched: h.onFetched,
	})
	if err != nil {
		return RunResult{}, err
	}

	result.Skipped = fetched.Reasons()
	if result.Skipped == nil {
		result.Skipped = make(map[string]string)
	}

	for _, symbol := range sortedKeys(fetched.Failed) {
		if err := fetched.Failed[symbol]; !errors.IsDataUnavailable(err) {
			h.instrumentFailed(ctx, "fetch", symbol, err)
		}
	}

	ordered := fetched.Symbols()
	evaluated := make([]*InstrumentResult, len(ordered))
	evalErrs := make([]error, len(ordered))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.opts.Workers)

	for i, symbol := range ordered {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			res, err := h.Evaluate(fetched.Series[symbol])
			if err != nil {
				evalErrs[i] = err
			} else {
				evaluated[i] = &res
			}

			if h.callbacks.OnEvaluated != nil {
				h.callbacks.OnEvaluated(symbol, err)
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return RunResult{}, err
	}

	pooled := make(map[string][]types.Trade)

	for i, res := range evaluated {
		if res == nil {
			if errors.IsDataUnavailable(evalErrs[i]) {
				h.logger.Warn("Skipping instrument", zap.String("symbol", ordered[i]), zap.Error(evalErrs[i]))
			} else {
				h.instrumentFailed(ctx, "evaluate", ordered[i], evalErrs[i])
			}

			h.metrics.InstrumentSkipped(component)
			result.Skipped[ordered[i]] = evalErrs[i].Error()

			continue
		}

		result.Results = append(result.Results, res.Rows...)

		for _, mt := range res.Trades {
			pooled[mt.ModelID] = append(pooled[mt.ModelID], mt.Test...)
		}
	}

	if len(result.Results) == 0 {
		return result, errors.Newf(errors.ErrCodeBacktestNoInstruments, "all %d instruments were skipped", len(symbols))
	}

	aggregates := make(map[model.ID]weighting.Aggregate, model.Count())
	for _, id := range model.All() {
		stats := simulator.Stats(pooled[id.Key()])
		aggregates[id] = weighting.Aggregate{Sharpe: stats.Sharpe, WinRate: stats.WinRate}
	}

	result.Weights = weighting.Update(aggregates, h.now())

	if err := h.store.InsertBacktestResults(ctx, result.Results); err != nil {
		h.persistFailed(ctx, &result, "insert_backtest_results", err)
	}

	if err := h.store.UpsertWeights(ctx, result.Weights); err != nil {
		h.persistFailed(ctx, &result, "upsert_weights", err)
	}

	h.metrics.BacktestRun()
	h.logger.Info("Backtest finished",
		zap.Int("instruments", len(ordered)-countNil(evaluated)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("rows", len(result.Results)),
	)

	return result, nil
}

func (h *Harness) onFetched(symbol string, err error) {
	if err != nil {
		h.logger.Warn("Skipping instrument", zap.String("symbol", symbol), zap.Error(err))
		h.metrics.InstrumentSkipped(component)
	} else {
		h.metrics.InstrumentFetched(component)
	}

	if h.callbacks.OnFetched != nil {
		h.callbacks.OnFetched(symbol, err)
	}
}

func (h *Harness) persistFailed(ctx context.Context, result *RunResult, op string, err error) {
	wrapped := errors.Wrapf(errors.ErrCodeBacktestPersistFailed, err, "%s failed", op)
	h.logger.Error("Failed to persist backtest state", zap.String("operation", op), zap.Error(wrapped))

	result.PersistErrors = append(result.PersistErrors, wrapped.Error())
	h.audit(ctx, "persist_failed", wrapped.Error())
}

// instrumentFailed records a skipped instrument whose error is not a data gap.
func (h *Harness) instrumentFailed(ctx context.Context, stage, symbol string, err error) {
	h.logger.Error("Instrument failed", zap.String("stage", stage), zap.String("symbol", symbol), zap.Error(err))
	h.audit(ctx, "instrument_failed", fmt.Sprintf("%s %s: %v", stage, symbol, err))
}

func (h *Harness) audit(ctx context.Context, action, details string) {
	if err := h.store.Audit(ctx, action, details); err != nil {
		h.logger.Error("Failed to write audit entry", zap.String("action", action), zap.Error(err))
	}
}

func sortedKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

func row(modelID, symbol string, isTrain bool, trades []types.Trade, now time.Time) types.BacktestResult {
	return types.BacktestResult{
		ModelID:    modelID,
		Symbol:     symbol,
		IsTrain:    isTrain,
		CreatedAt:  now,
		TradeStats: simulator.Stats(trades),
	}
}

func countNil(results []*InstrumentResult) int {
	count := 0

	for _, r := range results {
		if r == nil {
			count++
		}
	}

	return count
}
