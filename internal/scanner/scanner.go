// Package scanner runs the ensemble on the latest bar of every instrument, emits signals
// that pass the agreement gates and resolves the ACTIVE ones against live prices.
package scanner

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-ensemble/internal/config"
	"github.com/rxtech-lab/argo-ensemble/internal/features"
	"github.com/rxtech-lab/argo-ensemble/internal/indicator"
	"github.com/rxtech-lab/argo-ensemble/internal/logger"
	"github.com/rxtech-lab/argo-ensemble/internal/metrics"
	"github.com/rxtech-lab/argo-ensemble/internal/model"
	"github.com/rxtech-lab/argo-ensemble/internal/regime"
	"github.com/rxtech-lab/argo-ensemble/internal/simulator"
	"github.com/rxtech-lab/argo-ensemble/internal/sizing"
	"github.com/rxtech-lab/argo-ensemble/internal/storage"
	"github.com/rxtech-lab/argo-ensemble/internal/types"
	"github.com/rxtech-lab/argo-ensemble/internal/weighting"
	"github.com/rxtech-lab/argo-ensemble/pkg/errors"
	"github.com/rxtech-lab/argo-ensemble/pkg/marketdata"
	"github.com/rxtech-lab/argo-ensemble/pkg/marketdata/provider"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	component = "scanner"
	// MaxConfidence caps the confidence of a signal in percent.
	MaxConfidence = 95
	// ConfidencePerModel is added to the confidence for every LONG vote.
	ConfidencePerModel = 5
	roundKey           = "scan"
)

type Options struct {
	Interval provider.Interval
	BarLimit int
	MinBars  int
	Workers  int
	Timeout  time.Duration
	// MinAgree is the minimum number of LONG votes
	MinAgree int
	// MinScore is the exclusive lower bound of the weighted score
	MinScore float64
	Expiry   time.Duration
}

// OptionsFromConfig maps the engine configuration onto scanner options.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Interval: cfg.ParsedInterval(),
		BarLimit: cfg.BarLimit,
		MinBars:  cfg.Scanner.MinBars,
		Workers:  cfg.Workers,
		Timeout:  cfg.RequestTimeout,
		MinAgree: cfg.Scanner.MinAgree,
		MinScore: cfg.Scanner.MinScore,
		Expiry:   cfg.Scanner.Expiry,
	}
}

// ScanResult lists the signals that passed the gates, highest confidence first.
// Signal.Inserted tells which of them were stored as new ACTIVE signals.
type ScanResult struct {
	Signals []types.Signal
	Skipped map[string]string
}

// RoundResult is one scan followed by one resolution pass.
type RoundResult struct {
	Scan    ScanResult
	Resolve ResolveResult
}

type Scanner struct {
	provider provider.Provider
	store    storage.Store
	logger   *logger.Logger
	metrics  *metrics.Recorder
	opts     Options
	now      func() time.Time
	group    singleflight.Group
	// roundMu serializes rounds over different universes
	roundMu sync.Mutex
}

// NewScanner creates a scanner. rec may be nil.
func NewScanner(p provider.Provider, store storage.Store, opts Options, log *logger.Logger, rec *metrics.Recorder) *Scanner {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Scanner{
		provider: p,
		store:    store,
		logger:   log.Named(component),
		metrics:  rec,
		opts:     opts,
		now:      time.Now,
	}
}

// SetClock replaces the clock used for created_at, resolved_at and expiry.
func (s *Scanner) SetClock(now func() time.Time) {
	s.now = now
}

// Evaluate runs the pipeline on the last bar of series. It returns the candidate signal
// and whether it passes the agreement gates. Nothing is persisted.
func (s *Scanner) Evaluate(series types.BarSeries, table weighting.Table) (types.Signal, bool, error) {
	if series.Len() < s.opts.MinBars {
		return types.Signal{}, false, errors.NewInsufficientDataErrorf(s.opts.MinBars, series.Len(), series.Symbol,
			"%s has %d bars, %d required", series.Symbol, series.Len(), s.opts.MinBars)
	}

	set := indicator.Compute(series)

	rec, ok := features.Latest(series, set)
	if !ok {
		return types.Signal{}, false, errors.NewInsufficientDataErrorf(features.WarmUp+1, series.Len(), series.Symbol,
			"%s is inside the feature warm-up", series.Symbol)
	}

	reg := regime.Classify(rec)
	votes := model.Votes(rec, reg, table.Weight)
	longCount := votes.LongCount()
	score := votes.WeightedScore()

	last := series.Len() - 1
	entry := series.Bars[last].Close
	atr := set.ATR[last]
	confidence := Confidence(score, longCount)

	signal := types.Signal{
		ID:            uuid.NewString(),
		Symbol:        series.Symbol,
		Direction:     types.VoteLong,
		EntryPrice:    entry,
		TPPrice:       entry + simulator.TakeProfitATR*atr,
		SLPrice:       entry - simulator.StopLossATR*atr,
		Confidence:    confidence,
		Regime:        reg,
		PositionSize:  sizing.Size(reg, rec.RealizedVol, float64(confidence)),
		ModelsAgree:   longCount,
		WeightedScore: score,
		Votes:         votes,
		Features:      rec.Snapshot(),
		Status:        types.SignalStatusActive,
		CurrentPrice:  entry,
		CreatedAt:     s.now(),
	}
	signal.TPPct = simulator.PctReturn(entry, signal.TPPrice)
	signal.SLPct = -simulator.PctReturn(entry, signal.SLPrice)

	emit := longCount >= s.opts.MinAgree && score > s.opts.MinScore && atr > 0

	return signal, emit, nil
}

// Confidence is min(95, round(score*100 + longCount*5)).
func Confidence(score float64, longCount int) int {
	c := int(math.Round(score*100 + float64(longCount*ConfidencePerModel)))

	return min(c, MaxConfidence)
}

// Scan evaluates every symbol and stores each passing signal unless the symbol already
// has an ACTIVE one. Instruments that fail to fetch or evaluate are skipped.
func (s *Scanner) Scan(ctx context.Context, symbols []string) (ScanResult, error) {
	table := s.weights(ctx)

	fetched, err := marketdata.FetchUniverse(ctx, s.provider, symbols, s.fetchOptions())
	if err != nil {
		return ScanResult{}, err
	}

	result := ScanResult{Skipped: fetched.Reasons()}
	if result.Skipped == nil {
		result.Skipped = make(map[string]string)
	}

	failed := make([]string, 0, len(fetched.Failed))
	for symbol := range fetched.Failed {
		failed = append(failed, symbol)
	}

	sort.Strings(failed)

	for _, symbol := range failed {
		if err := fetched.Failed[symbol]; !errors.IsDataUnavailable(err) {
			s.instrumentFailed(ctx, "fetch", symbol, err)
		}
	}

	ordered := fetched.Symbols()
	candidates := make([]*types.Signal, len(ordered))
	evalErrs := make([]error, len(ordered))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for i, symbol := range ordered {
		g.Go(func() error {
			signal, emit, err := s.Evaluate(fetched.Series[symbol], table)
			if err != nil {
				evalErrs[i] = err

				return nil
			}

			if !emit {
				return nil
			}

			inserted, err := s.store.InsertSignalIfNotActive(gctx, signal)
			if err != nil {
				s.persistFailed(gctx, "insert_signal", symbol, err)
			}

			if inserted {
				s.metrics.SignalEmitted()
				s.logger.Info("Signal emitted",
					zap.String("symbol", symbol),
					zap.Int("confidence", signal.Confidence),
					zap.Int("models_agree", signal.ModelsAgree),
				)
			}

			signal.Inserted = inserted
			candidates[i] = &signal

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return ScanResult{}, err
	}

	for i, symbol := range ordered {
		if evalErrs[i] != nil {
			if errors.IsDataUnavailable(evalErrs[i]) {
				s.logger.Warn("Skipping instrument", zap.String("symbol", symbol), zap.Error(evalErrs[i]))
			} else {
				s.instrumentFailed(ctx, "evaluate", symbol, evalErrs[i])
			}

			s.metrics.InstrumentSkipped(component)
			result.Skipped[symbol] = evalErrs[i].Error()

			continue
		}

		if candidates[i] != nil {
			result.Signals = append(result.Signals, *candidates[i])
		}
	}

	sort.SliceStable(result.Signals, func(a, b int) bool {
		return result.Signals[a].Confidence > result.Signals[b].Confidence
	})

	return result, nil
}

// Round runs Scan then Resolve. Concurrent callers asking for the same universe share
// the round in flight. Rounds over different universes run one after the other, so at
// most one scan, resolve and persist sequence runs per scanner.
func (s *Scanner) Round(ctx context.Context, symbols []string) (RoundResult, error) {
	v, err, _ := s.group.Do(universeKey(symbols), func() (any, error) {
		s.roundMu.Lock()
		defer s.roundMu.Unlock()

		scan, err := s.Scan(ctx, symbols)
		if err != nil {
			return RoundResult{}, err
		}

		resolved, err := s.Resolve(ctx)
		if err != nil {
			return RoundResult{Scan: scan}, err
		}

		return RoundResult{Scan: scan, Resolve: resolved}, nil
	})

	result, _ := v.(RoundResult)

	return result, err
}

func universeKey(symbols []string) string {
	sorted := append([]string(nil), symbols...)
	sort.Strings(sorted)

	return roundKey + ":" + strings.Join(sorted, ",")
}

// Inspect returns the latest feature record, regime and votes of one symbol.
func (s *Scanner) Inspect(ctx context.Context, symbol string) (types.FeatureView, error) {
	if symbol == "" {
		return types.FeatureView{}, errors.New(errors.ErrCodeInvalidSymbol, "symbol is required")
	}

	fetchCtx := ctx
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc

		fetchCtx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	series, err := s.provider.FetchBars(fetchCtx, symbol, s.opts.Interval, s.opts.BarLimit)
	if err != nil {
		return types.FeatureView{}, err
	}

	set := indicator.Compute(series)

	rec, ok := features.Latest(series, set)
	if !ok {
		return types.FeatureView{}, errors.NewInsufficientDataErrorf(features.WarmUp+1, series.Len(), symbol,
			"%s has %d bars, the feature warm-up needs %d", symbol, series.Len(), features.WarmUp+1)
	}

	reg := regime.Classify(rec)
	last := series.Last()

	return types.FeatureView{
		Symbol:   symbol,
		BarTime:  last.Time,
		Close:    last.Close,
		Regime:   reg,
		Votes:    model.Votes(rec, reg, s.weights(ctx).Weight),
		Features: rec.Snapshot(),
	}, nil
}

func (s *Scanner) weights(ctx context.Context) weighting.Table {
	weights, err := s.store.ListWeights(ctx)
	if err != nil {
		s.logger.Warn("Falling back to uniform weights", zap.Error(err))

		return weighting.NewTable(nil)
	}

	return weighting.NewTable(weights)
}

func (s *Scanner) fetchOptions() marketdata.FetchOptions {
	return marketdata.FetchOptions{
		Interval: s.opts.Interval,
		Limit:    s.opts.BarLimit,
		MinBars:  s.opts.MinBars,
		Workers:  s.opts.Workers,
		Timeout:  s.opts.Timeout,
		OnFetched: func(symbol string, err error) {
			if err != nil {
				s.logger.Warn("Skipping instrument", zap.String("symbol", symbol), zap.Error(err))
				s.metrics.InstrumentSkipped(component)

				return
			}

			s.metrics.InstrumentFetched(component)
		},
	}
}

func (s *Scanner) persistFailed(ctx context.Context, op, symbol string, err error) {
	wrapped := errors.Wrapf(errors.ErrCodeScanPersistFail, err, "%s failed for %s", op, symbol)
	s.logger.Error("Failed to persist signal", zap.String("symbol", symbol), zap.Error(wrapped))

	s.audit(ctx, "persist_failed", fmt.Sprintf("%s %s: %v", op, symbol, err))
}

// instrumentFailed records a skipped instrument whose error is not a data gap.
func (s *Scanner) instrumentFailed(ctx context.Context, stage, symbol string, err error) {
	s.logger.Error("Instrument failed", zap.String("stage", stage), zap.String("symbol", symbol), zap.Error(err))
	s.audit(ctx, "instrument_failed", fmt.Sprintf("%s %s: %v", stage, symbol, err))
}

func (s *Scanner) audit(ctx context.Context, action, details string) {
	if err := s.store.Audit(ctx, action, details); err != nil {
		s.logger.Error("Failed to write audit entry", zap.String("action", action), zap.Error(err))
	}
}
