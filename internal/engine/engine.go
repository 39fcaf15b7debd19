// Package engine dispatches named actions to the harness, the scanner and the report views
// and wraps every outcome in a types.Report.
package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rxtech-lab/argo-ensemble/internal/backtest"
	"github.com/rxtech-lab/argo-ensemble/internal/config"
	"github.com/rxtech-lab/argo-ensemble/internal/logger"
	"github.com/rxtech-lab/argo-ensemble/internal/metrics"
	"github.com/rxtech-lab/argo-ensemble/internal/scanner"
	"github.com/rxtech-lab/argo-ensemble/internal/storage"
	"github.com/rxtech-lab/argo-ensemble/internal/types"
	"github.com/rxtech-lab/argo-ensemble/pkg/errors"
	"github.com/rxtech-lab/argo-ensemble/pkg/marketdata/provider"
	"go.uber.org/zap"
)

// Action names an invocation.
type Action string

const (
	ActionBacktest    Action = "backtest"
	ActionScan        Action = "scan"
	ActionSignals     Action = "signals"
	ActionMonitor     Action = "monitor"
	ActionLeaderboard Action = "leaderboard"
	ActionFullRun     Action = "full_run"
	ActionAudit       Action = "audit"
	ActionFeatures    Action = "features"
	ActionCompare     Action = "compare"
)

// DefaultLimit bounds the recent signals and audit entries of the read-only views.
const DefaultLimit = 20

var actions = []Action{
	ActionBacktest,
	ActionScan,
	ActionSignals,
	ActionMonitor,
	ActionLeaderboard,
	ActionFullRun,
	ActionAudit,
	ActionFeatures,
	ActionCompare,
}

// ValidActions returns the action names in a stable order.
func ValidActions() []string {
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}

	return names
}

// ParseAction resolves name to an action.
func ParseAction(name string) (Action, error) {
	for _, a := range actions {
		if string(a) == name {
			return a, nil
		}
	}

	return "", errors.Newf(errors.ErrCodeInvalidAction, "unknown action %q", name)
}

// Mutates reports whether the action writes signals, weights or backtest rows.
func (a Action) Mutates() bool {
	return a == ActionBacktest || a == ActionScan || a == ActionFullRun
}

// Params are the optional arguments of an invocation.
type Params struct {
	// Symbols overrides the configured universe
	Symbols []string `json:"symbols,omitempty" yaml:"symbols,omitempty"`
	// Symbol selects the instrument of the features view and narrows the signals view
	Symbol string `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	// Limit bounds the rows of the signals and audit views. Zero means DefaultLimit.
	Limit int `json:"limit,omitempty" yaml:"limit,omitempty"`
}

// Dispatcher is the invocation surface served over the CLI and HTTP.
type Dispatcher interface {
	Dispatch(ctx context.Context, action string, params Params) types.Report
}

type Engine struct {
	cfg     config.Config
	store   storage.Store
	harness *backtest.Harness
	scanner *scanner.Scanner
	logger  *logger.Logger
	metrics *metrics.Recorder
}

// New wires a harness and a scanner over the same provider and store. rec may be nil.
func New(cfg config.Config, p provider.Provider, store storage.Store, log *logger.Logger, rec *metrics.Recorder) *Engine {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Engine{
		cfg:     cfg,
		store:   store,
		harness: backtest.NewHarness(p, store, backtest.OptionsFromConfig(cfg), log, rec),
		scanner: scanner.NewScanner(p, store, scanner.OptionsFromConfig(cfg), log, rec),
		logger:  log.Named("engine"),
		metrics: rec,
	}
}

// Harness exposes the harness so callers can install progress callbacks.
func (e *Engine) Harness() *backtest.Harness {
	return e.harness
}

func (e *Engine) Scanner() *scanner.Scanner {
	return e.scanner
}

// Dispatch runs one action. An unknown action returns a failed report listing the valid
// actions and does no work.
func (e *Engine) Dispatch(ctx context.Context, action string, params Params) types.Report {
	a, err := ParseAction(action)
	if err != nil {
		report := types.FailedReport(action, err)
		report.ValidActions = ValidActions()

		return report
	}

	start := time.Now()
	report := e.run(ctx, a, params)
	report.Action = action
	report.Duration = time.Since(start)

	e.metrics.ObserveAction(action, report.OK, report.Duration.Seconds())

	if report.OK {
		e.logger.Info("Action finished", zap.String("action", action), zap.Duration("duration", report.Duration))
	} else {
		e.logger.Error("Action failed", zap.String("action", action), zap.String("error", report.Error))
	}

	return report
}

func (e *Engine) run(ctx context.Context, a Action, params Params) types.Report {
	var (
		report types.Report
		err    error
	)

	switch a {
	case ActionBacktest:
		report, err = e.backtest(ctx, e.symbols(params))
	case ActionScan:
		report, err = e.scan(ctx, e.symbols(params))
	case ActionFullRun:
		report, err = e.fullRun(ctx, e.symbols(params))
	case ActionSignals:
		report, err = e.signals(ctx, params.Symbol, limit(params))
	case ActionMonitor:
		report, err = e.monitor(ctx)
	case ActionLeaderboard:
		report, err = e.leaderboard(ctx)
	case ActionCompare:
		report, err = e.compare(ctx)
	case ActionAudit:
		report, err = e.auditLog(ctx, limit(params))
	case ActionFeatures:
		report, err = e.features(ctx, params.Symbol)
	}

	if err != nil {
		// work that was already persisted stays in the report
		failed := types.FailedReport(string(a), err)
		failed.Signals = report.Signals
		failed.Results = report.Results
		failed.Weights = report.Weights
		failed.Skipped = report.Skipped

		return failed
	}

	report.OK = true

	return report
}

func (e *Engine) backtest(ctx context.Context, symbols []string) (types.Report, error) {
	result, err := e.harness.Run(ctx, symbols)
	if err != nil {
		return types.Report{Skipped: result.Skipped}, err
	}

	e.record(ctx, ActionBacktest, map[string]any{
		"instruments":    len(symbols) - len(result.Skipped),
		"skipped":        len(result.Skipped),
		"rows":           len(result.Results),
		"persist_errors": result.PersistErrors,
	})

	return types.Report{
		Results: result.Results,
		Weights: result.Weights,
		Skipped: result.Skipped,
	}, nil
}

func (e *Engine) scan(ctx context.Context, symbols []string) (types.Report, error) {
	round, err := e.scanner.Round(ctx, symbols)

	inserted := 0

	for _, signal := range round.Scan.Signals {
		if signal.Inserted {
			inserted++
		}
	}

	if err != nil {
		// the scan half may have stored signals before the resolve half failed
		if inserted > 0 {
			e.record(ctx, ActionScan, map[string]any{
				"signals":  len(round.Scan.Signals),
				"inserted": inserted,
				"error":    err.Error(),
			})
		}

		return types.Report{Signals: round.Scan.Signals, Skipped: round.Scan.Skipped}, err
	}

	e.record(ctx, ActionScan, map[string]any{
		"instruments": len(symbols) - len(round.Scan.Skipped),
		"signals":     len(round.Scan.Signals),
		"inserted":    inserted,
		"resolved":    len(round.Resolve.Resolved),
		"updated":     len(round.Resolve.Updated),
	})

	return types.Report{
		Signals:  round.Scan.Signals,
		Resolved: round.Resolve.Resolved,
		Skipped:  round.Scan.Skipped,
	}, nil
}

// fullRun rewrites the weights and then scans with them.
func (e *Engine) fullRun(ctx context.Context, symbols []string) (types.Report, error) {
	bt, err := e.backtest(ctx, symbols)
	if err != nil {
		return bt, err
	}

	sc, err := e.scan(ctx, symbols)
	if err != nil {
		sc.Results = bt.Results
		sc.Weights = bt.Weights

		return sc, err
	}

	skipped := make(map[string]string, len(bt.Skipped)+len(sc.Skipped))
	for symbol, reason := range bt.Skipped {
		skipped[symbol] = reason
	}

	for symbol, reason := range sc.Skipped {
		skipped[symbol] = reason
	}

	e.record(ctx, ActionFullRun, map[string]any{
		"rows":     len(bt.Results),
		"signals":  len(sc.Signals),
		"resolved": len(sc.Resolved),
	})

	return types.Report{
		Results:  bt.Results,
		Weights:  bt.Weights,
		Signals:  sc.Signals,
		Resolved: sc.Resolved,
		Skipped:  skipped,
	}, nil
}

// record writes a mutating action to the audit log. Failures are logged only.
func (e *Engine) record(ctx context.Context, a Action, details map[string]any) {
	payload, err := json.Marshal(details)
	if err != nil {
		e.logger.Error("Failed to encode audit details", zap.Error(err))

		return
	}

	if err := e.store.Audit(ctx, string(a), string(payload)); err != nil {
		e.logger.Error("Failed to write audit entry", zap.String("action", string(a)), zap.Error(err))
	}
}

func (e *Engine) symbols(params Params) []string {
	if len(params.Symbols) > 0 {
		return params.Symbols
	}

	return e.cfg.Symbols()
}

func limit(params Params) int {
	if params.Limit > 0 {
		return params.Limit
	}

	return DefaultLimit
}
