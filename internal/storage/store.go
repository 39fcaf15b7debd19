// Package storage persists backtest results, model weights, signals and the audit log.
package storage

import (
	"context"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-ensemble/internal/types"
)

// Store is the persistence collaborator of the harness, the scanner and the report views.
type Store interface {
	// Initialize creates the tables if they do not exist
	Initialize() error
	Close() error

	// ClearBacktestResults removes every row of the previous backtest run
	ClearBacktestResults(ctx context.Context) error
	InsertBacktestResults(ctx context.Context, results []types.BacktestResult) error
	// ListBacktestResults returns all rows, or only the train or test rows when isTrain is set
	ListBacktestResults(ctx context.Context, isTrain optional.Option[bool]) ([]types.BacktestResult, error)

	// UpsertWeights replaces the weight of every given model
	UpsertWeights(ctx context.Context, weights []types.ModelWeight) error
	ListWeights(ctx context.Context) ([]types.ModelWeight, error)

	// InsertSignalIfNotActive stores the signal unless the symbol already has an ACTIVE one.
	// It reports whether the signal was inserted.
	InsertSignalIfNotActive(ctx context.Context, signal types.Signal) (bool, error)
	ActiveSignal(ctx context.Context, symbol string) (optional.Option[types.Signal], error)
	// ListSignals returns signals newest first. A limit of 0 returns all of them.
	ListSignals(ctx context.Context, status optional.Option[types.SignalStatus], limit int) ([]types.Signal, error)
	// UpdateSignal overwrites the mutable fields of the signal with the same id
	UpdateSignal(ctx context.Context, signal types.Signal) error

	Audit(ctx context.Context, action string, details string) error
	ListAudit(ctx context.Context, limit int) ([]types.AuditEntry, error)
}
