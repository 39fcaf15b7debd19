package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-ensemble/internal/logger"
	"github.com/rxtech-lab/argo-ensemble/internal/types"
	"github.com/rxtech-lab/argo-ensemble/pkg/errors"
	"go.uber.org/zap"
)

const (
	backtestTable = "backtest_results"
	signalTable   = "signals"
	weightTable   = "model_weights"
	auditTable    = "audit_log"
)

var signalColumns = []string{
	"id", "symbol", "direction", "entry_price", "tp_price", "sl_price", "tp_pct", "sl_pct",
	"confidence", "regime", "position_size", "models_agree", "weighted_score", "votes",
	"features", "status", "current_price", "pnl_pct", "exit_reason", "created_at", "resolved_at",
}

// DuckDBStore is a Store backed by a DuckDB database file, or memory for ":memory:".
type DuckDBStore struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
	now    func() time.Time
	// signalMu makes the active check and the insert of a signal one step
	signalMu sync.Mutex
}

// NewDuckDBStore opens the database at path.
func NewDuckDBStore(path string, log *logger.Logger) (*DuckDBStore, error) {
	if path == ":memory:" {
		path = ""
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open database", err)
	}

	return &DuckDBStore{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		now:    time.Now,
	}, nil
}

// Initialize creates the four tables.
func (s *DuckDBStore) Initialize() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS backtest_results (
			model_id TEXT,
			symbol TEXT,
			is_train BOOLEAN,
			trade_count INTEGER,
			win_count INTEGER,
			win_rate DOUBLE,
			profit_factor DOUBLE,
			total_return DOUBLE,
			sharpe DOUBLE,
			created_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS model_weights (
			model_id TEXT PRIMARY KEY,
			weight DOUBLE,
			recent_sharpe DOUBLE,
			recent_win_rate DOUBLE,
			updated_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS signals (
			id TEXT PRIMARY KEY,
			symbol TEXT,
			direction TEXT,
			entry_price DOUBLE,
			tp_price DOUBLE,
			sl_price DOUBLE,
			tp_pct DOUBLE,
			sl_pct DOUBLE,
			confidence INTEGER,
			regime TEXT,
			position_size DOUBLE,
			models_agree INTEGER,
			weighted_score DOUBLE,
			votes TEXT,
			features TEXT,
			status TEXT,
			current_price DOUBLE,
			pnl_pct DOUBLE,
			exit_reason TEXT,
			created_at TIMESTAMP,
			resolved_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id TEXT PRIMARY KEY,
			action TEXT,
			details TEXT,
			created_at TIMESTAMP
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create table", err)
		}
	}

	return nil
}

func (s *DuckDBStore) Close() error {
	return s.db.Close()
}

func (s *DuckDBStore) ClearBacktestResults(ctx context.Context) error {
	query, args, err := s.sq.Delete(backtestTable).ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build delete query", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to clear backtest results", err)
	}

	return nil
}

func (s *DuckDBStore) InsertBacktestResults(ctx context.Context, results []types.BacktestResult) error {
	if len(results) == 0 {
		return nil
	}

	insert := s.sq.Insert(backtestTable).Columns(
		"model_id", "symbol", "is_train", "trade_count", "win_count", "win_rate",
		"profit_factor", "total_return", "sharpe", "created_at",
	)

	for _, r := range results {
		insert = insert.Values(
			r.ModelID, r.Symbol, r.IsTrain, r.TradeCount, r.WinCount, r.WinRate,
			r.ProfitFactor, r.TotalReturn, r.Sharpe, r.CreatedAt,
		)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build insert query", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert backtest results", err)
	}

	return nil
}

func (s *DuckDBStore) ListBacktestResults(ctx context.Context, isTrain optional.Option[bool]) ([]types.BacktestResult, error) {
	selectQuery := s.sq.
		Select(
			"model_id", "symbol", "is_train", "trade_count", "win_count", "win_rate",
			"profit_factor", "total_return", "sharpe", "created_at",
		).
		From(backtestTable).
		OrderBy("symbol ASC", "is_train DESC", "model_id ASC")

	if isTrain.IsSome() {
		selectQuery = selectQuery.Where(squirrel.Eq{"is_train": isTrain.Unwrap()})
	}

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build select query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query backtest results", err)
	}
	defer rows.Close()

	var results []types.BacktestResult

	for rows.Next() {
		var r types.BacktestResult
		if err := rows.Scan(
			&r.ModelID, &r.Symbol, &r.IsTrain, &r.TradeCount, &r.WinCount, &r.WinRate,
			&r.ProfitFactor, &r.TotalReturn, &r.Sharpe, &r.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan backtest result", err)
		}

		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating backtest results", err)
	}

	return results, nil
}

func (s *DuckDBStore) UpsertWeights(ctx context.Context, weights []types.ModelWeight) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to begin transaction", err)
	}

	for _, w := range weights {
		query, args, err := s.sq.
			Insert(weightTable).
			Columns("model_id", "weight", "recent_sharpe", "recent_win_rate", "updated_at").
			Values(w.ModelID, w.Weight, w.RecentSharpe, w.RecentWinRate, w.UpdatedAt).
			Suffix(`ON CONFLICT (model_id) DO UPDATE SET
				weight = EXCLUDED.weight,
				recent_sharpe = EXCLUDED.recent_sharpe,
				recent_win_rate = EXCLUDED.recent_win_rate,
				updated_at = EXCLUDED.updated_at`).
			ToSql()
		if err != nil {
			_ = tx.Rollback()

			return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build upsert query", err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			_ = tx.Rollback()

			return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to upsert weight of %s", w.ModelID)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to commit weights", err)
	}

	return nil
}

func (s *DuckDBStore) ListWeights(ctx context.Context) ([]types.ModelWeight, error) {
	query, args, err := s.sq.
		Select("model_id", "weight", "recent_sharpe", "recent_win_rate", "updated_at").
		From(weightTable).
		OrderBy("model_id ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build select query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query weights", err)
	}
	defer rows.Close()

	var weights []types.ModelWeight

	for rows.Next() {
		var w types.ModelWeight
		if err := rows.Scan(&w.ModelID, &w.Weight, &w.RecentSharpe, &w.RecentWinRate, &w.UpdatedAt); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan weight", err)
		}

		weights = append(weights, w)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating weights", err)
	}

	return weights, nil
}

func (s *DuckDBStore) InsertSignalIfNotActive(ctx context.Context, signal types.Signal) (bool, error) {
	s.signalMu.Lock()
	defer s.signalMu.Unlock()

	if signal.ID == "" {
		signal.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeQueryFailed, "failed to begin transaction", err)
	}

	countQuery, countArgs, err := s.sq.
		Select("COUNT(*)").
		From(signalTable).
		Where(squirrel.Eq{"symbol": signal.Symbol, "status": string(types.SignalStatusActive)}).
		ToSql()
	if err != nil {
		_ = tx.Rollback()

		return false, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build count query", err)
	}

	var active int
	if err := tx.QueryRowContext(ctx, countQuery, countArgs...).Scan(&active); err != nil {
		_ = tx.Rollback()

		return false, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count active signals", err)
	}

	if active > 0 {
		_ = tx.Rollback()

		return false, nil
	}

	values, err := signalValues(signal)
	if err != nil {
		_ = tx.Rollback()

		return false, err
	}

	query, args, err := s.sq.Insert(signalTable).Columns(signalColumns...).Values(values...).ToSql()
	if err != nil {
		_ = tx.Rollback()

		return false, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build insert query", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		_ = tx.Rollback()

		return false, errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert signal", err)
	}

	if err := tx.Commit(); err != nil {
		return false, errors.Wrap(errors.ErrCodeQueryFailed, "failed to commit signal", err)
	}

	return true, nil
}

func (s *DuckDBStore) ActiveSignal(ctx context.Context, symbol string) (optional.Option[types.Signal], error) {
	signals, err := s.querySignals(ctx, s.sq.
		Select(signalColumns...).
		From(signalTable).
		Where(squirrel.Eq{"symbol": symbol, "status": string(types.SignalStatusActive)}).
		OrderBy("created_at DESC").
		Limit(1))
	if err != nil {
		return optional.None[types.Signal](), err
	}

	if len(signals) == 0 {
		return optional.None[types.Signal](), nil
	}

	return optional.Some(signals[0]), nil
}

func (s *DuckDBStore) ListSignals(ctx context.Context, status optional.Option[types.SignalStatus], limit int) ([]types.Signal, error) {
	selectQuery := s.sq.
		Select(signalColumns...).
		From(signalTable).
		OrderBy("created_at DESC", "symbol ASC")

	if status.IsSome() {
		selectQuery = selectQuery.Where(squirrel.Eq{"status": string(status.Unwrap())})
	}

	if limit > 0 {
		selectQuery = selectQuery.Limit(uint64(limit))
	}

	return s.querySignals(ctx, selectQuery)
}

func (s *DuckDBStore) UpdateSignal(ctx context.Context, signal types.Signal) error {
	var resolvedAt any
	if signal.ResolvedAt.IsSome() {
		resolvedAt = signal.ResolvedAt.Unwrap()
	}

	query, args, err := s.sq.
		Update(signalTable).
		Set("status", string(signal.Status)).
		Set("current_price", signal.CurrentPrice).
		Set("pnl_pct", signal.PnLPct).
		Set("exit_reason", string(signal.ExitReason)).
		Set("resolved_at", resolvedAt).
		Where(squirrel.Eq{"id": signal.ID}).
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build update query", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to update signal %s", signal.ID)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return errors.Newf(errors.ErrCodeSignalNotFound, "signal %s not found", signal.ID)
	}

	return nil
}

func (s *DuckDBStore) Audit(ctx context.Context, action string, details string) error {
	query, args, err := s.sq.
		Insert(auditTable).
		Columns("id", "action", "details", "created_at").
		Values(uuid.New().String(), action, details, s.now()).
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build audit query", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.Warn("Failed to write audit entry", zap.String("action", action), zap.Error(err))

		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to write audit entry", err)
	}

	return nil
}

func (s *DuckDBStore) ListAudit(ctx context.Context, limit int) ([]types.AuditEntry, error) {
	selectQuery := s.sq.
		Select("id", "action", "details", "created_at").
		From(auditTable).
		OrderBy("created_at DESC")

	if limit > 0 {
		selectQuery = selectQuery.Limit(uint64(limit))
	}

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build select query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query audit log", err)
	}
	defer rows.Close()

	var entries []types.AuditEntry

	for rows.Next() {
		var e types.AuditEntry
		if err := rows.Scan(&e.ID, &e.Action, &e.Details, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan audit entry", err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating audit log", err)
	}

	return entries, nil
}

func (s *DuckDBStore) querySignals(ctx context.Context, selectQuery squirrel.SelectBuilder) ([]types.Signal, error) {
	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build select query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query signals", err)
	}
	defer rows.Close()

	var signals []types.Signal

	for rows.Next() {
		signal, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}

		signals = append(signals, signal)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating signals", err)
	}

	return signals, nil
}

func signalValues(signal types.Signal) ([]any, error) {
	votes, err := json.Marshal(signal.Votes)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidParameter, "failed to encode votes", err)
	}

	features, err := json.Marshal(signal.Features)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidParameter, "failed to encode features", err)
	}

	var resolvedAt any
	if signal.ResolvedAt.IsSome() {
		resolvedAt = signal.ResolvedAt.Unwrap()
	}

	return []any{
		signal.ID, signal.Symbol, string(signal.Direction), signal.EntryPrice, signal.TPPrice,
		signal.SLPrice, signal.TPPct, signal.SLPct, signal.Confidence, string(signal.Regime),
		signal.PositionSize, signal.ModelsAgree, signal.WeightedScore, string(votes),
		string(features), string(signal.Status), signal.CurrentPrice, signal.PnLPct,
		string(signal.ExitReason), signal.CreatedAt, resolvedAt,
	}, nil
}

func scanSignal(rows *sql.Rows) (types.Signal, error) {
	var (
		signal     types.Signal
		direction  string
		regime     string
		votes      string
		features   string
		status     string
		exitReason sql.NullString
		resolvedAt sql.NullTime
	)

	err := rows.Scan(
		&signal.ID, &signal.Symbol, &direction, &signal.EntryPrice, &signal.TPPrice,
		&signal.SLPrice, &signal.TPPct, &signal.SLPct, &signal.Confidence, &regime,
		&signal.PositionSize, &signal.ModelsAgree, &signal.WeightedScore, &votes,
		&features, &status, &signal.CurrentPrice, &signal.PnLPct, &exitReason,
		&signal.CreatedAt, &resolvedAt,
	)
	if err != nil {
		return types.Signal{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan signal", err)
	}

	signal.Direction = types.Vote(direction)
	signal.Regime = types.Regime(regime)
	signal.Status = types.SignalStatus(status)
	signal.ExitReason = types.ExitReason(exitReason.String)

	if resolvedAt.Valid {
		signal.ResolvedAt = optional.Some(resolvedAt.Time)
	}

	if err := json.Unmarshal([]byte(votes), &signal.Votes); err != nil {
		return types.Signal{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to decode votes", err)
	}

	if err := json.Unmarshal([]byte(features), &signal.Features); err != nil {
		return types.Signal{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to decode features", err)
	}

	return signal, nil
}
