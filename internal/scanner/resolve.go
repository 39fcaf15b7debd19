package scanner

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-ensemble/internal/simulator"
	"github.com/rxtech-lab/argo-ensemble/internal/types"
	"github.com/rxtech-lab/argo-ensemble/pkg/errors"
	"go.uber.org/zap"
)

// ResolveResult separates the signals that reached a terminal state from the ones
// that were only re-priced.
type ResolveResult struct {
	Resolved []types.Signal
	Updated  []types.Signal
}

// Reprice applies the latest price to an ACTIVE signal and returns the re-priced copy
// with the exit reason that applies now, or ExitReasonNone. TP wins over SL, SL over
// expiry. Without a price only expiry can apply.
func Reprice(signal types.Signal, price float64, hasPrice bool, now time.Time, expiry time.Duration) (types.Signal, types.ExitReason) {
	if hasPrice {
		signal.CurrentPrice = price
		signal.PnLPct = simulator.PctReturn(signal.EntryPrice, price)

		switch {
		case price >= signal.TPPrice:
			return signal, types.ExitReasonTPHit
		case price <= signal.SLPrice:
			return signal, types.ExitReasonSLHit
		}
	}

	if expiry > 0 && now.Sub(signal.CreatedAt) >= expiry {
		return signal, types.ExitReasonExpired
	}

	return signal, types.ExitReasonNone
}

// Resolve re-prices every ACTIVE signal, closes the ones that hit TP, SL or expired and
// stores the refreshed price of the rest.
func (s *Scanner) Resolve(ctx context.Context) (ResolveResult, error) {
	active, prices, err := s.activeWithPrices(ctx)
	if err != nil {
		return ResolveResult{}, err
	}

	var result ResolveResult

	now := s.now()

	for _, signal := range active {
		price, ok := prices[signal.Symbol]

		repriced, reason := Reprice(signal, price, ok, now, s.opts.Expiry)
		if reason != types.ExitReasonNone {
			repriced.Status = types.SignalStatusResolved
			repriced.ExitReason = reason
			repriced.ResolvedAt = optional.Some(now)
		}

		if err := s.store.UpdateSignal(ctx, repriced); err != nil {
			s.persistFailed(ctx, "update_signal", signal.Symbol, err)

			continue
		}

		if reason == types.ExitReasonNone {
			result.Updated = append(result.Updated, repriced)

			continue
		}

		s.metrics.SignalResolved(string(reason))
		s.logger.Info("Signal resolved",
			zap.String("symbol", repriced.Symbol),
			zap.String("reason", string(reason)),
			zap.Float64("pnl_pct", repriced.PnLPct),
		)

		result.Resolved = append(result.Resolved, repriced)
	}

	return result, nil
}

// Monitor re-prices the ACTIVE signals in memory. Status stays ACTIVE and ExitReason
// carries the reason that would resolve the signal now. Nothing is written.
func (s *Scanner) Monitor(ctx context.Context) ([]types.Signal, error) {
	active, prices, err := s.activeWithPrices(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	monitored := make([]types.Signal, 0, len(active))

	for _, signal := range active {
		price, ok := prices[signal.Symbol]

		repriced, reason := Reprice(signal, price, ok, now, s.opts.Expiry)
		repriced.ExitReason = reason
		monitored = append(monitored, repriced)
	}

	return monitored, nil
}

func (s *Scanner) activeWithPrices(ctx context.Context) ([]types.Signal, map[string]float64, error) {
	active, err := s.store.ListSignals(ctx, optional.Some(types.SignalStatusActive), 0)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to list active signals", err)
	}

	if len(active) == 0 {
		return nil, nil, nil
	}

	symbols := make([]string, 0, len(active))
	seen := make(map[string]bool, len(active))

	for _, signal := range active {
		if !seen[signal.Symbol] {
			seen[signal.Symbol] = true
			symbols = append(symbols, signal.Symbol)
		}
	}

	priceCtx := ctx
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc

		priceCtx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	prices, err := s.provider.LatestPrices(priceCtx, symbols)
	if err != nil {
		// expiry still applies without prices
		s.logger.Warn("Failed to fetch latest prices", zap.Strings("symbols", symbols), zap.Error(err))

		prices = map[string]float64{}
	}

	return active, prices, nil
}
