// Package marketdata fetches bar series for an instrument universe and freezes them into
// Parquet snapshots.
package marketdata

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-ensemble/internal/types"
	"github.com/rxtech-lab/argo-ensemble/pkg/errors"
	"github.com/rxtech-lab/argo-ensemble/pkg/marketdata/provider"
	"golang.org/x/sync/errgroup"
)

// FetchOptions controls a universe fetch.
type FetchOptions struct {
	Interval provider.Interval `validate:"required"`
	Limit    int               `validate:"required,min=1"`
	// MinBars drops instruments with a shorter history
	MinBars int `validate:"min=0"`
	// Workers bounds the number of in-flight requests
	Workers int `validate:"required,min=1"`
	// Timeout applies to each request. Zero means no timeout beyond ctx.
	Timeout time.Duration `validate:"min=0"`
	// OnFetched is called once per instrument with its outcome. It may be called concurrently.
	OnFetched func(symbol string, err error)
}

// FetchResult splits a universe into the series that were fetched and the instruments that were dropped.
type FetchResult struct {
	Series map[string]types.BarSeries
	Failed map[string]error
}

// Symbols returns the fetched symbols, sorted.
func (r FetchResult) Symbols() []string {
	symbols := make([]string, 0, len(r.Series))
	for symbol := range r.Series {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols
}

// Reasons returns the error text of every dropped instrument.
func (r FetchResult) Reasons() map[string]string {
	if len(r.Failed) == 0 {
		return nil
	}

	reasons := make(map[string]string, len(r.Failed))
	for symbol, err := range r.Failed {
		reasons[symbol] = err.Error()
	}

	return reasons
}

// FetchUniverse fetches every symbol with at most opts.Workers requests in flight.
// A failing or short instrument is recorded in Failed and never retried.
// The returned error is only set for invalid options or a cancelled ctx.
func FetchUniverse(ctx context.Context, p provider.Provider, symbols []string, opts FetchOptions) (FetchResult, error) {
	result := FetchResult{
		Series: make(map[string]types.BarSeries),
		Failed: make(map[string]error),
	}

	if err := validator.New().Struct(opts); err != nil {
		return result, errors.Wrap(errors.ErrCodeInvalidParameter, "invalid fetch options", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	var mu sync.Mutex

	for _, symbol := range dedupe(symbols) {
		g.Go(func() error {
			series, err := fetchOne(gctx, p, symbol, opts)

			mu.Lock()
			if err != nil {
				result.Failed[symbol] = err
			} else {
				result.Series[symbol] = series
			}
			mu.Unlock()

			if opts.OnFetched != nil {
				opts.OnFetched(symbol, err)
			}

			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return result, err
	}

	return result, nil
}

func fetchOne(ctx context.Context, p provider.Provider, symbol string, opts FetchOptions) (types.BarSeries, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	series, err := p.FetchBars(ctx, symbol, opts.Interval, opts.Limit)
	if err != nil {
		return types.BarSeries{}, err
	}

	if series.Len() < opts.MinBars {
		return types.BarSeries{}, errors.NewInsufficientDataErrorf(opts.MinBars, series.Len(), symbol,
			"%s has %d bars, %d required", symbol, series.Len(), opts.MinBars)
	}

	if series.Symbol == "" {
		series.Symbol = symbol
	}

	return series, nil
}

func dedupe(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))

	for _, s := range symbols {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}

		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out
}
