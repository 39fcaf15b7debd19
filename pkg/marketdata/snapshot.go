package marketdata

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rxtech-lab/argo-ensemble/internal/logger"
	"github.com/rxtech-lab/argo-ensemble/internal/types"
	"github.com/rxtech-lab/argo-ensemble/pkg/errors"
	"github.com/rxtech-lab/argo-ensemble/pkg/marketdata/provider"
	"github.com/rxtech-lab/argo-ensemble/pkg/marketdata/writer"
	"go.uber.org/zap"
)

// SnapshotResult maps each written symbol to its Parquet file.
type SnapshotResult struct {
	Paths  map[string]string
	Failed map[string]error
}

// Snapshot fetches the universe and writes one <SYMBOL>.parquet per instrument into dir.
// The files are the input of the parquet provider.
func Snapshot(ctx context.Context, p provider.Provider, symbols []string, dir string, opts FetchOptions, log *logger.Logger) (SnapshotResult, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return SnapshotResult{}, errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to create %s", dir)
	}

	fetched, err := FetchUniverse(ctx, p, symbols, opts)
	if err != nil {
		return SnapshotResult{}, err
	}

	result := SnapshotResult{
		Paths:  make(map[string]string, len(fetched.Series)),
		Failed: fetched.Failed,
	}

	for _, symbol := range fetched.Symbols() {
		path, err := writeSeries(filepath.Join(dir, symbol+".parquet"), fetched.Series[symbol], log)
		if err != nil {
			return result, err
		}

		log.Info("Wrote snapshot", zap.String("symbol", symbol), zap.String("path", path))

		result.Paths[symbol] = path
	}

	return result, nil
}

func writeSeries(path string, series types.BarSeries, log *logger.Logger) (outputPath string, err error) {
	w := writer.NewDuckDBWriter(path, log)

	if err := w.Initialize(); err != nil {
		return "", err
	}

	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for _, bar := range series.Bars {
		if err := w.Write(series.Symbol, bar); err != nil {
			return "", err
		}
	}

	return w.Finalize()
}
