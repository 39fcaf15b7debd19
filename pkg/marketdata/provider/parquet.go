package provider

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-ensemble/internal/types"
	"github.com/rxtech-lab/argo-ensemble/pkg/errors"
)

// ParquetProvider replays snapshots written by the parquet writer: one <SYMBOL>.parquet per
// instrument in a directory. It is used for offline runs and reproducible backtests.
type ParquetProvider struct {
	db  *sql.DB
	dir string
}

func NewParquetProvider(dir string) (Provider, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "parquet directory %s is not readable", dir)
	}

	if !info.IsDir() {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "%s is not a directory", dir)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open DuckDB connection", err)
	}

	return &ParquetProvider{db: db, dir: dir}, nil
}

// Path is the snapshot file of symbol.
func (p *ParquetProvider) Path(symbol string) string {
	return filepath.Join(p.dir, symbol+".parquet")
}

func (p *ParquetProvider) FetchBars(ctx context.Context, symbol string, interval Interval, limit int) (types.BarSeries, error) {
	path := p.Path(symbol)
	if _, err := os.Stat(path); err != nil {
		return types.BarSeries{}, errors.Newf(errors.ErrCodeNoDataFound, "no snapshot for %s", symbol)
	}

	if limit <= 0 {
		return types.BarSeries{}, errors.Newf(errors.ErrCodeInvalidParameter, "limit must be positive, got %d", limit)
	}

	query := fmt.Sprintf(`
		SELECT time, open, high, low, close, volume FROM (
			SELECT time, open, high, low, close, volume
			FROM read_parquet('%s')
			ORDER BY time DESC
			LIMIT %d
		) ORDER BY time ASC
	`, quote(path), limit)

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return types.BarSeries{}, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to read snapshot of %s", symbol)
	}
	defer rows.Close()

	bars := make([]types.Bar, 0, limit)

	for rows.Next() {
		var bar types.Bar

		if err := rows.Scan(&bar.Time, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return types.BarSeries{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "malformed row in snapshot of %s", symbol)
		}

		bar.Time = bar.Time.UTC()

		if err := checkBar(symbol, bar); err != nil {
			return types.BarSeries{}, err
		}

		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return types.BarSeries{}, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to read snapshot of %s", symbol)
	}

	if len(bars) == 0 {
		return types.BarSeries{}, errors.Newf(errors.ErrCodeNoDataFound, "snapshot of %s is empty", symbol)
	}

	return types.BarSeries{
		Symbol:   symbol,
		Interval: interval.String(),
		Bars:     bars,
	}, nil
}

// LatestPrices returns the last close of each snapshot.
func (p *ParquetProvider) LatestPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	prices := make(map[string]float64, len(symbols))

	for _, symbol := range symbols {
		path := p.Path(symbol)
		if _, err := os.Stat(path); err != nil {
			continue
		}

		query := fmt.Sprintf(`SELECT close FROM read_parquet('%s') ORDER BY time DESC LIMIT 1`, quote(path))

		var price float64

		err := p.db.QueryRowContext(ctx, query).Scan(&price)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}

		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to read last close of %s", symbol)
		}

		if finite(price) {
			prices[symbol] = price
		}
	}

	return prices, nil
}

// Close releases the DuckDB connection.
func (p *ParquetProvider) Close() error {
	return p.db.Close()
}

func quote(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}

