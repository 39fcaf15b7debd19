package provider

import (
	"context"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/argo-ensemble/internal/types"
	"github.com/rxtech-lab/argo-ensemble/pkg/errors"
)

// binanceMaxLimit is the largest kline page the REST API serves.
const binanceMaxLimit = 1000

// BinanceAPIClient is the subset of the binance REST API the provider uses.
type BinanceAPIClient interface {
	Klines(ctx context.Context, symbol string, interval string, limit int) ([]*binance.Kline, error)
	Prices(ctx context.Context, symbols []string) ([]*binance.SymbolPrice, error)
}

type binanceAPIWrapper struct {
	client *binance.Client
}

func (w *binanceAPIWrapper) Klines(ctx context.Context, symbol string, interval string, limit int) ([]*binance.Kline, error) {
	return w.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
}

func (w *binanceAPIWrapper) Prices(ctx context.Context, symbols []string) ([]*binance.SymbolPrice, error) {
	return w.client.NewListPricesService().Symbols(symbols).Do(ctx)
}

type BinanceClient struct {
	apiClient BinanceAPIClient
}

// NewBinanceClient creates a client against the public REST API, or baseURL when set.
func NewBinanceClient(baseURL string) (Provider, error) {
	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = baseURL
	}

	return NewBinanceClientWithAPI(&binanceAPIWrapper{client: client}), nil
}

// NewBinanceClientWithAPI creates a client over api.
func NewBinanceClientWithAPI(api BinanceAPIClient) *BinanceClient {
	return &BinanceClient{apiClient: api}
}

// FetchBars downloads the latest klines of symbol. Binance serves at most 1000 per request.
func (c *BinanceClient) FetchBars(ctx context.Context, symbol string, interval Interval, limit int) (types.BarSeries, error) {
	if limit <= 0 || limit > binanceMaxLimit {
		limit = binanceMaxLimit
	}

	klines, err := c.apiClient.Klines(ctx, symbol, interval.String(), limit)
	if err != nil {
		return types.BarSeries{}, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch klines for %s", symbol)
	}

	if len(klines) == 0 {
		return types.BarSeries{}, errors.Newf(errors.ErrCodeNoDataFound, "no klines returned for %s", symbol)
	}

	bars := make([]types.Bar, 0, len(klines))

	for _, k := range klines {
		bar, err := klineToBar(k)
		if err != nil {
			return types.BarSeries{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "malformed kline for %s", symbol)
		}

		if err := checkBar(symbol, bar); err != nil {
			return types.BarSeries{}, err
		}

		bars = append(bars, bar)
	}

	return types.BarSeries{
		Symbol:   symbol,
		Interval: interval.String(),
		Bars:     bars,
	}, nil
}

// LatestPrices returns the ticker price of each requested symbol.
func (c *BinanceClient) LatestPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	prices := make(map[string]float64, len(symbols))
	if len(symbols) == 0 {
		return prices, nil
	}

	quotes, err := c.apiClient.Prices(ctx, symbols)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "failed to fetch ticker prices", err)
	}

	for _, q := range quotes {
		price, err := strconv.ParseFloat(q.Price, 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "malformed price for %s", q.Symbol)
		}

		if !finite(price) {
			continue
		}

		prices[q.Symbol] = price
	}

	return prices, nil
}

// klineToBar parses the string fields of a kline. OpenTime is the bar timestamp.
func klineToBar(k *binance.Kline) (types.Bar, error) {
	fields := []string{k.Open, k.High, k.Low, k.Close, k.Volume}
	values := make([]float64, len(fields))

	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return types.Bar{}, err
		}

		values[i] = v
	}

	return types.Bar{
		Time:   time.UnixMilli(k.OpenTime).UTC(),
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}, nil
}
