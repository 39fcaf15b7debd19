package provider

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-ensemble/internal/types"
	"github.com/rxtech-lab/argo-ensemble/pkg/errors"
)

// polygonLookback widens the aggregate window so closed sessions and weekends still yield limit bars.
const polygonLookback = 3

// PolygonAggsIterator is the iterator returned by ListAggs.
type PolygonAggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// PolygonAPIClient is the subset of the polygon REST API the provider uses.
type PolygonAPIClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator
	GetLastTrade(ctx context.Context, params *models.GetLastTradeParams, options ...models.RequestOption) (*models.GetLastTradeResponse, error)
}

type polygonAPIWrapper struct {
	client *polygon.Client
}

func (w *polygonAPIWrapper) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator {
	return w.client.ListAggs(ctx, params, options...)
}

func (w *polygonAPIWrapper) GetLastTrade(ctx context.Context, params *models.GetLastTradeParams, options ...models.RequestOption) (*models.GetLastTradeResponse, error) {
	return w.client.GetLastTrade(ctx, params, options...)
}

type PolygonClient struct {
	apiClient PolygonAPIClient
	now       func() time.Time
}

func NewPolygonClient(apiKey string) (Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("apiKey is required")
	}

	return NewPolygonClientWithAPI(&polygonAPIWrapper{client: polygon.New(apiKey)}), nil
}

// NewPolygonClientWithAPI creates a client over api.
func NewPolygonClientWithAPI(api PolygonAPIClient) *PolygonClient {
	return &PolygonClient{
		apiClient: api,
		now:       time.Now,
	}
}

// FetchBars lists the aggregates ending now and keeps the last limit of them.
func (c *PolygonClient) FetchBars(ctx context.Context, symbol string, interval Interval, limit int) (types.BarSeries, error) {
	if limit <= 0 {
		return types.BarSeries{}, errors.Newf(errors.ErrCodeInvalidParameter, "limit must be positive, got %d", limit)
	}

	to := c.now()
	from := to.Add(-interval.Duration() * time.Duration(limit*polygonLookback))

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: interval.Multiplier(),
		Timespan:   interval.Timespan(),
		From:       models.Millis(from),
		To:         models.Millis(to),
	}.WithLimit(50000)

	iter := c.apiClient.ListAggs(ctx, params)

	bars := make([]types.Bar, 0, limit)

	for iter.Next() {
		agg := iter.Item()
		bar := types.Bar{
			Time:   time.Time(agg.Timestamp).UTC(),
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		}

		if err := checkBar(symbol, bar); err != nil {
			return types.BarSeries{}, err
		}

		bars = append(bars, bar)
	}

	if iter.Err() != nil {
		return types.BarSeries{}, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, iter.Err(), "error iterating polygon aggregates for %s", symbol)
	}

	if len(bars) == 0 {
		return types.BarSeries{}, errors.Newf(errors.ErrCodeNoDataFound, "no aggregates returned for %s", symbol)
	}

	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}

	return types.BarSeries{
		Symbol:   symbol,
		Interval: interval.String(),
		Bars:     bars,
	}, nil
}

// LatestPrices queries the last trade per symbol. Symbols the API rejects are left out.
func (c *PolygonClient) LatestPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	prices := make(map[string]float64, len(symbols))

	var lastErr error

	for _, symbol := range symbols {
		res, err := c.apiClient.GetLastTrade(ctx, &models.GetLastTradeParams{Ticker: symbol})
		if err != nil {
			lastErr = err

			continue
		}

		if finite(res.Results.Price) {
			prices[symbol] = res.Results.Price
		}
	}

	if len(prices) == 0 && lastErr != nil {
		return nil, errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "failed to fetch last trades", lastErr)
	}

	return prices, nil
}
