package provider

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-ensemble/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// mockPolygonAPIClient implements PolygonAPIClient for testing.
type mockPolygonAPIClient struct {
	iterator   PolygonAggsIterator
	gotParams  *models.ListAggsParams
	lastTrades map[string]float64
	tradeErr   error
}

func (m *mockPolygonAPIClient) ListAggs(_ context.Context, params *models.ListAggsParams, _ ...models.RequestOption) PolygonAggsIterator {
	m.gotParams = params

	return m.iterator
}

func (m *mockPolygonAPIClient) GetLastTrade(_ context.Context, params *models.GetLastTradeParams, _ ...models.RequestOption) (*models.GetLastTradeResponse, error) {
	price, ok := m.lastTrades[params.Ticker]
	if !ok {
		if m.tradeErr != nil {
			return nil, m.tradeErr
		}

		return nil, fmt.Errorf("ticker %s not found", params.Ticker)
	}

	res := &models.GetLastTradeResponse{}
	res.Results.Price = price

	return res, nil
}

// mockPolygonIterator implements PolygonAggsIterator for testing.
type mockPolygonIterator struct {
	aggs  []models.Agg
	index int
	err   error
}

func (m *mockPolygonIterator) Next() bool {
	if m.index < len(m.aggs) {
		m.index++

		return true
	}

	return false
}

func (m *mockPolygonIterator) Item() models.Agg {
	if m.index > 0 && m.index <= len(m.aggs) {
		return m.aggs[m.index-1]
	}

	return models.Agg{}
}

func (m *mockPolygonIterator) Err() error {
	return m.err
}

type PolygonClientTestSuite struct {
	suite.Suite
	now time.Time
}

func TestPolygonClientSuite(t *testing.T) {
	suite.Run(t, new(PolygonClientTestSuite))
}

func (suite *PolygonClientTestSuite) SetupTest() {
	suite.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (suite *PolygonClientTestSuite) aggs(n int) []models.Agg {
	out := make([]models.Agg, n)
	for i := range out {
		price := 100 + float64(i)
		out[i] = models.Agg{
			Timestamp: models.Millis(suite.now.Add(time.Duration(i-n) * time.Hour)),
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price + 0.5,
			Volume:    1000,
		}
	}

	return out
}

func (suite *PolygonClientTestSuite) client(api *mockPolygonAPIClient) *PolygonClient {
	client := NewPolygonClientWithAPI(api)
	client.now = func() time.Time { return suite.now }

	return client
}

func (suite *PolygonClientTestSuite) TestNewPolygonClient_EmptyApiKey() {
	client, err := NewPolygonClient("")
	suite.Error(err)
	suite.Nil(client)
	suite.Contains(err.Error(), "apiKey is required")
}

func (suite *PolygonClientTestSuite) TestFetchBars_KeepsLastLimit() {
	api := &mockPolygonAPIClient{iterator: &mockPolygonIterator{aggs: suite.aggs(10)}}

	series, err := suite.client(api).FetchBars(context.Background(), "AAPL", IntervalOneHour, 4)
	suite.Require().NoError(err)
	suite.Require().Equal(4, series.Len())
	suite.Equal(106.0, series.Bars[0].Open)
	suite.Equal(109.5, series.Last().Close)
	suite.Equal("AAPL", series.Symbol)

	suite.Require().NotNil(api.gotParams)
	suite.Equal("AAPL", api.gotParams.Ticker)
	suite.Equal(1, api.gotParams.Multiplier)
	suite.Equal(models.Hour, api.gotParams.Timespan)
	suite.Equal(suite.now, time.Time(api.gotParams.To))
	suite.Equal(suite.now.Add(-12*time.Hour), time.Time(api.gotParams.From))
}

func (suite *PolygonClientTestSuite) TestFetchBars_Errors() {
	_, err := suite.client(&mockPolygonAPIClient{iterator: &mockPolygonIterator{}}).
		FetchBars(context.Background(), "AAPL", IntervalOneHour, 4)
	suite.True(errors.HasCode(err, errors.ErrCodeNoDataFound))

	_, err = suite.client(&mockPolygonAPIClient{iterator: &mockPolygonIterator{err: fmt.Errorf("429")}}).
		FetchBars(context.Background(), "AAPL", IntervalOneHour, 4)
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataFetchFailed))

	_, err = suite.client(&mockPolygonAPIClient{iterator: &mockPolygonIterator{}}).
		FetchBars(context.Background(), "AAPL", IntervalOneHour, 0)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *PolygonClientTestSuite) TestFetchBars_RejectsNonFiniteAggregates() {
	aggs := suite.aggs(5)
	aggs[2].High = math.Inf(1)

	_, err := suite.client(&mockPolygonAPIClient{iterator: &mockPolygonIterator{aggs: aggs}}).
		FetchBars(context.Background(), "AAPL", IntervalOneHour, 5)
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataParseFailed))
	suite.True(errors.IsDataUnavailable(err))

	aggs = suite.aggs(5)
	aggs[4].Close = math.NaN()

	_, err = suite.client(&mockPolygonAPIClient{iterator: &mockPolygonIterator{aggs: aggs}}).
		FetchBars(context.Background(), "AAPL", IntervalOneHour, 5)
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataParseFailed))

	api := &mockPolygonAPIClient{lastTrades: map[string]float64{"AAPL": 190.25, "BAD": math.NaN()}}
	prices, err := suite.client(api).LatestPrices(context.Background(), []string{"AAPL", "BAD"})
	suite.NoError(err)
	suite.Equal(map[string]float64{"AAPL": 190.25}, prices)
}

func (suite *PolygonClientTestSuite) TestLatestPrices() {
	api := &mockPolygonAPIClient{lastTrades: map[string]float64{"AAPL": 190.25}}

	prices, err := suite.client(api).LatestPrices(context.Background(), []string{"AAPL", "MISSING"})
	suite.NoError(err)
	suite.Equal(map[string]float64{"AAPL": 190.25}, prices)

	api = &mockPolygonAPIClient{tradeErr: fmt.Errorf("unauthorized")}
	_, err = suite.client(api).LatestPrices(context.Background(), []string{"AAPL"})
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataFetchFailed))
}
