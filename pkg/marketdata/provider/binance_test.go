package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/gorilla/mux"
	"github.com/rxtech-lab/argo-ensemble/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// mockBinanceAPIClient implements BinanceAPIClient for testing.
type mockBinanceAPIClient struct {
	klines    []*binance.Kline
	klinesErr error
	prices    []*binance.SymbolPrice
	pricesErr error

	gotSymbol   string
	gotInterval string
	gotLimit    int
}

func (m *mockBinanceAPIClient) Klines(_ context.Context, symbol string, interval string, limit int) ([]*binance.Kline, error) {
	m.gotSymbol = symbol
	m.gotInterval = interval
	m.gotLimit = limit

	return m.klines, m.klinesErr
}

func (m *mockBinanceAPIClient) Prices(_ context.Context, _ []string) ([]*binance.SymbolPrice, error) {
	return m.prices, m.pricesErr
}

type BinanceClientTestSuite struct {
	suite.Suite
}

func TestBinanceClientSuite(t *testing.T) {
	suite.Run(t, new(BinanceClientTestSuite))
}

func kline(openTime time.Time, o, h, l, c, v string) *binance.Kline {
	return &binance.Kline{
		OpenTime:  openTime.UnixMilli(),
		Open:      o,
		High:      h,
		Low:       l,
		Close:     c,
		Volume:    v,
		CloseTime: openTime.Add(time.Hour).UnixMilli() - 1,
	}
}

func (suite *BinanceClientTestSuite) TestFetchBars() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	api := &mockBinanceAPIClient{
		klines: []*binance.Kline{
			kline(start, "100", "101", "99", "100.5", "10"),
			kline(start.Add(time.Hour), "100.5", "102", "100", "101.5", "12"),
		},
	}
	client := NewBinanceClientWithAPI(api)

	series, err := client.FetchBars(context.Background(), "BTCUSDT", IntervalOneHour, 500)
	suite.Require().NoError(err)

	suite.Equal("BTCUSDT", api.gotSymbol)
	suite.Equal("1h", api.gotInterval)
	suite.Equal(500, api.gotLimit)

	suite.Equal("BTCUSDT", series.Symbol)
	suite.Equal("1h", series.Interval)
	suite.Require().Equal(2, series.Len())
	suite.Equal(start, series.Bars[0].Time)
	suite.Equal(101.5, series.Last().Close)
	suite.Equal(12.0, series.Last().Volume)
}

func (suite *BinanceClientTestSuite) TestFetchBars_LimitIsCapped() {
	api := &mockBinanceAPIClient{klines: []*binance.Kline{kline(time.Now(), "1", "1", "1", "1", "1")}}
	client := NewBinanceClientWithAPI(api)

	_, err := client.FetchBars(context.Background(), "BTCUSDT", IntervalOneHour, 5000)
	suite.NoError(err)
	suite.Equal(binanceMaxLimit, api.gotLimit)
}

func (suite *BinanceClientTestSuite) TestFetchBars_Errors() {
	tests := []struct {
		name string
		api  *mockBinanceAPIClient
		code errors.ErrorCode
	}{
		{"transport failure", &mockBinanceAPIClient{klinesErr: fmt.Errorf("connection refused")}, errors.ErrCodeMarketDataFetchFailed},
		{"empty response", &mockBinanceAPIClient{}, errors.ErrCodeNoDataFound},
		{
			"malformed price",
			&mockBinanceAPIClient{klines: []*binance.Kline{kline(time.Now(), "abc", "1", "1", "1", "1")}},
			errors.ErrCodeMarketDataParseFailed,
		},
		{
			"NaN close",
			&mockBinanceAPIClient{klines: []*binance.Kline{kline(time.Now(), "1", "1", "1", "NaN", "1")}},
			errors.ErrCodeMarketDataParseFailed,
		},
		{
			"infinite volume",
			&mockBinanceAPIClient{klines: []*binance.Kline{kline(time.Now(), "1", "1", "1", "1", "+Inf")}},
			errors.ErrCodeMarketDataParseFailed,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			_, err := NewBinanceClientWithAPI(tc.api).FetchBars(context.Background(), "BTCUSDT", IntervalOneHour, 10)
			suite.Error(err)
			suite.True(errors.HasCode(err, tc.code))
			suite.True(errors.IsDataUnavailable(err))
		})
	}
}

func (suite *BinanceClientTestSuite) TestLatestPrices() {
	api := &mockBinanceAPIClient{
		prices: []*binance.SymbolPrice{
			{Symbol: "BTCUSDT", Price: "42000.5"},
			{Symbol: "ETHUSDT", Price: "2500"},
		},
	}

	prices, err := NewBinanceClientWithAPI(api).LatestPrices(context.Background(), []string{"BTCUSDT", "ETHUSDT"})
	suite.Require().NoError(err)
	suite.Equal(map[string]float64{"BTCUSDT": 42000.5, "ETHUSDT": 2500}, prices)

	api.prices = append(api.prices, &binance.SymbolPrice{Symbol: "BADUSDT", Price: "NaN"})
	prices, err = NewBinanceClientWithAPI(api).LatestPrices(context.Background(), []string{"BTCUSDT", "BADUSDT"})
	suite.Require().NoError(err)
	suite.NotContains(prices, "BADUSDT")

	prices, err = NewBinanceClientWithAPI(api).LatestPrices(context.Background(), nil)
	suite.NoError(err)
	suite.Empty(prices)

	api.pricesErr = fmt.Errorf("timeout")
	_, err = NewBinanceClientWithAPI(api).LatestPrices(context.Background(), []string{"BTCUSDT"})
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataFetchFailed))
}

func (suite *BinanceClientTestSuite) TestAgainstREST() {
	router := mux.NewRouter()
	router.HandleFunc("/api/v3/klines", func(w http.ResponseWriter, r *http.Request) {
		suite.Equal("ETHUSDT", r.URL.Query().Get("symbol"))
		suite.Equal("1h", r.URL.Query().Get("interval"))
		suite.Equal("2", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			[1704067200000,"2300.0","2310.0","2290.0","2305.0","150.5",1704070799999,"0",10,"0","0","0"],
			[1704070800000,"2305.0","2320.0","2300.0","2318.0","175.0",1704074399999,"0",12,"0","0","0"]
		]`)
	}).Methods(http.MethodGet)

	server := httptest.NewServer(router)
	defer server.Close()

	client, err := NewBinanceClient(server.URL)
	suite.Require().NoError(err)

	series, err := client.FetchBars(context.Background(), "ETHUSDT", IntervalOneHour, 2)
	suite.Require().NoError(err)
	suite.Require().Equal(2, series.Len())
	suite.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), series.Bars[0].Time)
	suite.Equal(2318.0, series.Last().Close)
	suite.Equal(175.0, series.Last().Volume)
}
