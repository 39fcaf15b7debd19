package marketdata

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-ensemble/internal/types"
	"github.com/rxtech-lab/argo-ensemble/mocks"
	"github.com/rxtech-lab/argo-ensemble/pkg/errors"
	"github.com/rxtech-lab/argo-ensemble/pkg/marketdata/provider"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type FetchTestSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	mockProvider *mocks.MockProvider
	universe     map[string]types.BarSeries
}

func TestFetchSuite(t *testing.T) {
	suite.Run(t, new(FetchTestSuite))
}

func (suite *FetchTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.mockProvider = mocks.NewMockProvider(suite.ctrl)

	config := mocks.DefaultConfig()
	config.Count = 120
	suite.universe = mocks.NewDataGenerator(7).GenerateUniverse([]string{"AAA", "BBB", "CCC"}, config)
}

func (suite *FetchTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *FetchTestSuite) options() FetchOptions {
	return FetchOptions{
		Interval: provider.IntervalOneHour,
		Limit:    120,
		MinBars:  100,
		Workers:  2,
		Timeout:  time.Second,
	}
}

func (suite *FetchTestSuite) TestFetchUniverse() {
	suite.mockProvider.EXPECT().
		FetchBars(gomock.Any(), gomock.Any(), provider.IntervalOneHour, 120).
		DoAndReturn(func(_ context.Context, symbol string, _ provider.Interval, _ int) (types.BarSeries, error) {
			return suite.universe[symbol], nil
		}).
		Times(3)

	result, err := FetchUniverse(context.Background(), suite.mockProvider, []string{"CCC", "AAA", "BBB", "AAA"}, suite.options())
	suite.Require().NoError(err)
	suite.Equal([]string{"AAA", "BBB", "CCC"}, result.Symbols())
	suite.Empty(result.Failed)
	suite.Nil(result.Reasons())
	suite.Equal(suite.universe["BBB"], result.Series["BBB"])
}

func (suite *FetchTestSuite) TestFetchUniverse_DropsFailedAndShort() {
	suite.mockProvider.EXPECT().FetchBars(gomock.Any(), "AAA", gomock.Any(), gomock.Any()).
		Return(suite.universe["AAA"], nil)
	suite.mockProvider.EXPECT().FetchBars(gomock.Any(), "BBB", gomock.Any(), gomock.Any()).
		Return(types.BarSeries{}, errors.New(errors.ErrCodeNoDataFound, "no klines returned for BBB"))

	short := suite.universe["CCC"]
	short.Bars = short.Bars[:50]
	suite.mockProvider.EXPECT().FetchBars(gomock.Any(), "CCC", gomock.Any(), gomock.Any()).
		Return(short, nil)

	var fetched sync.Map

	opts := suite.options()
	opts.OnFetched = func(symbol string, err error) {
		fetched.Store(symbol, err)
	}

	result, err := FetchUniverse(context.Background(), suite.mockProvider, []string{"AAA", "BBB", "CCC"}, opts)
	suite.Require().NoError(err)
	suite.Equal([]string{"AAA"}, result.Symbols())
	suite.Len(result.Failed, 2)
	suite.True(errors.HasCode(result.Failed["BBB"], errors.ErrCodeNoDataFound))
	suite.True(errors.IsInsufficientDataError(result.Failed["CCC"]))
	suite.Contains(result.Reasons()["CCC"], "50 bars")

	for _, symbol := range []string{"AAA", "BBB", "CCC"} {
		_, ok := fetched.Load(symbol)
		suite.True(ok, symbol)
	}
}

func (suite *FetchTestSuite) TestFetchUniverse_BoundedConcurrency() {
	var inFlight, peak int32

	suite.mockProvider.EXPECT().
		FetchBars(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, symbol string, _ provider.Interval, _ int) (types.BarSeries, error) {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}

			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)

			return suite.universe["AAA"], nil
		}).
		Times(8)

	symbols := []string{"S1", "S2", "S3", "S4", "S5", "S6", "S7", "S8"}
	result, err := FetchUniverse(context.Background(), suite.mockProvider, symbols, suite.options())
	suite.Require().NoError(err)
	suite.Len(result.Series, 8)
	suite.LessOrEqual(atomic.LoadInt32(&peak), int32(2))
}

func (suite *FetchTestSuite) TestFetchUniverse_InvalidOptions() {
	opts := suite.options()
	opts.Workers = 0

	_, err := FetchUniverse(context.Background(), suite.mockProvider, []string{"AAA"}, opts)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *FetchTestSuite) TestSnapshot() {
	suite.mockProvider.EXPECT().
		FetchBars(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, symbol string, _ provider.Interval, _ int) (types.BarSeries, error) {
			if symbol == "CCC" {
				return types.BarSeries{}, errors.New(errors.ErrCodeMarketDataFetchFailed, "timeout")
			}

			return suite.universe[symbol], nil
		}).
		Times(3)

	dir := filepath.Join(suite.T().TempDir(), "snapshot")

	result, err := Snapshot(context.Background(), suite.mockProvider, []string{"AAA", "BBB", "CCC"}, dir, suite.options(), nil)
	suite.Require().NoError(err)
	suite.Len(result.Paths, 2)
	suite.Contains(result.Failed, "CCC")

	for _, symbol := range []string{"AAA", "BBB"} {
		_, err := os.Stat(filepath.Join(dir, symbol+".parquet"))
		suite.NoError(err)
	}

	// the snapshot replays through the parquet provider
	replay, err := provider.NewParquetProvider(dir)
	suite.Require().NoError(err)

	series, err := replay.FetchBars(context.Background(), "AAA", provider.IntervalOneHour, 1000)
	suite.Require().NoError(err)
	suite.Equal(suite.universe["AAA"].Bars, series.Bars)
}
