package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-ensemble/internal/config"
	"github.com/rxtech-lab/argo-ensemble/internal/logger"
	"github.com/rxtech-lab/argo-ensemble/internal/metrics"
	"github.com/rxtech-lab/argo-ensemble/internal/model"
	"github.com/rxtech-lab/argo-ensemble/internal/storage"
	"github.com/rxtech-lab/argo-ensemble/internal/types"
	"github.com/rxtech-lab/argo-ensemble/mocks"
	"github.com/rxtech-lab/argo-ensemble/pkg/errors"
	"github.com/rxtech-lab/argo-ensemble/pkg/marketdata/provider"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type EngineTestSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	mockProvider *mocks.MockProvider
	store        *storage.DuckDBStore
	cfg          config.Config
	universe     map[string]types.BarSeries
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (suite *EngineTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.mockProvider = mocks.NewMockProvider(suite.ctrl)

	store, err := storage.NewDuckDBStore(":memory:", logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.Require().NoError(store.Initialize())
	suite.store = store

	suite.cfg = config.Default()
	suite.cfg.Universe = []string{"AAA", "BBB", "UP"}
	suite.cfg.Workers = 2
	suite.cfg.RequestTimeout = time.Second

	generated := mocks.DefaultConfig()
	generated.Volatility = 0.015
	suite.universe = mocks.NewDataGenerator(11).GenerateUniverse([]string{"AAA", "BBB"}, generated)
	suite.universe["UP"] = mocks.RisingSeries("UP", 1000)
}

func (suite *EngineTestSuite) TearDownTest() {
	suite.store.Close()
	suite.ctrl.Finish()
}

func (suite *EngineTestSuite) engine(store storage.Store) *Engine {
	return New(suite.cfg, suite.mockProvider, store, logger.NewNopLogger(), metrics.New())
}

func (suite *EngineTestSuite) serveUniverse() {
	suite.mockProvider.EXPECT().
		FetchBars(gomock.Any(), gomock.Any(), provider.IntervalOneHour, suite.cfg.BarLimit).
		DoAndReturn(func(_ context.Context, symbol string, _ provider.Interval, _ int) (types.BarSeries, error) {
			series, ok := suite.universe[symbol]
			if !ok {
				return types.BarSeries{}, errors.Newf(errors.ErrCodeNoDataFound, "no klines returned for %s", symbol)
			}

			return series, nil
		}).
		AnyTimes()

	suite.mockProvider.EXPECT().
		LatestPrices(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, symbols []string) (map[string]float64, error) {
			prices := make(map[string]float64, len(symbols))
			for _, symbol := range symbols {
				prices[symbol] = suite.universe[symbol].Last().Close
			}

			return prices, nil
		}).
		AnyTimes()
}

func (suite *EngineTestSuite) TestValidActions() {
	suite.Equal([]string{
		"backtest", "scan", "signals", "monitor", "leaderboard", "full_run", "audit", "features", "compare",
	}, ValidActions())

	for _, name := range ValidActions() {
		a, err := ParseAction(name)
		suite.Require().NoError(err)
		suite.Equal(name, string(a))
	}

	suite.True(ActionFullRun.Mutates())
	suite.False(ActionLeaderboard.Mutates())
}

func (suite *EngineTestSuite) TestDispatch_InvalidAction() {
	// no expectations: any store or provider call fails the test
	mockStore := mocks.NewMockStore(suite.ctrl)

	report := suite.engine(mockStore).Dispatch(context.Background(), "trade", Params{})
	suite.False(report.OK)
	suite.Equal("trade", report.Action)
	suite.Contains(report.Error, "unknown action")
	suite.Equal(ValidActions(), report.ValidActions)
	suite.Empty(report.Signals)
	suite.Empty(report.Results)
}

func (suite *EngineTestSuite) TestDispatch_Backtest() {
	suite.serveUniverse()

	report := suite.engine(suite.store).Dispatch(context.Background(), "backtest", Params{Symbols: []string{"AAA", "UP", "GONE"}})
	suite.Require().True(report.OK, report.Error)
	suite.Len(report.Results, 2*2*(model.Count()+1))
	suite.Len(report.Weights, model.Count())
	suite.Contains(report.Skipped, "GONE")
	suite.Greater(int64(report.Duration), int64(0))

	entries, err := suite.store.ListAudit(context.Background(), 0)
	suite.Require().NoError(err)
	suite.Require().Len(entries, 1)
	suite.Equal("backtest", entries[0].Action)

	var details map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(entries[0].Details), &details))
	suite.Equal(float64(2), details["instruments"])
	suite.Equal(float64(1), details["skipped"])
}

func (suite *EngineTestSuite) TestDispatch_BacktestWithoutInstruments() {
	suite.serveUniverse()

	report := suite.engine(suite.store).Dispatch(context.Background(), "backtest", Params{Symbols: []string{"GONE"}})
	suite.False(report.OK)
	suite.Contains(report.Skipped, "GONE")

	weights, err := suite.store.ListWeights(context.Background())
	suite.Require().NoError(err)
	suite.Empty(weights)
}

func (suite *EngineTestSuite) TestDispatch_FullRun() {
	suite.serveUniverse()

	e := suite.engine(suite.store)

	report := e.Dispatch(context.Background(), "full_run", Params{})
	suite.Require().True(report.OK, report.Error)
	suite.Len(report.Results, 3*2*(model.Count()+1))
	suite.Len(report.Weights, model.Count())

	for i := 1; i < len(report.Signals); i++ {
		suite.GreaterOrEqual(report.Signals[i-1].Confidence, report.Signals[i].Confidence)
	}

	entries, err := suite.store.ListAudit(context.Background(), 0)
	suite.Require().NoError(err)

	var audited []string
	for _, entry := range entries {
		audited = append(audited, entry.Action)
	}

	suite.ElementsMatch([]string{"backtest", "scan", "full_run"}, audited)

	// a second scan never duplicates an ACTIVE signal
	again := e.Dispatch(context.Background(), "scan", Params{})
	suite.Require().True(again.OK, again.Error)

	active, err := suite.store.ListSignals(context.Background(), optional.Some(types.SignalStatusActive), 0)
	suite.Require().NoError(err)

	seen := make(map[string]bool)
	for _, signal := range active {
		suite.False(seen[signal.Symbol], signal.Symbol)
		seen[signal.Symbol] = true
	}
}

// activeListFailingStore stores normally but cannot list signals, so the resolve
// half of a scan round fails after the scan half has inserted.
type activeListFailingStore struct {
	*storage.DuckDBStore
}

func (s activeListFailingStore) ListSignals(context.Context, optional.Option[types.SignalStatus], int) ([]types.Signal, error) {
	return nil, errors.New(errors.ErrCodeQueryFailed, "list failed")
}

func (suite *EngineTestSuite) TestDispatch_ScanKeepsSignalsWhenResolveFails() {
	suite.serveUniverse()

	report := suite.engine(activeListFailingStore{suite.store}).Dispatch(context.Background(), "scan", Params{})
	suite.False(report.OK)
	suite.Contains(report.Error, "list failed")

	persisted, err := suite.store.ListSignals(context.Background(), optional.Some(types.SignalStatusActive), 0)
	suite.Require().NoError(err)
	suite.Require().NotEmpty(persisted)

	suite.Require().Len(report.Signals, len(persisted))

	for _, signal := range report.Signals {
		suite.True(signal.Inserted, signal.Symbol)
	}

	entries, err := suite.store.ListAudit(context.Background(), 0)
	suite.Require().NoError(err)
	suite.Require().Len(entries, 1)
	suite.Equal("scan", entries[0].Action)
	suite.Contains(entries[0].Details, "list failed")
}

func (suite *EngineTestSuite) TestViewsAreReadOnly() {
	mockStore := mocks.NewMockStore(suite.ctrl)
	mockStore.EXPECT().ListSignals(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	mockStore.EXPECT().ActiveSignal(gomock.Any(), "UP").Return(optional.None[types.Signal](), nil)
	mockStore.EXPECT().ListBacktestResults(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	mockStore.EXPECT().ListWeights(gomock.Any()).Return(nil, nil).AnyTimes()
	mockStore.EXPECT().ListAudit(gomock.Any(), DefaultLimit).Return(nil, nil).AnyTimes()

	suite.serveUniverse()

	e := suite.engine(mockStore)

	for _, action := range []string{"signals", "monitor", "leaderboard", "compare", "audit"} {
		report := e.Dispatch(context.Background(), action, Params{})
		suite.True(report.OK, "%s: %s", action, report.Error)
	}

	report := e.Dispatch(context.Background(), "signals", Params{Symbol: "UP"})
	suite.True(report.OK, report.Error)

	report = e.Dispatch(context.Background(), "features", Params{Symbol: "UP"})
	suite.Require().True(report.OK, report.Error)
	suite.Require().NotNil(report.Features)
	suite.Equal("UP", report.Features.Symbol)
	suite.Len(report.Features.Votes, model.Count())
}

func (suite *EngineTestSuite) TestDispatch_Signals() {
	ctx := context.Background()
	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for i, symbol := range []string{"AAA", "BBB", "CCC"} {
		inserted, err := suite.store.InsertSignalIfNotActive(ctx, types.Signal{
			Symbol:     symbol,
			Direction:  types.VoteLong,
			EntryPrice: 100,
			TPPrice:    110,
			SLPrice:    95,
			Status:     types.SignalStatusActive,
			CreatedAt:  created.Add(time.Duration(i) * time.Hour),
		})
		suite.Require().NoError(err)
		suite.Require().True(inserted)
	}

	ccc, err := suite.store.ActiveSignal(ctx, "CCC")
	suite.Require().NoError(err)

	resolved := ccc.Unwrap()
	resolved.Status = types.SignalStatusResolved
	resolved.ExitReason = types.ExitReasonTPHit
	resolved.ResolvedAt = optional.Some(created.Add(5 * time.Hour))
	suite.Require().NoError(suite.store.UpdateSignal(ctx, resolved))

	report := suite.engine(suite.store).Dispatch(ctx, "signals", Params{})
	suite.Require().True(report.OK, report.Error)
	suite.Len(report.Signals, 2)
	suite.Require().Len(report.Resolved, 1)
	suite.Equal("CCC", report.Resolved[0].Symbol)

	report = suite.engine(suite.store).Dispatch(ctx, "signals", Params{Symbol: "BBB"})
	suite.Require().True(report.OK, report.Error)
	suite.Require().Len(report.Signals, 1)
	suite.Equal("BBB", report.Signals[0].Symbol)
	suite.Empty(report.Resolved)

	report = suite.engine(suite.store).Dispatch(ctx, "signals", Params{Symbol: "CCC"})
	suite.Require().True(report.OK, report.Error)
	suite.Empty(report.Signals)
	suite.Require().Len(report.Resolved, 1)
	suite.Equal(resolved.ID, report.Resolved[0].ID)
}

func (suite *EngineTestSuite) TestDispatch_FeaturesNeedsSymbol() {
	report := suite.engine(suite.store).Dispatch(context.Background(), "features", Params{})
	suite.False(report.OK)
	suite.Contains(report.Error, "symbol")
}

func (suite *EngineTestSuite) TestLeaderboard() {
	first, second := model.All()[0].Key(), model.All()[1].Key()

	rows := []types.BacktestResult{
		{ModelID: first, Symbol: "AAA", TradeStats: types.TradeStats{TradeCount: 4, WinCount: 3, TotalReturn: 6, Sharpe: 1.0}},
		{ModelID: first, Symbol: "BBB", TradeStats: types.TradeStats{TradeCount: 6, WinCount: 3, TotalReturn: 2, Sharpe: 0.5}},
		{ModelID: second, Symbol: "AAA", TradeStats: types.TradeStats{TradeCount: 2, WinCount: 2, TotalReturn: 5, Sharpe: 2.0}},
		{ModelID: types.EnsembleModelID, Symbol: "AAA", TradeStats: types.TradeStats{TradeCount: 1, Sharpe: 0}},
		// train rows are ignored
		{ModelID: first, Symbol: "AAA", IsTrain: true, TradeStats: types.TradeStats{TradeCount: 50, Sharpe: 9}},
	}
	weights := []types.ModelWeight{{ModelID: first, Weight: 0.3}, {ModelID: second, Weight: 0.7}}

	entries := Leaderboard(rows, weights)
	suite.Require().Len(entries, 3)

	suite.Equal(second, entries[0].ModelID)
	suite.Equal(1, entries[0].Rank)
	suite.Equal(0.7, entries[0].Weight)

	suite.Equal(first, entries[1].ModelID)
	suite.Equal(2, entries[1].Rank)
	suite.Equal(10, entries[1].TestTrades)
	suite.InDelta(0.6, entries[1].WinRate, 1e-12)
	suite.InDelta(8.0, entries[1].Return, 1e-12)
	suite.InDelta(0.7, entries[1].Sharpe, 1e-12)

	suite.Equal(types.EnsembleModelID, entries[2].ModelID)
	suite.Equal("Ensemble", entries[2].Name)
	suite.Zero(entries[2].Weight)
}

func (suite *EngineTestSuite) TestCompare() {
	first := model.All()[0].Key()

	rows := []types.BacktestResult{
		{ModelID: first, IsTrain: true, TradeStats: types.TradeStats{TradeCount: 10, WinCount: 7, Sharpe: 1.5}},
		{ModelID: first, IsTrain: false, TradeStats: types.TradeStats{TradeCount: 5, WinCount: 2, Sharpe: 0.25}},
	}

	entries := Compare(rows)
	suite.Require().Len(entries, 1)
	suite.Equal(first, entries[0].ModelID)
	suite.Equal(10, entries[0].TrainTrades)
	suite.Equal(5, entries[0].TestTrades)
	suite.InDelta(0.7, entries[0].TrainWin, 1e-12)
	suite.InDelta(0.4, entries[0].TestWin, 1e-12)
	suite.InDelta(1.25, entries[0].OverfitGap, 1e-12)
}
