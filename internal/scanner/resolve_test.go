package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-ensemble/internal/types"
	"github.com/rxtech-lab/argo-ensemble/mocks"
	"github.com/rxtech-lab/argo-ensemble/pkg/errors"
	"go.uber.org/mock/gomock"
)

func (suite *ScannerTestSuite) TestReprice() {
	now := suite.clock
	base := types.Signal{
		EntryPrice:   100,
		TPPrice:      110,
		SLPrice:      95,
		Status:       types.SignalStatusActive,
		CurrentPrice: 100,
		CreatedAt:    now.Add(-time.Hour),
	}

	tests := []struct {
		name      string
		price     float64
		hasPrice  bool
		createdAt time.Time
		reason    types.ExitReason
		current   float64
		pnl       float64
	}{
		{"take profit", 111, true, base.CreatedAt, types.ExitReasonTPHit, 111, 11},
		{"take profit at the level", 110, true, base.CreatedAt, types.ExitReasonTPHit, 110, 10},
		{"stop loss", 94, true, base.CreatedAt, types.ExitReasonSLHit, 94, -6},
		{"stop loss at the level", 95, true, base.CreatedAt, types.ExitReasonSLHit, 95, -5},
		{"refresh", 102, true, base.CreatedAt, types.ExitReasonNone, 102, 2},
		{"expired", 102, true, now.Add(-96 * time.Hour), types.ExitReasonExpired, 102, 2},
		{"take profit beats expiry", 120, true, now.Add(-200 * time.Hour), types.ExitReasonTPHit, 120, 20},
		{"no price", 0, false, base.CreatedAt, types.ExitReasonNone, 100, 0},
		{"no price but expired", 0, false, now.Add(-97 * time.Hour), types.ExitReasonExpired, 100, 0},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			signal := base
			signal.CreatedAt = tc.createdAt

			repriced, reason := Reprice(signal, tc.price, tc.hasPrice, now, 96*time.Hour)
			suite.Equal(tc.reason, reason)
			suite.Equal(tc.current, repriced.CurrentPrice)
			suite.InDelta(tc.pnl, repriced.PnLPct, 1e-9)
			suite.Equal(types.SignalStatusActive, repriced.Status)
		})
	}
}

func (suite *ScannerTestSuite) TestResolve() {
	created := suite.clock.Add(-time.Hour)
	tp := suite.seed("TPX", 100, created)
	sl := suite.seed("SLX", 100, created)
	old := suite.seed("OLD", 100, suite.clock.Add(-96*time.Hour))
	open := suite.seed("OPEN", 100, created)

	suite.mockProvider.EXPECT().
		LatestPrices(gomock.Any(), gomock.Any()).
		Return(map[string]float64{"TPX": 111, "SLX": 94, "OLD": 100, "OPEN": 102}, nil)

	result, err := suite.scanner(suite.store, suite.options()).Resolve(context.Background())
	suite.Require().NoError(err)

	reasons := make(map[string]types.ExitReason)
	for _, signal := range result.Resolved {
		suite.Equal(types.SignalStatusResolved, signal.Status)
		suite.True(signal.ResolvedAt.IsSome())
		reasons[signal.ID] = signal.ExitReason
	}

	suite.Equal(map[string]types.ExitReason{
		tp.ID:  types.ExitReasonTPHit,
		sl.ID:  types.ExitReasonSLHit,
		old.ID: types.ExitReasonExpired,
	}, reasons)

	suite.Require().Len(result.Updated, 1)
	suite.Equal(open.ID, result.Updated[0].ID)

	stored, err := suite.store.ActiveSignal(context.Background(), "OPEN")
	suite.Require().NoError(err)
	suite.Require().True(stored.IsSome())
	suite.Equal(102.0, stored.Unwrap().CurrentPrice)
	suite.InDelta(2.0, stored.Unwrap().PnLPct, 1e-9)

	resolved, err := suite.store.ListSignals(context.Background(), optional.Some(types.SignalStatusResolved), 0)
	suite.Require().NoError(err)
	suite.Len(resolved, 3)

	for _, signal := range resolved {
		suite.True(signal.ResolvedAt.IsSome())
		suite.NotEqual(types.ExitReasonNone, signal.ExitReason)
	}
}

func (suite *ScannerTestSuite) TestResolve_NothingActive() {
	result, err := suite.scanner(suite.store, suite.options()).Resolve(context.Background())
	suite.Require().NoError(err)
	suite.Empty(result.Resolved)
	suite.Empty(result.Updated)
}

func (suite *ScannerTestSuite) TestResolve_PricesUnavailable() {
	suite.seed("OLD", 100, suite.clock.Add(-120*time.Hour))
	suite.seed("NEW", 100, suite.clock.Add(-time.Hour))

	suite.mockProvider.EXPECT().
		LatestPrices(gomock.Any(), gomock.Any()).
		Return(nil, errors.New(errors.ErrCodeMarketDataFetchFailed, "ticker unavailable"))

	result, err := suite.scanner(suite.store, suite.options()).Resolve(context.Background())
	suite.Require().NoError(err)

	suite.Require().Len(result.Resolved, 1)
	suite.Equal("OLD", result.Resolved[0].Symbol)
	suite.Equal(types.ExitReasonExpired, result.Resolved[0].ExitReason)
	suite.Require().Len(result.Updated, 1)
	suite.Equal(100.0, result.Updated[0].CurrentPrice)
}

func (suite *ScannerTestSuite) TestResolve_UpdateFailureIsAudited() {
	active := []types.Signal{{
		ID: "sig-1", Symbol: "AAA", EntryPrice: 100, TPPrice: 110, SLPrice: 95,
		Status: types.SignalStatusActive, CreatedAt: suite.clock,
	}}

	mockStore := mocks.NewMockStore(suite.ctrl)
	mockStore.EXPECT().ListSignals(gomock.Any(), optional.Some(types.SignalStatusActive), 0).Return(active, nil)
	mockStore.EXPECT().UpdateSignal(gomock.Any(), gomock.Any()).Return(fmt.Errorf("locked"))
	mockStore.EXPECT().Audit(gomock.Any(), "persist_failed", gomock.Any()).Return(nil)

	suite.mockProvider.EXPECT().
		LatestPrices(gomock.Any(), []string{"AAA"}).
		Return(map[string]float64{"AAA": 120}, nil)

	result, err := suite.scanner(mockStore, suite.options()).Resolve(context.Background())
	suite.Require().NoError(err)
	suite.Empty(result.Resolved)
	suite.Empty(result.Updated)
}

func (suite *ScannerTestSuite) TestMonitor_NeverWrites() {
	active := []types.Signal{
		{ID: "a", Symbol: "AAA", EntryPrice: 100, TPPrice: 110, SLPrice: 95, Status: types.SignalStatusActive, CreatedAt: suite.clock},
		{ID: "b", Symbol: "BBB", EntryPrice: 50, TPPrice: 60, SLPrice: 45, Status: types.SignalStatusActive, CreatedAt: suite.clock},
		{ID: "c", Symbol: "CCC", EntryPrice: 10, TPPrice: 12, SLPrice: 9, Status: types.SignalStatusActive, CreatedAt: suite.clock.Add(-100 * time.Hour)},
	}

	// only reads are expected, any write fails the controller
	mockStore := mocks.NewMockStore(suite.ctrl)
	mockStore.EXPECT().ListSignals(gomock.Any(), optional.Some(types.SignalStatusActive), 0).Return(active, nil)

	suite.mockProvider.EXPECT().
		LatestPrices(gomock.Any(), []string{"AAA", "BBB", "CCC"}).
		Return(map[string]float64{"AAA": 111, "BBB": 55, "CCC": 10.5}, nil)

	monitored, err := suite.scanner(mockStore, suite.options()).Monitor(context.Background())
	suite.Require().NoError(err)
	suite.Require().Len(monitored, 3)

	suite.Equal(types.ExitReasonTPHit, monitored[0].ExitReason)
	suite.Equal(111.0, monitored[0].CurrentPrice)
	suite.Equal(types.ExitReasonNone, monitored[1].ExitReason)
	suite.InDelta(10.0, monitored[1].PnLPct, 1e-9)
	suite.Equal(types.ExitReasonExpired, monitored[2].ExitReason)

	for _, signal := range monitored {
		suite.Equal(types.SignalStatusActive, signal.Status)
		suite.True(signal.ResolvedAt.IsNone())
	}
}
