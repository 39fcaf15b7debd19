package backtest

import (
	"testing"

	"github.com/rxtech-lab/argo-ensemble/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type WindowTestSuite struct {
	suite.Suite
}

func TestWindowSuite(t *testing.T) {
	suite.Run(t, new(WindowTestSuite))
}

func (suite *WindowTestSuite) TestSplit() {
	w, err := Split(1000, 0.7, 5, 60)
	suite.Require().NoError(err)
	suite.Equal(Window{TrainStart: 60, TrainEnd: 700, TestStart: 705, TestEnd: 1000}, w)
	suite.Equal(700, w.SplitIndex())
	suite.Equal(5, w.PurgeGap())
}

func (suite *WindowTestSuite) TestSplit_Floor() {
	w, err := Split(333, 0.7, 0, 60)
	suite.Require().NoError(err)
	suite.Equal(233, w.TrainEnd)
	suite.Equal(233, w.TestStart)
}

func (suite *WindowTestSuite) TestSplit_TestStartsAfterPurge() {
	for n := 100; n <= 2000; n += 37 {
		for purge := 0; purge <= 20; purge += 5 {
			w, err := Split(n, 0.7, purge, 60)
			if err != nil {
				continue
			}

			suite.GreaterOrEqual(w.TestStart, w.SplitIndex()+purge)
			suite.Less(w.TrainStart, w.TrainEnd)
			suite.Less(w.TestStart, w.TestEnd)
		}
	}
}

func (suite *WindowTestSuite) TestSplit_Invalid() {
	tests := []struct {
		name   string
		n      int
		ratio  float64
		purge  int
		warmUp int
	}{
		{"ratio zero", 1000, 0, 5, 60},
		{"ratio one", 1000, 1, 5, 60},
		{"negative purge", 1000, 0.7, -1, 60},
		{"train inside warm-up", 80, 0.7, 5, 60},
		{"purge swallows test", 100, 0.7, 30, 60},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			_, err := Split(tc.n, tc.ratio, tc.purge, tc.warmUp)
			suite.Error(err)
			suite.True(errors.HasCode(err, errors.ErrCodeBacktestWindowInvalid))
		})
	}
}
