package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
)

type MetricsTestSuite struct {
	suite.Suite
}

func TestMetricsSuite(t *testing.T) {
	suite.Run(t, new(MetricsTestSuite))
}

func (suite *MetricsTestSuite) TestCounters() {
	r := New()

	r.InstrumentFetched("backtest")
	r.InstrumentFetched("backtest")
	r.InstrumentSkipped("scanner")
	r.SignalEmitted()
	r.SignalResolved("TP_HIT")
	r.SignalResolved("TP_HIT")
	r.BacktestRun()

	suite.Equal(2.0, testutil.ToFloat64(r.instrumentsFetched.WithLabelValues("backtest")))
	suite.Equal(1.0, testutil.ToFloat64(r.instrumentsSkipped.WithLabelValues("scanner")))
	suite.Equal(1.0, testutil.ToFloat64(r.signalsEmitted))
	suite.Equal(2.0, testutil.ToFloat64(r.signalsResolved.WithLabelValues("TP_HIT")))
	suite.Equal(1.0, testutil.ToFloat64(r.backtestRuns))
}

func (suite *MetricsTestSuite) TestIndependentRegistries() {
	a := New()
	b := New()

	a.SignalEmitted()

	suite.Equal(1.0, testutil.ToFloat64(a.signalsEmitted))
	suite.Equal(0.0, testutil.ToFloat64(b.signalsEmitted))
}

func (suite *MetricsTestSuite) TestNilRecorder() {
	var r *Recorder

	suite.NotPanics(func() {
		r.InstrumentFetched("scanner")
		r.InstrumentSkipped("scanner")
		r.SignalEmitted()
		r.SignalResolved("EXPIRED")
		r.BacktestRun()
		r.ObserveAction("scan", true, 0.1)
	})
}

func (suite *MetricsTestSuite) TestHandler() {
	r := New()
	r.ObserveAction("backtest", true, 1.5)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	suite.Require().NoError(err)
	suite.Contains(string(body), `ensemble_action_duration_seconds_count{action="backtest",ok="true"} 1`)
	suite.Contains(string(body), "ensemble_backtest_runs_total 0")
}
