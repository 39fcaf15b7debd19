// Package metrics exposes Prometheus collectors for backtest runs, scans and actions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ensemble"

// Recorder holds the engine collectors. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	instrumentsFetched *prometheus.CounterVec
	instrumentsSkipped *prometheus.CounterVec
	signalsEmitted     prometheus.Counter
	signalsResolved    *prometheus.CounterVec
	backtestRuns       prometheus.Counter
	actionDuration     *prometheus.HistogramVec
}

// New creates a recorder registered on its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		instrumentsFetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "instruments_fetched_total",
				Help:      "Instruments whose bars were fetched, by component",
			},
			[]string{"component"},
		),
		instrumentsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "instruments_skipped_total",
				Help:      "Instruments dropped from a run, by component",
			},
			[]string{"component"},
		),
		signalsEmitted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scanner",
				Name:      "signals_emitted_total",
				Help:      "Signals inserted as ACTIVE",
			},
		),
		signalsResolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scanner",
				Name:      "signals_resolved_total",
				Help:      "Signals resolved, by exit reason",
			},
			[]string{"reason"},
		),
		backtestRuns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "backtest",
				Name:      "runs_total",
				Help:      "Completed walk-forward backtest runs",
			},
		),
		actionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "action_duration_seconds",
				Help:      "Duration of dispatched actions",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"action", "ok"},
		),
	}

	r.registry.MustRegister(
		r.instrumentsFetched,
		r.instrumentsSkipped,
		r.signalsEmitted,
		r.signalsResolved,
		r.backtestRuns,
		r.actionDuration,
	)

	return r
}

// Registry returns the registry the collectors live on.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the collectors in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) InstrumentFetched(component string) {
	if r == nil {
		return
	}

	r.instrumentsFetched.WithLabelValues(component).Inc()
}

func (r *Recorder) InstrumentSkipped(component string) {
	if r == nil {
		return
	}

	r.instrumentsSkipped.WithLabelValues(component).Inc()
}

func (r *Recorder) SignalEmitted() {
	if r == nil {
		return
	}

	r.signalsEmitted.Inc()
}

func (r *Recorder) SignalResolved(reason string) {
	if r == nil {
		return
	}

	r.signalsResolved.WithLabelValues(reason).Inc()
}

func (r *Recorder) BacktestRun() {
	if r == nil {
		return
	}

	r.backtestRuns.Inc()
}

// ObserveAction records the duration of one dispatched action in seconds.
func (r *Recorder) ObserveAction(action string, ok bool, seconds float64) {
	if r == nil {
		return
	}

	status := "false"
	if ok {
		status = "true"
	}

	r.actionDuration.WithLabelValues(action, status).Observe(seconds)
}
