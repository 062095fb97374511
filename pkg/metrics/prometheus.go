package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ticksTotal   *prometheus.CounterVec
	signalsTotal *prometheus.CounterVec
	activeScouts prometheus.Gauge
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		ticksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momentum_ticks_total",
				Help: "Total number of candles received from the market feed",
			},
			[]string{"symbol"},
		),
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momentum_signals_total",
				Help: "Total number of signals detected",
			},
			[]string{"strategy", "direction"},
		),
		activeScouts: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "momentum_active_scouts",
				Help: "Number of scouts currently running",
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "momentum_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "momentum_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordTick records one candle received for a symbol.
func (r *Recorder) RecordTick(symbol string) {
	r.ticksTotal.WithLabelValues(symbol).Inc()
}

// RecordSignal records a detected signal.
func (r *Recorder) RecordSignal(strategy, direction string) {
	r.signalsTotal.WithLabelValues(strategy, direction).Inc()
}

// SetActiveScouts records the current number of running scouts.
func (r *Recorder) SetActiveScouts(n int) {
	r.activeScouts.Set(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
