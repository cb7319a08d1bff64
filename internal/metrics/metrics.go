// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "splitledger"

// Recompute results.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics holds the application collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	recomputes         *prometheus.CounterVec
	recomputeDuration  prometheus.Histogram
	validationFailures *prometheus.CounterVec
	suggestions        prometheus.Histogram
	adjustments        prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		recomputes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_recomputes_total",
			Help:      "Number of group balance rebuilds, by result.",
		}, []string{"result"}),
		recomputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "balance_recompute_duration_seconds",
			Help:      "Time spent rebuilding a group's balances and total.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "split_validation_failures_total",
			Help:      "Number of expense splits rejected by validation, by split mode.",
		}, []string{"mode"}),
		suggestions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "settlement_suggestions",
			Help:      "Number of payments in each computed settlement plan.",
			Buckets:   []float64{0, 1, 2, 3, 4, 6, 8},
		}),
		adjustments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_adjustments_total",
			Help:      "Number of manual balance adjustments applied.",
		}),
	}

	reg.MustRegister(
		m.recomputes,
		m.recomputeDuration,
		m.validationFailures,
		m.suggestions,
		m.adjustments,
	)
	return m
}

// ObserveRecompute records one balance rebuild that started at start.
func (m *Metrics) ObserveRecompute(start time.Time, err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	m.recomputes.WithLabelValues(result).Inc()
	m.recomputeDuration.Observe(time.Since(start).Seconds())
}

// SplitRejected records a split that failed validation.
func (m *Metrics) SplitRejected(mode string) {
	if m == nil {
		return
	}
	m.validationFailures.WithLabelValues(mode).Inc()
}

// SettlementPlanned records the size of a settlement plan.
func (m *Metrics) SettlementPlanned(payments int) {
	if m == nil {
		return
	}
	m.suggestions.Observe(float64(payments))
}

// BalanceAdjusted records a manual adjustment.
func (m *Metrics) BalanceAdjusted() {
	if m == nil {
		return
	}
	m.adjustments.Inc()
}
