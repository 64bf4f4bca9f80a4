package services

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for activation passes and ledger movements.
type Metrics struct {
	activated          prometheus.Counter
	activationSkipped  prometheus.Counter
	activationFailures prometheus.Counter
	passDuration       prometheus.Histogram
	ledger             *prometheus.CounterVec
	earningsCredited   prometheus.Counter
}

var (
	defaultMetricsOnce sync.Once
	defaultMetrics     *Metrics
)

// NewMetrics registers the collectors against registerer. A nil registerer
// uses the default Prometheus registerer, registered once per process.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultMetricsOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		activated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "delivery_admin",
			Name:      "scheduled_orders_activated_total",
			Help:      "Scheduled orders materialized into live orders.",
		}),
		activationSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "delivery_admin",
			Name:      "scheduled_orders_activation_skipped_total",
			Help:      "Activations skipped because another worker already claimed the scheduled order.",
		}),
		activationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "delivery_admin",
			Name:      "scheduled_orders_activation_failures_total",
			Help:      "Activations that failed and were rolled back.",
		}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "delivery_admin",
			Name:      "activation_pass_duration_seconds",
			Help:      "Duration of a scheduled-order activation pass.",
			Buckets:   prometheus.DefBuckets,
		}),
		ledger: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "delivery_admin",
			Name:      "ledger_transactions_total",
			Help:      "Driver ledger transactions recorded, by kind.",
		}, []string{"kind"}),
		earningsCredited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "delivery_admin",
			Name:      "driver_earnings_credited_total",
			Help:      "Completed orders credited to a driver's pending balance.",
		}),
	}
	registerer.MustRegister(m.activated, m.activationSkipped, m.activationFailures, m.passDuration, m.ledger, m.earningsCredited)
	return m
}

func (m *Metrics) observePass(start time.Time) {
	if m == nil {
		return
	}
	m.passDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) observeActivation(err error) {
	if m == nil {
		return
	}
	switch {
	case err == nil:
		m.activated.Inc()
	case isConflict(err):
		m.activationSkipped.Inc()
	default:
		m.activationFailures.Inc()
	}
}

func (m *Metrics) observeLedger(kind string) {
	if m == nil {
		return
	}
	m.ledger.WithLabelValues(kind).Inc()
}

func (m *Metrics) observeEarning() {
	if m == nil {
		return
	}
	m.earningsCredited.Inc()
}
