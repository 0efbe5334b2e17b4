package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for cart and coupon observability.
// A nil *BusinessMetrics is valid and records nothing.
type BusinessMetrics struct {
	// Cart
	CartMutations   *prometheus.CounterVec
	CartValue       prometheus.Histogram
	CartItemCount   prometheus.Histogram
	ActiveCarts     prometheus.Gauge
	PersistFailures *prometheus.CounterVec

	// Coupons
	CouponAttempts *prometheus.CounterVec
	CouponLatency  prometheus.Histogram

	// Cart events
	EventsPublished *prometheus.CounterVec
}

// Coupon outcomes.
const (
	CouponOutcomeApplied  = "applied"
	CouponOutcomeRejected = "rejected"
	CouponOutcomeStale    = "stale"
	CouponOutcomePending  = "pending"
	CouponOutcomeInvalid  = "invalid"
	CouponOutcomeRemoved  = "removed"
)

// NewBusinessMetrics creates business metrics and registers them with reg.
// A nil reg registers with the default registry.
func NewBusinessMetrics(namespace string, reg prometheus.Registerer) *BusinessMetrics {
	if namespace == "" {
		namespace = "resell"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)
	subsystem := "business"

	return &BusinessMetrics{
		// =======================================================================
		// Cart
		// =======================================================================
		CartMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_mutations_total",
				Help:      "Total cart operations by outcome",
			},
			[]string{"operation", "outcome"}, // outcome: ok, invalid, error
		),
		CartValue: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_value",
				Help:      "Cart subtotal after each change",
				Buckets:   []float64{0, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
			},
		),
		CartItemCount: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_item_count",
				Help:      "Total item quantity after each change",
				Buckets:   []float64{0, 1, 2, 3, 5, 10, 20, 50},
			},
		),
		ActiveCarts: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "active_carts",
				Help:      "Cart sessions held in memory",
			},
		),
		PersistFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_persist_failures_total",
				Help:      "Cart snapshot writes that failed",
			},
			[]string{"operation"},
		),

		// =======================================================================
		// Coupons
		// =======================================================================
		CouponAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "coupon_attempts_total",
				Help:      "Coupon apply attempts by outcome",
			},
			[]string{"outcome"},
		),
		CouponLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "coupon_validation_duration_seconds",
				Help:      "Round trip time of coupon validation requests",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),

		// =======================================================================
		// Cart events
		// =======================================================================
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_events_published_total",
				Help:      "Cart events handed to the event publisher",
			},
			[]string{"type", "outcome"},
		),
	}
}

// RecordMutation counts a cart operation.
func (m *BusinessMetrics) RecordMutation(operation, outcome string) {
	if m == nil {
		return
	}
	m.CartMutations.WithLabelValues(operation, outcome).Inc()
}

// ObserveCart records the cart size after a change.
func (m *BusinessMetrics) ObserveCart(itemCount int, value float64) {
	if m == nil {
		return
	}
	m.CartItemCount.Observe(float64(itemCount))
	m.CartValue.Observe(value)
}

// RecordPersistFailure counts a failed snapshot write.
func (m *BusinessMetrics) RecordPersistFailure(operation string) {
	if m == nil {
		return
	}
	m.PersistFailures.WithLabelValues(operation).Inc()
}

// SetActiveCarts sets the number of cart sessions in memory.
func (m *BusinessMetrics) SetActiveCarts(n int) {
	if m == nil {
		return
	}
	m.ActiveCarts.Set(float64(n))
}

// RecordCouponOutcome counts a coupon attempt.
func (m *BusinessMetrics) RecordCouponOutcome(outcome string) {
	if m == nil {
		return
	}
	m.CouponAttempts.WithLabelValues(outcome).Inc()
}

// ObserveCouponLatency records how long a validation round trip took.
func (m *BusinessMetrics) ObserveCouponLatency(seconds float64) {
	if m == nil {
		return
	}
	m.CouponLatency.Observe(seconds)
}

// RecordEvent counts a published cart event.
func (m *BusinessMetrics) RecordEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(eventType, outcome).Inc()
}
