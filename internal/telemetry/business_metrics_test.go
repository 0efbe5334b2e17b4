package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBusinessMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBusinessMetrics("test", reg)

	m.RecordMutation("add", "ok")
	m.RecordMutation("add", "ok")
	m.RecordMutation("add", "invalid")
	m.RecordCouponOutcome(CouponOutcomeApplied)
	m.RecordCouponOutcome(CouponOutcomeStale)
	m.RecordPersistFailure("clear")
	m.SetActiveCarts(3)
	m.ObserveCart(2, 200)
	m.ObserveCouponLatency(0.2)
	m.RecordEvent("cart.changed", "ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CartMutations.WithLabelValues("add", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CartMutations.WithLabelValues("add", "invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CouponAttempts.WithLabelValues(CouponOutcomeApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CouponAttempts.WithLabelValues(CouponOutcomeStale)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PersistFailures.WithLabelValues("clear")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ActiveCarts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("cart.changed", "ok")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.CouponLatency))
}

func TestBusinessMetrics_NilIsSafe(t *testing.T) {
	var m *BusinessMetrics

	assert.NotPanics(t, func() {
		m.RecordMutation("add", "ok")
		m.ObserveCart(1, 1)
		m.RecordPersistFailure("add")
		m.SetActiveCarts(1)
		m.RecordCouponOutcome(CouponOutcomeApplied)
		m.ObserveCouponLatency(1)
		m.RecordEvent("x", "ok")
	})
}

func TestNewBusinessMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewBusinessMetrics("a", prometheus.NewRegistry())
		NewBusinessMetrics("a", prometheus.NewRegistry())
	})
}
