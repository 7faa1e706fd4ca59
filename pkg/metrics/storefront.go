package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorefrontMetrics records cart and checkout operation outcomes.
type StorefrontMetrics struct {
	cartOps          *prometheus.CounterVec
	checkoutOps      *prometheus.CounterVec
	checkoutDuration *prometheus.HistogramVec
	ordersFinalized  prometheus.Counter
	outboxPublished  *prometheus.CounterVec
}

// NewStorefrontMetrics registers the storefront metrics on the provided registerer.
func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	cartOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operations_total",
		Help: "Cart mutations by operation and outcome.",
	}, []string{"operation", "outcome"})
	checkoutOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_transitions_total",
		Help: "Checkout session transitions by target status and outcome.",
	}, []string{"status", "outcome"})
	checkoutDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_step_duration_seconds",
		Help:    "Duration of checkout steps in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"step"})
	ordersFinalized := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_finalized_total",
		Help: "Orders successfully finalized.",
	})
	outboxPublished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_publish_total",
		Help: "Outbox publish attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(cartOps, checkoutOps, checkoutDuration, ordersFinalized, outboxPublished)
	return &StorefrontMetrics{
		cartOps:          cartOps,
		checkoutOps:      checkoutOps,
		checkoutDuration: checkoutDuration,
		ordersFinalized:  ordersFinalized,
		outboxPublished:  outboxPublished,
	}
}

// IncCartOp counts a cart mutation outcome.
func (m *StorefrontMetrics) IncCartOp(operation, outcome string) {
	if m == nil || m.cartOps == nil {
		return
	}
	m.cartOps.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

// IncCheckoutTransition counts a checkout transition outcome.
func (m *StorefrontMetrics) IncCheckoutTransition(status, outcome string) {
	if m == nil || m.checkoutOps == nil {
		return
	}
	m.checkoutOps.WithLabelValues(normalizeLabel(status), normalizeLabel(outcome)).Inc()
}

// ObserveCheckoutStep records the duration of the named checkout step.
func (m *StorefrontMetrics) ObserveCheckoutStep(step string, duration time.Duration) {
	if m == nil || m.checkoutDuration == nil {
		return
	}
	m.checkoutDuration.WithLabelValues(normalizeLabel(step)).Observe(duration.Seconds())
}

// IncOrderFinalized counts a successful order finalization.
func (m *StorefrontMetrics) IncOrderFinalized() {
	if m == nil || m.ordersFinalized == nil {
		return
	}
	m.ordersFinalized.Inc()
}

// IncOutboxPublish counts an outbox publish attempt.
func (m *StorefrontMetrics) IncOutboxPublish(outcome string) {
	if m == nil || m.outboxPublished == nil {
		return
	}
	m.outboxPublished.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
