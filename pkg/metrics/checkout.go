package metrics

import "github.com/prometheus/client_golang/prometheus"

// CheckoutMetrics counts placed orders and aborted checkouts.
type CheckoutMetrics struct {
	ordersCreated *prometheus.CounterVec
	failures      *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout counters on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	ordersCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_orders_created_total",
		Help: "Per-store orders created by checkout.",
	}, []string{"payment_method"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failures_total",
		Help: "Checkouts that ended in an error.",
	}, []string{"reason"})
	reg.MustRegister(ordersCreated, failures)
	return &CheckoutMetrics{ordersCreated: ordersCreated, failures: failures}
}

// AddOrders adds n created orders for the payment method.
func (c *CheckoutMetrics) AddOrders(paymentMethod string, n int) {
	if c == nil || c.ordersCreated == nil || n <= 0 {
		return
	}
	c.ordersCreated.WithLabelValues(normalizeLabel(paymentMethod)).Add(float64(n))
}

// IncFailure counts a failed checkout under reason.
func (c *CheckoutMetrics) IncFailure(reason string) {
	if c == nil || c.failures == nil {
		return
	}
	c.failures.WithLabelValues(normalizeLabel(reason)).Inc()
}
