package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCheckoutMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)
	m.AddOrders("COD", 3)
	m.AddOrders("COD", 0)
	m.IncFailure("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "checkout_orders_created_total", map[string]string{"payment_method": "COD"}); err != nil {
		t.Fatalf("fetch orders: %v", err)
	} else if got != 3 {
		t.Fatalf("expected 3 orders, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "checkout_failures_total", map[string]string{"reason": "unknown"}); err != nil {
		t.Fatalf("fetch failures: %v", err)
	} else if got != 1 {
		t.Fatalf("expected 1 failure, got %f", got)
	}
}

func TestCheckoutMetricsNilSafe(t *testing.T) {
	var m *CheckoutMetrics
	m.AddOrders("COD", 1)
	m.IncFailure("x")
	NewCheckoutMetrics(nil).IncFailure("x")
}
