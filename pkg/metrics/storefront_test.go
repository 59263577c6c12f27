package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestStorefrontMetricsExport(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStorefront(reg)

	m.ObserveCheckout(StageOrder, "ok")
	m.ObserveCheckout(StageOrder, "ok")
	m.ObserveCheckout(StagePayment, "")
	m.ObserveRateResolution(RateSourceFallback)
	m.ObserveCallback("return", "COMPLETE")
	m.ObserveCartMutation("add", "ok")
	m.ObserveCarrierLatency(300 * time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "storefront_checkout_attempts_total", "stage", StageOrder); err != nil {
		t.Fatalf("fetch checkout: %v", err)
	} else if got != 2 {
		t.Fatalf("expected 2 order attempts, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "storefront_checkout_attempts_total", "outcome", "unknown"); err != nil {
		t.Fatalf("empty outcome should map to unknown: %v", err)
	} else if got != 1 {
		t.Fatalf("expected 1 unknown outcome, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "storefront_shipping_rate_resolutions_total", "source", RateSourceFallback); err != nil || got != 1 {
		t.Fatalf("unexpected fallback count %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "storefront_payment_callbacks_total", "status", "COMPLETE"); err != nil || got != 1 {
		t.Fatalf("unexpected callback count %f err=%v", got, err)
	}
	if findMetricFamily(mfs, "storefront_carrier_request_duration_seconds") == nil {
		t.Fatalf("carrier latency histogram missing")
	}
}
