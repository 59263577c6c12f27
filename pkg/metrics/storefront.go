package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storefront"

// Checkout stages.
const (
	StageOrder   = "order"
	StagePayment = "payment"
)

// Rate sources.
const (
	RateSourceCarrier  = "carrier"
	RateSourceFallback = "fallback"
)

// Storefront holds the cart, shipping and checkout collectors.
type Storefront struct {
	checkout       *prometheus.CounterVec
	rates          *prometheus.CounterVec
	callbacks      *prometheus.CounterVec
	cartMutations  *prometheus.CounterVec
	carrierLatency prometheus.Histogram
}

// NewStorefront registers the storefront collectors on reg.
func NewStorefront(reg prometheus.Registerer) *Storefront {
	if reg == nil {
		return &Storefront{}
	}
	checkout := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_attempts_total",
		Help:      "Checkout attempts by stage and outcome code.",
	}, []string{"stage", "outcome"})
	rates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "shipping_rate_resolutions_total",
		Help:      "Shipping rate resolutions by source.",
	}, []string{"source"})
	callbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_callbacks_total",
		Help:      "Payment gateway callbacks by kind and reported status.",
	}, []string{"kind", "status"})
	cartMutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_mutations_total",
		Help:      "Cart mutations by operation and result.",
	}, []string{"op", "result"})
	carrierLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "carrier_request_duration_seconds",
		Help:      "Latency of carrier rate requests.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8},
	})
	reg.MustRegister(checkout, rates, callbacks, cartMutations, carrierLatency)
	return &Storefront{
		checkout:       checkout,
		rates:          rates,
		callbacks:      callbacks,
		cartMutations:  cartMutations,
		carrierLatency: carrierLatency,
	}
}

// ObserveCheckout counts a finished order or payment step; outcome is "ok" or an error code.
func (s *Storefront) ObserveCheckout(stage, outcome string) {
	if s == nil || s.checkout == nil {
		return
	}
	s.checkout.WithLabelValues(normalizeLabel(stage), normalizeLabel(outcome)).Inc()
}

func (s *Storefront) ObserveRateResolution(source string) {
	if s == nil || s.rates == nil {
		return
	}
	s.rates.WithLabelValues(normalizeLabel(source)).Inc()
}

func (s *Storefront) ObserveCallback(kind, status string) {
	if s == nil || s.callbacks == nil {
		return
	}
	s.callbacks.WithLabelValues(normalizeLabel(kind), normalizeLabel(status)).Inc()
}

func (s *Storefront) ObserveCartMutation(op, result string) {
	if s == nil || s.cartMutations == nil {
		return
	}
	s.cartMutations.WithLabelValues(normalizeLabel(op), normalizeLabel(result)).Inc()
}

func (s *Storefront) ObserveCarrierLatency(d time.Duration) {
	if s == nil || s.carrierLatency == nil {
		return
	}
	s.carrierLatency.Observe(d.Seconds())
}
