package enums

import "testing"

func TestCheckoutStateTransitions(t *testing.T) {
	t.Parallel()

	allowed := []struct{ from, to CheckoutState }{
		{CheckoutStateIdle, CheckoutStateOrderCreating},
		{CheckoutStateOrderCreating, CheckoutStateOrderCreated},
		{CheckoutStateOrderCreating, CheckoutStateFailed},
		{CheckoutStateOrderCreated, CheckoutStatePaymentStarting},
		{CheckoutStatePaymentStarting, CheckoutStatePaymentRedirected},
		{CheckoutStatePaymentStarting, CheckoutStateFailed},
		{CheckoutStateFailed, CheckoutStateOrderCreating},
		{CheckoutStatePaymentRedirected, CheckoutStatePaymentStarting},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Fatalf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to CheckoutState }{
		{CheckoutStateIdle, CheckoutStatePaymentStarting},
		{CheckoutStateIdle, CheckoutStateFailed},
		{CheckoutStateOrderCreated, CheckoutStateFailed},
		{CheckoutStateFailed, CheckoutStatePaymentRedirected},
		{CheckoutStateOrderCreating, CheckoutStatePaymentRedirected},
	}
	for _, tc := range denied {
		if tc.from.CanTransitionTo(tc.to) {
			t.Fatalf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestCheckoutStateInFlight(t *testing.T) {
	t.Parallel()

	if !CheckoutStateOrderCreating.InFlight() || !CheckoutStatePaymentStarting.InFlight() {
		t.Fatalf("creating and starting states must be in flight")
	}
	if CheckoutStateIdle.InFlight() || CheckoutStateFailed.InFlight() {
		t.Fatalf("idle and failed are settled states")
	}
}

func TestParseEnums(t *testing.T) {
	t.Parallel()

	if s, err := ParseStockStatus("outofstock"); err != nil || s != StockStatusOutOfStock {
		t.Fatalf("unexpected stock status %q err=%v", s, err)
	}
	if _, err := ParseStockStatus("OUTOFSTOCK"); err == nil {
		t.Fatalf("expected case-sensitive parse to fail")
	}
	if p, err := ParsePaymentStatus("COMPLETE"); err != nil || p != PaymentStatusComplete {
		t.Fatalf("unexpected payment status %q err=%v", p, err)
	}
	if _, err := ParseCheckoutState("done"); err == nil {
		t.Fatalf("expected unknown checkout state to fail")
	}
	if !OrderStatusProcessing.IsValid() || OrderStatus("shipped").IsValid() {
		t.Fatalf("order status validity mismatch")
	}
	if !CallbackKindNotify.IsValid() {
		t.Fatalf("notify should be a valid callback kind")
	}
}
