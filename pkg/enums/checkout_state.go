package enums

import "fmt"

// CheckoutState is the orchestrator position within a single checkout attempt.
type CheckoutState string

const (
	CheckoutStateIdle              CheckoutState = "idle"
	CheckoutStateOrderCreating     CheckoutState = "order_creating"
	CheckoutStateOrderCreated      CheckoutState = "order_created"
	CheckoutStatePaymentStarting   CheckoutState = "payment_starting"
	CheckoutStatePaymentRedirected CheckoutState = "payment_redirected"
	CheckoutStateFailed            CheckoutState = "failed"
)

var validCheckoutStates = []CheckoutState{
	CheckoutStateIdle,
	CheckoutStateOrderCreating,
	CheckoutStateOrderCreated,
	CheckoutStatePaymentStarting,
	CheckoutStatePaymentRedirected,
	CheckoutStateFailed,
}

var checkoutTransitions = map[CheckoutState][]CheckoutState{
	CheckoutStateIdle:              {CheckoutStateOrderCreating},
	CheckoutStateOrderCreating:     {CheckoutStateOrderCreated, CheckoutStateFailed},
	CheckoutStateOrderCreated:      {CheckoutStatePaymentStarting, CheckoutStateOrderCreating},
	CheckoutStatePaymentStarting:   {CheckoutStatePaymentRedirected, CheckoutStateFailed},
	CheckoutStatePaymentRedirected: {CheckoutStatePaymentStarting, CheckoutStateOrderCreating},
	CheckoutStateFailed:            {CheckoutStateOrderCreating, CheckoutStatePaymentStarting},
}

// String implements fmt.Stringer.
func (c CheckoutState) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutState.
func (c CheckoutState) IsValid() bool {
	for _, candidate := range validCheckoutStates {
		if candidate == c {
			return true
		}
	}
	return false
}

// InFlight reports whether a backend or gateway call is outstanding.
func (c CheckoutState) InFlight() bool {
	return c == CheckoutStateOrderCreating || c == CheckoutStatePaymentStarting
}

// CanTransitionTo reports whether the machine may move from c to next.
// Leaving failed only happens on an explicit retry.
func (c CheckoutState) CanTransitionTo(next CheckoutState) bool {
	for _, candidate := range checkoutTransitions[c] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseCheckoutState converts raw input into a CheckoutState.
func ParseCheckoutState(value string) (CheckoutState, error) {
	for _, candidate := range validCheckoutStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout state %q", value)
}
