package session

import (
	"sync/atomic"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
)

// Session is the per-browser context: one cart, one rate set, one checkout.
type Session struct {
	ID       string
	Cart     *cart.Cart
	Rates    *shipping.RateSet
	Checkout *checkout.Orchestrator

	lastSeen atomic.Int64
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

// LastSeen is the time of the most recent lookup.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// busy reports whether a checkout call is outstanding and the session must stay resident.
func (s *Session) busy() bool {
	return s.Checkout != nil && s.Checkout.State().InFlight()
}
