package shipping

import "github.com/shopspring/decimal"

const (
	FallbackOptionID    = "fallback"
	FallbackName        = "Standard delivery"
	FreeFallbackName    = "Free delivery"
	fallbackDescription = "Estimated rate"
)

// FallbackPolicy prices the single option offered when live rates are unavailable.
type FallbackPolicy interface {
	Fallback(declaredValue decimal.Decimal, currency string) Option
}

// ThresholdFallback charges FlatPrice below FreeThreshold and nothing at or above it.
type ThresholdFallback struct {
	FlatPrice     decimal.Decimal
	FreeThreshold decimal.Decimal
}

// DefaultFallback is 99.00 below a declared value of 750.00.
func DefaultFallback() ThresholdFallback {
	return ThresholdFallback{
		FlatPrice:     decimal.RequireFromString("99.00"),
		FreeThreshold: decimal.RequireFromString("750.00"),
	}
}

func (t ThresholdFallback) Fallback(declaredValue decimal.Decimal, currency string) Option {
	opt := Option{
		ID:          FallbackOptionID,
		Name:        FallbackName,
		Description: fallbackDescription,
		Price:       t.FlatPrice,
		Currency:    currency,
		Fallback:    true,
	}
	if !t.FreeThreshold.IsZero() && declaredValue.GreaterThanOrEqual(t.FreeThreshold) {
		opt.Name = FreeFallbackName
		opt.Price = decimal.Zero
	}
	return opt
}
