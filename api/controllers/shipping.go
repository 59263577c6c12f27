package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// RateResolver prices delivery for a destination.
type RateResolver interface {
	Resolve(ctx context.Context, address shipping.Address, parcels []shipping.Parcel, declaredValue decimal.Decimal) (*shipping.Result, error)
}

type selectRateRequest struct {
	OptionID string `json:"option_id" validate:"required"`
}

type ratesResponse struct {
	Options []shipping.Option `json:"options"`
	Warning string            `json:"warning,omitempty"`
	Source  string            `json:"source,omitempty"`
}

// ShippingRates resolves options for the session cart and replaces the
// session's rate set. Carrier failures come back as a fallback option with a warning.
func ShippingRates(resolver RateResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var address shipping.Address
		if err := validators.DecodeJSON(r, &address); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := sess.Rates.Refresh(func() (*shipping.Result, error) {
			items := sess.Cart.Items()
			return resolver.Resolve(r.Context(), address, shipping.ParcelsFromCart(items), sess.Cart.Total())
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, ratesResponse{
			Options: result.Options,
			Warning: result.Warning,
			Source:  result.Source,
		})
	}
}

// ShippingSelect marks one option selected. An unknown id keeps the current
// selection and reports NOT_FOUND.
func ShippingSelect(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload selectRateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if !sess.Rates.Select(payload.OptionID) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "shipping option not found").
				WithDetails(map[string]any{"option_id": payload.OptionID}))
			return
		}
		responses.WriteSuccess(w, ratesResponse{
			Options: sess.Rates.Options(),
			Warning: sess.Rates.Warning(),
		})
	}
}
