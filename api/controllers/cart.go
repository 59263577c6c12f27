package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/catalog"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// ProductLookup fetches the current catalog view of a product.
type ProductLookup interface {
	Product(ctx context.Context, id string) (*catalog.Product, error)
}

type addItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=0"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func CartGet(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(r.Context(), logg, w, http.StatusOK, sess.Cart)
	}
}

// CartAddItem adds a product at its current catalog price and stock. An
// omitted quantity adds one.
func CartAddItem(products ProductLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := products.Product(r.Context(), strings.TrimSpace(payload.ProductID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quantity := payload.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		if err := sess.Cart.Add(r.Context(), CartProduct(*product), quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(r.Context(), logg, w, http.StatusOK, sess.Cart)
	}
}

// CartUpdateItem sets a line's quantity; zero or less removes the line.
func CartUpdateItem(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := sess.Cart.Update(r.Context(), chi.URLParam(r, "productId"), payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(r.Context(), logg, w, http.StatusOK, sess.Cart)
	}
}

func CartRemoveItem(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := sess.Cart.Remove(r.Context(), chi.URLParam(r, "productId")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(r.Context(), logg, w, http.StatusOK, sess.Cart)
	}
}

func CartClear(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := sess.Cart.Clear(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(r.Context(), logg, w, http.StatusOK, sess.Cart)
	}
}

// CartProduct maps a catalog product onto what the cart records per line.
// An unparseable weight is left at zero and the resolver's default applies.
func CartProduct(p catalog.Product) cart.Product {
	weight, err := strconv.ParseFloat(strings.TrimSpace(p.Weight), 64)
	if err != nil || weight < 0 {
		weight = 0
	}
	return cart.Product{
		ID:            p.ID,
		Name:          p.Name,
		Price:         p.Price,
		Image:         p.PrimaryImage(),
		StockStatus:   p.StockStatus,
		StockQuantity: p.StockQuantity,
		WeightKG:      weight,
	}
}

func writeCart(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, status int, c *cart.Cart) {
	payload, err := cart.MarshalSnapshot(c.Snapshot())
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart"))
		return
	}
	responses.WriteSuccessStatus(w, status, json.RawMessage(payload))
}
