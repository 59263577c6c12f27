package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	sfsession "github.com/angelmondragon/storefront-backend/internal/session"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/payfast"
)

const (
	successLandingPath = "/checkout/success"
	cancelLandingPath  = "/checkout/cancelled"
)

type CallbackInterpreter interface {
	InterpretCallback(values url.Values) payfast.Callback
}

type CallbackRecorder interface {
	RecordCallback(ctx context.Context, cb *models.PaymentCallback) error
}

type CallbackObserver interface {
	ObserveCallback(kind, status string)
}

// PaymentCallbacks wires the gateway landings. Journal, Observer and
// LandingURL are optional; without a LandingURL the landings answer in JSON.
type PaymentCallbacks struct {
	Interpreter CallbackInterpreter
	Journal     CallbackRecorder
	Observer    CallbackObserver
	LandingURL  string
	Logger      *logger.Logger
}

type landingResponse struct {
	Callback    payfast.Callback `json:"callback"`
	CartCleared bool             `json:"cart_cleared"`
}

// PaymentReturn is the success landing and the only place the cart is
// cleared after checkout. The cart is cleared only when the order reference
// matches the order this session created; a payload that explicitly reports
// a non-complete status keeps the cart.
func PaymentReturn(deps PaymentCallbacks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		cb := deps.receive(ctx, enums.CallbackKindReturn, r.URL.Query())

		cleared := false
		if cb.RawStatus == "" || cb.Completed() {
			if sess := middleware.SessionFromContext(ctx); sess != nil && ownsOrder(sess, cb.OrderID) {
				if err := sess.Cart.Clear(ctx); err != nil {
					responses.WriteError(ctx, deps.Logger, w, err)
					return
				}
				cleared = true
			}
		}

		deps.land(w, r, successLandingPath, landingResponse{Callback: cb, CartCleared: cleared})
	}
}

// PaymentCancel records the cancellation and leaves the cart for a retry.
func PaymentCancel(deps PaymentCallbacks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cb := deps.receive(r.Context(), enums.CallbackKindCancel, r.URL.Query())
		deps.land(w, r, cancelLandingPath, landingResponse{Callback: cb})
	}
}

// PaymentNotify accepts the gateway's server-to-server notification.
// The gateway signature and source address are not verified; the payload is
// journaled as received and nothing is mutated from it.
func PaymentNotify(deps PaymentCallbacks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			responses.WriteError(r.Context(), deps.Logger, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notify payload"))
			return
		}
		cb := deps.receive(r.Context(), enums.CallbackKindNotify, r.PostForm)
		if !cb.Valid {
			responses.WriteError(r.Context(), deps.Logger, w, pkgerrors.New(pkgerrors.CodeValidation, "notify payload incomplete").
				WithDetails(map[string]any{"missing": cb.Missing}))
			return
		}
		responses.WriteSuccess(w, map[string]any{"received": true})
	}
}

func (d PaymentCallbacks) receive(ctx context.Context, kind enums.CallbackKind, values url.Values) payfast.Callback {
	cb := d.Interpreter.InterpretCallback(values)

	status := strings.ToLower(string(cb.Status))
	if status == "" {
		status = "unknown"
	}
	if d.Observer != nil {
		d.Observer.ObserveCallback(string(kind), status)
	}

	logg := d.Logger
	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"callback_kind": kind,
			"order_id":      cb.OrderID,
			"status":        cb.RawStatus,
			"valid":         cb.Valid,
		})
		logg.Info(logCtx, "payment.callback")
	}

	if d.Journal != nil {
		payload, err := json.Marshal(values)
		if err != nil {
			payload = []byte("{}")
		}
		record := &models.PaymentCallback{
			ID:         uuid.New(),
			Kind:       kind,
			OrderID:    optional(cb.OrderID),
			Status:     optional(cb.RawStatus),
			Amount:     optional(cb.Amount),
			GatewayRef: optional(cb.PaymentID),
			Valid:      cb.Valid,
			Payload:    string(payload),
		}
		if err := d.Journal.RecordCallback(context.WithoutCancel(ctx), record); err != nil && logg != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "payment.callback.journal_failed")
		}
	}
	return cb
}

func (d PaymentCallbacks) land(w http.ResponseWriter, r *http.Request, path string, body landingResponse) {
	if d.LandingURL == "" {
		responses.WriteSuccess(w, body)
		return
	}
	target := strings.TrimRight(d.LandingURL, "/") + path
	if body.Callback.OrderID != "" {
		target += "?" + url.Values{"order_id": {body.Callback.OrderID}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func ownsOrder(sess *sfsession.Session, orderID string) bool {
	if orderID == "" || sess.Checkout == nil {
		return false
	}
	order := sess.Checkout.Order()
	return order != nil && order.ID == orderID
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
