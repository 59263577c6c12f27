package payfast

import (
	"net/url"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Callback field names posted back by the gateway.
const (
	CallbackPaymentStatus = "payment_status"
	CallbackAmountGross   = "amount_gross"
	CallbackEmail         = "email_address"
	CallbackPaymentID     = "pf_payment_id"
	CallbackOrderRef      = FieldCustomStr1
	CallbackMerchantRef   = FieldPaymentID
)

var requiredCallbackFields = []string{CallbackPaymentStatus, CallbackAmountGross, CallbackEmail}

// Callback is the interpreted form of a gateway return, cancel or notify call.
type Callback struct {
	Valid       bool                `json:"valid"`
	OrderID     string              `json:"orderId,omitempty"`
	Status      enums.PaymentStatus `json:"status,omitempty"`
	RawStatus   string              `json:"rawStatus,omitempty"`
	Amount      string              `json:"amount,omitempty"`
	Email       string              `json:"email,omitempty"`
	PaymentID   string              `json:"paymentId,omitempty"`
	MerchantRef string              `json:"merchantRef,omitempty"`
	Missing     []string            `json:"missing,omitempty"`
}

// Completed reports whether the gateway confirmed payment.
func (c Callback) Completed() bool {
	return c.Valid && c.Status == enums.PaymentStatusComplete
}

// ParseCallback reads the gateway parameters. The gateway's own signature is
// not verified here; see the notify handler.
func ParseCallback(values url.Values) Callback {
	cb := Callback{
		OrderID:     strings.TrimSpace(values.Get(CallbackOrderRef)),
		RawStatus:   strings.TrimSpace(values.Get(CallbackPaymentStatus)),
		Amount:      strings.TrimSpace(values.Get(CallbackAmountGross)),
		Email:       strings.TrimSpace(values.Get(CallbackEmail)),
		PaymentID:   strings.TrimSpace(values.Get(CallbackPaymentID)),
		MerchantRef: strings.TrimSpace(values.Get(CallbackMerchantRef)),
	}
	for _, name := range requiredCallbackFields {
		if strings.TrimSpace(values.Get(name)) == "" {
			cb.Missing = append(cb.Missing, name)
		}
	}
	if status, err := enums.ParsePaymentStatus(strings.ToUpper(cb.RawStatus)); err == nil {
		cb.Status = status
	}
	cb.Valid = len(cb.Missing) == 0
	return cb
}
