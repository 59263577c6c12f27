package payment

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/payfast"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ReturnPath = "/api/v1/payments/return"
	CancelPath = "/api/v1/payments/cancel"
	NotifyPath = "/api/v1/payments/notify"

	maxItemNameLen = 100
)

// Config holds merchant credentials and callback targets.
type Config struct {
	MerchantID  string
	MerchantKey string
	Passphrase  string
	ProcessURL  string
	ReturnURL   string
	CancelURL   string
	NotifyURL   string
	StoreName   string
}

// ConfigFrom fills callback URLs from baseURL when they are not configured explicitly.
func ConfigFrom(cfg config.PayFastConfig, storeName, baseURL string) Config {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	pick := func(explicit, path string) string {
		if strings.TrimSpace(explicit) != "" {
			return explicit
		}
		if base == "" {
			return ""
		}
		return base + path
	}
	return Config{
		MerchantID:  cfg.MerchantID,
		MerchantKey: cfg.MerchantKey,
		Passphrase:  cfg.Passphrase,
		ProcessURL:  cfg.ProcessURL(),
		ReturnURL:   pick(cfg.ReturnURL, ReturnPath),
		CancelURL:   pick(cfg.CancelURL, CancelPath),
		NotifyURL:   pick(cfg.NotifyURL, NotifyPath),
		StoreName:   storeName,
	}
}

// Order is what the gateway needs to know about the order being paid.
type Order struct {
	ID          string
	Number      string
	Amount      decimal.Decimal
	Description string
}

// Customer is the payer.
type Customer struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// Request is a signed gateway form for one payment attempt.
type Request struct {
	PaymentID string
	OrderID   string
	Amount    decimal.Decimal
	Fields    payfast.Fields
	Signature string
}

// SubmitResult is handed to the browser, which posts Fields to ProcessURL.
type SubmitResult struct {
	PaymentID  string          `json:"payment_id"`
	ProcessURL string          `json:"redirect_url"`
	Fields     []payfast.Field `json:"fields"`
	HTML       string          `json:"form_html"`
}

type Adapter struct {
	cfg   Config
	newID func() string
}

type Option func(*Adapter)

// WithPaymentIDs overrides the m_payment_id generator.
func WithPaymentIDs(fn func() string) Option {
	return func(a *Adapter) {
		if fn != nil {
			a.newID = fn
		}
	}
}

func NewAdapter(cfg Config, opts ...Option) (*Adapter, error) {
	if strings.TrimSpace(cfg.MerchantID) == "" || strings.TrimSpace(cfg.MerchantKey) == "" {
		return nil, fmt.Errorf("merchant credentials required")
	}
	if _, err := url.ParseRequestURI(cfg.ProcessURL); err != nil {
		return nil, fmt.Errorf("invalid process url: %w", err)
	}
	a := &Adapter{cfg: cfg, newID: uuid.NewString}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// BuildRequest assembles and signs the gateway fields. Field order is significant.
func (a *Adapter) BuildRequest(order Order, customer Customer) (*Request, error) {
	if strings.TrimSpace(order.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodePaymentFailed, "order id is required")
	}
	if !order.Amount.Round(2).IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodePaymentFailed, "payment amount must be positive").
			WithDetails(map[string]any{"amount": order.Amount.StringFixed(2)})
	}

	paymentID := a.newID()
	amount := order.Amount.Round(2)

	var fields payfast.Fields
	fields.Set(payfast.FieldMerchantID, a.cfg.MerchantID)
	fields.Set(payfast.FieldMerchantKey, a.cfg.MerchantKey)
	fields.Set(payfast.FieldReturnURL, a.cfg.ReturnURL)
	fields.Set(payfast.FieldCancelURL, a.cfg.CancelURL)
	fields.Set(payfast.FieldNotifyURL, a.cfg.NotifyURL)
	fields.Set(payfast.FieldNameFirst, strings.TrimSpace(customer.FirstName))
	fields.Set(payfast.FieldNameLast, strings.TrimSpace(customer.LastName))
	fields.Set(payfast.FieldEmailAddress, strings.TrimSpace(customer.Email))
	fields.Set(payfast.FieldCellNumber, normalizePhone(customer.Phone))
	fields.Set(payfast.FieldPaymentID, paymentID)
	fields.Set(payfast.FieldAmount, amount.StringFixed(2))
	fields.Set(payfast.FieldItemName, a.itemName(order))
	fields.Set(payfast.FieldItemDescription, truncate(order.Description, 255))
	fields.Set(payfast.FieldCustomStr1, order.ID)
	signature := payfast.SignInto(&fields, a.cfg.Passphrase)

	return &Request{
		PaymentID: paymentID,
		OrderID:   order.ID,
		Amount:    amount,
		Fields:    fields,
		Signature: signature,
	}, nil
}

func (a *Adapter) itemName(order Order) string {
	ref := order.Number
	if ref == "" {
		ref = order.ID
	}
	name := fmt.Sprintf("Order #%s", ref)
	if store := strings.TrimSpace(a.cfg.StoreName); store != "" {
		name = store + " " + name
	}
	return truncate(name, maxItemNameLen)
}

// Submit renders the auto-posting form for req. No network call is made; the
// browser performs the redirect.
func (a *Adapter) Submit(ctx context.Context, req *Request) (*SubmitResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, pkgerrors.FromTransport(err, "payment submission cancelled")
	}
	if req == nil {
		return nil, pkgerrors.New(pkgerrors.CodePaymentFailed, "payment request missing")
	}
	for _, name := range []string{payfast.FieldMerchantID, payfast.FieldMerchantKey, payfast.FieldSignature} {
		if v, _ := req.Fields.Get(name); strings.TrimSpace(v) == "" {
			return nil, pkgerrors.New(pkgerrors.CodePaymentFailed, "payment request incomplete").
				WithDetails(map[string]any{"field": name})
		}
	}
	if !req.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodePaymentFailed, "payment amount must be positive")
	}

	var buf bytes.Buffer
	if err := formTemplate.Execute(&buf, formData{Action: a.cfg.ProcessURL, Fields: req.Fields.List()}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePaymentFailed, err, "render payment form")
	}
	return &SubmitResult{
		PaymentID:  req.PaymentID,
		ProcessURL: a.cfg.ProcessURL,
		Fields:     req.Fields.List(),
		HTML:       buf.String(),
	}, nil
}

// InterpretCallback reads a return, cancel or notify call.
// The gateway signature on callbacks is not verified.
func (a *Adapter) InterpretCallback(values url.Values) payfast.Callback {
	return payfast.ParseCallback(values)
}

func normalizePhone(phone string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
}

func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
