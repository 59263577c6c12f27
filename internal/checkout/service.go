package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/payment"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/orderapi"
	"github.com/shopspring/decimal"
)

const defaultOrderTimeout = 20 * time.Second

// OrderBackend creates orders and moves them through their lifecycle.
type OrderBackend interface {
	CreateOrder(ctx context.Context, req orderapi.CreateOrderRequest) (*orderapi.Order, error)
	UpdateStatus(ctx context.Context, orderID, status string) (*orderapi.Order, error)
}

// PaymentGateway signs and hands off payment requests.
type PaymentGateway interface {
	BuildRequest(order payment.Order, customer payment.Customer) (*payment.Request, error)
	Submit(ctx context.Context, req *payment.Request) (*payment.SubmitResult, error)
}

// Observer records checkout outcomes per stage.
type Observer interface {
	ObserveCheckout(stage, outcome string)
}

// Settings are the per-deployment checkout knobs.
type Settings struct {
	PaymentMethod string
	PaymentTitle  string
	StoreName     string
	OrderTimeout  time.Duration
}

// Dependencies wires an Orchestrator. Journal, Observer and Logger are optional.
type Dependencies struct {
	Backend  OrderBackend
	Gateway  PaymentGateway
	Journal  Journal
	Observer Observer
	Logger   *logger.Logger
	Settings Settings
}

// PaymentInput selects the order to pay. Zero values default to the created order.
type PaymentInput struct {
	OrderID     string
	OrderNumber string
	Customer    *payment.Customer
	Amount      decimal.Decimal
}

// PaymentResult is what the browser needs to continue to the gateway.
type PaymentResult struct {
	PaymentID   string                `json:"payment_id"`
	RedirectURL string                `json:"redirect_url"`
	Form        *payment.SubmitResult `json:"form"`
}

// ErrorView is the last failure surfaced to the client.
type ErrorView struct {
	Code    pkgerrors.Code `json:"code"`
	Message string         `json:"message"`
}

// Status is a point-in-time view of the orchestrator.
type Status struct {
	State enums.CheckoutState `json:"state"`
	Order *Order              `json:"order,omitempty"`
	Error *ErrorView          `json:"error,omitempty"`
}

// Orchestrator drives one session through order creation and payment hand-off.
// Backend calls run without the lock; the in-flight state rejects overlapping calls.
type Orchestrator struct {
	mu        sync.Mutex
	sessionID string
	deps      Dependencies
	state     enums.CheckoutState
	order     *Order
	customer  payment.Customer
	attempt   *models.CheckoutAttempt
	lastErr   *ErrorView
}

func NewOrchestrator(sessionID string, deps Dependencies) (*Orchestrator, error) {
	if deps.Backend == nil {
		return nil, fmt.Errorf("order backend required")
	}
	if deps.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Settings.OrderTimeout <= 0 {
		deps.Settings.OrderTimeout = defaultOrderTimeout
	}
	if deps.Settings.PaymentMethod == "" {
		deps.Settings.PaymentMethod = string(enums.PaymentMethodPayFast)
	}
	if deps.Settings.PaymentTitle == "" {
		deps.Settings.PaymentTitle = "PayFast"
	}
	return &Orchestrator{
		sessionID: sessionID,
		deps:      deps,
		state:     enums.CheckoutStateIdle,
	}, nil
}

// CreateOrder submits a new backend order built from a snapshot of items, the
// form and the selected shipping option. A nil option ships free.
func (o *Orchestrator) CreateOrder(ctx context.Context, items []cart.LineItem, form Form, option *shipping.Option) (*Order, error) {
	if err := form.Validate(); err != nil {
		o.recordRejection(err)
		return nil, err
	}
	if len(items) == 0 {
		err := pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		o.recordRejection(err)
		return nil, err
	}

	snapshot := copyItems(items)
	line := shippingLineFor(option)
	subtotal, count := cart.Totals(snapshot)
	grand := subtotal.Add(line.Price)

	o.mu.Lock()
	if o.state.InFlight() {
		o.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout already in progress").
			WithDetails(map[string]any{"state": o.state})
	}
	if !o.state.CanTransitionTo(enums.CheckoutStateOrderCreating) {
		state := o.state
		o.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot create order now").
			WithDetails(map[string]any{"state": state})
	}
	o.state = enums.CheckoutStateOrderCreating
	o.lastErr = nil
	o.order = nil
	o.customer = form.Customer()
	attempt := &models.CheckoutAttempt{
		SessionID:      o.sessionID,
		State:          enums.CheckoutStateOrderCreating,
		ItemCount:      count,
		Subtotal:       subtotal,
		ShippingTotal:  line.Price,
		GrandTotal:     grand,
		ShippingOption: optionalString(line.ID),
	}
	o.attempt = attempt
	o.mu.Unlock()

	o.journal(ctx, "start checkout attempt", func(j Journal) error { return j.StartAttempt(ctx, attempt) })

	req := buildOrderRequest(snapshot, form, line, o.deps.Settings)
	callCtx, cancel := context.WithTimeout(ctx, o.deps.Settings.OrderTimeout)
	created, err := o.deps.Backend.CreateOrder(callCtx, req)
	cancel()
	if err != nil {
		failure := orderFailure(err)
		o.fail(ctx, metrics.StageOrder, failure)
		return nil, failure
	}

	order := &Order{
		ID:            created.ID,
		Number:        created.Number,
		Status:        enums.OrderStatusPending,
		Billing:       req.Billing,
		Shipping:      req.Shipping,
		Items:         snapshot,
		ShippingLine:  line,
		Subtotal:      subtotal,
		ShippingTotal: line.Price,
		GrandTotal:    grand,
		PaymentMethod: req.PaymentMethod,
		CustomerNote:  req.CustomerNote,
	}
	if order.Number == "" {
		order.Number = order.ID
	}
	if status, perr := enums.ParseOrderStatus(created.Status); perr == nil {
		order.Status = status
	}

	o.mu.Lock()
	o.state = enums.CheckoutStateOrderCreated
	o.order = order
	attempt.State = o.state
	attempt.OrderID = optionalString(order.ID)
	attempt.OrderNumber = optionalString(order.Number)
	o.mu.Unlock()

	o.observe(metrics.StageOrder, "ok")
	o.journal(ctx, "update checkout attempt", func(j Journal) error { return j.UpdateAttempt(ctx, attempt) })

	logCtx := o.deps.Logger.WithOrderID(ctx, order.ID)
	o.deps.Logger.Info(logCtx, "order created")
	return cloneOrder(order), nil
}

// ProcessPayment signs a fresh payment request for the created order, renders
// the gateway hand-off and marks the order as processing. The cart is left alone.
func (o *Orchestrator) ProcessPayment(ctx context.Context, input PaymentInput) (*PaymentResult, error) {
	o.mu.Lock()
	if o.state.InFlight() {
		o.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout already in progress")
	}
	if o.order == nil || !o.state.CanTransitionTo(enums.CheckoutStatePaymentStarting) {
		state := o.state
		o.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no order awaiting payment").
			WithDetails(map[string]any{"state": state})
	}
	order := o.order
	if input.OrderID != "" && input.OrderID != order.ID {
		o.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
			WithDetails(map[string]any{"orderId": input.OrderID})
	}
	customer := o.customer
	if input.Customer != nil {
		customer = *input.Customer
	}
	amount := order.GrandTotal
	if input.Amount.IsPositive() {
		amount = input.Amount
	}
	number := order.Number
	if input.OrderNumber != "" {
		number = input.OrderNumber
	}
	o.state = enums.CheckoutStatePaymentStarting
	o.lastErr = nil
	attempt := o.attempt
	o.mu.Unlock()

	req, err := o.deps.Gateway.BuildRequest(payment.Order{
		ID:          order.ID,
		Number:      number,
		Amount:      amount,
		Description: describeItems(order.Items),
	}, customer)
	if err != nil {
		failure := paymentFailure(err, "build payment request")
		o.fail(ctx, metrics.StagePayment, failure)
		return nil, failure
	}

	submitted, err := o.deps.Gateway.Submit(ctx, req)
	if err != nil {
		failure := paymentFailure(err, "submit payment request")
		o.fail(ctx, metrics.StagePayment, failure)
		return nil, failure
	}

	o.journal(ctx, "record payment request", func(j Journal) error {
		fields, merr := json.Marshal(req.Fields)
		if merr != nil {
			return merr
		}
		record := &models.PaymentRequest{
			OrderID:    req.OrderID,
			PaymentRef: req.PaymentID,
			Amount:     req.Amount,
			Fields:     string(fields),
			Signature:  req.Signature,
		}
		if attempt != nil {
			id := attempt.ID
			record.AttemptID = &id
		}
		return j.RecordPaymentRequest(ctx, record)
	})

	callCtx, cancel := context.WithTimeout(ctx, o.deps.Settings.OrderTimeout)
	_, err = o.deps.Backend.UpdateStatus(callCtx, order.ID, string(enums.OrderStatusProcessing))
	cancel()
	if err != nil {
		failure := paymentFailure(err, "mark order processing")
		o.fail(ctx, metrics.StagePayment, failure)
		return nil, failure
	}

	o.mu.Lock()
	o.state = enums.CheckoutStatePaymentRedirected
	o.order.Status = enums.OrderStatusProcessing
	if attempt != nil {
		attempt.State = o.state
	}
	o.mu.Unlock()

	o.observe(metrics.StagePayment, "ok")
	if attempt != nil {
		o.journal(ctx, "update checkout attempt", func(j Journal) error { return j.UpdateAttempt(ctx, attempt) })
	}

	return &PaymentResult{
		PaymentID:   submitted.PaymentID,
		RedirectURL: submitted.ProcessURL,
		Form:        submitted,
	}, nil
}

// Status reports the current state, order and last error.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	status := Status{State: o.state, Order: cloneOrder(o.order)}
	if o.lastErr != nil {
		view := *o.lastErr
		status.Error = &view
	}
	return status
}

// State returns the current machine position.
func (o *Orchestrator) State() enums.CheckoutState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Order returns the created order, if any.
func (o *Orchestrator) Order() *Order {
	o.mu.Lock()
	defer o.mu.Unlock()
	return cloneOrder(o.order)
}

func (o *Orchestrator) fail(ctx context.Context, stage string, failure *pkgerrors.Error) {
	o.mu.Lock()
	o.state = enums.CheckoutStateFailed
	o.lastErr = &ErrorView{Code: failure.Code(), Message: failure.Message()}
	attempt := o.attempt
	if attempt != nil {
		attempt.State = o.state
		code := string(failure.Code())
		msg := failure.Message()
		attempt.FailureCode = &code
		attempt.FailureMessage = &msg
	}
	o.mu.Unlock()

	o.observe(stage, string(failure.Code()))
	logCtx := o.deps.Logger.WithFields(ctx, map[string]any{
		"stage":      stage,
		"error_code": string(failure.Code()),
	})
	o.deps.Logger.Error(logCtx, "checkout step failed", failure)
	if attempt != nil {
		o.journal(ctx, "update checkout attempt", func(j Journal) error { return j.UpdateAttempt(ctx, attempt) })
	}
}

func (o *Orchestrator) recordRejection(err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		return
	}
	o.mu.Lock()
	o.lastErr = &ErrorView{Code: typed.Code(), Message: typed.Message()}
	o.mu.Unlock()
	o.observe(metrics.StageOrder, string(typed.Code()))
}

func (o *Orchestrator) observe(stage, outcome string) {
	if o.deps.Observer != nil {
		o.deps.Observer.ObserveCheckout(stage, outcome)
	}
}

// journal runs fn against the journal when one is configured. Failures are logged only.
func (o *Orchestrator) journal(ctx context.Context, action string, fn func(Journal) error) {
	if o.deps.Journal == nil {
		return
	}
	if err := fn(o.deps.Journal); err != nil {
		logCtx := o.deps.Logger.WithFields(ctx, map[string]any{"action": action, "session_id": o.sessionID})
		o.deps.Logger.Warn(logCtx, "checkout journal write failed: "+err.Error())
	}
}

func orderFailure(err error) *pkgerrors.Error {
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeTimeout, pkgerrors.CodeNetwork, pkgerrors.CodeOrderCreationFailed:
		return pkgerrors.As(err)
	}
	if ctxErr := pkgerrors.FromTransport(err, "order backend unavailable"); ctxErr != nil && ctxErr.Code() == pkgerrors.CodeTimeout {
		return ctxErr
	}
	return pkgerrors.Wrap(pkgerrors.CodeOrderCreationFailed, err, "order creation failed")
}

func paymentFailure(err error, action string) *pkgerrors.Error {
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeTimeout, pkgerrors.CodeNetwork, pkgerrors.CodePaymentFailed:
		return pkgerrors.As(err)
	}
	return pkgerrors.Wrap(pkgerrors.CodePaymentFailed, err, action)
}

func describeItems(items []cart.LineItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%d x %s", item.Quantity, item.Name))
	}
	return strings.Join(parts, ", ")
}

func cloneOrder(order *Order) *Order {
	if order == nil {
		return nil
	}
	out := *order
	out.Items = copyItems(order.Items)
	return &out
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
