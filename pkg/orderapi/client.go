package orderapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const (
	defaultTimeout              = 20 * time.Second
	responseBodyReadLimit int64 = 4096
)

// Address is the backend's billing/shipping address shape.
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company,omitempty"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type LineItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name,omitempty"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price,omitempty"`
}

type ShippingLine struct {
	MethodID    string `json:"method_id"`
	MethodTitle string `json:"method_title"`
	Total       string `json:"total"`
}

// CreateOrderRequest is posted to the orders collection.
type CreateOrderRequest struct {
	PaymentMethod      string         `json:"payment_method"`
	PaymentMethodTitle string         `json:"payment_method_title"`
	SetPaid            bool           `json:"set_paid"`
	Status             string         `json:"status,omitempty"`
	Billing            Address        `json:"billing"`
	Shipping           Address        `json:"shipping"`
	LineItems          []LineItem     `json:"line_items"`
	ShippingLines      []ShippingLine `json:"shipping_lines"`
	CustomerNote       string         `json:"customer_note,omitempty"`
}

// Order is the subset of the backend order the storefront reads back.
type Order struct {
	ID            string
	Number        string
	Status        string
	Currency      string
	Total         string
	ShippingTotal string
}

type orderResponse struct {
	ID            json.Number `json:"id"`
	Number        string      `json:"number"`
	Status        string      `json:"status"`
	Currency      string      `json:"currency"`
	Total         string      `json:"total"`
	ShippingTotal string      `json:"shipping_total"`
}

type backendError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client talks to the order backend REST API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	consumerKey    string
	consumerSecret string
	timeout        time.Duration
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithCredentials sets the basic-auth consumer key pair.
func WithCredentials(key, secret string) Option {
	return func(c *Client) {
		c.consumerKey = strings.TrimSpace(key)
		c.consumerSecret = strings.TrimSpace(secret)
	}
}

// WithTimeout bounds each backend call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewClient builds an order backend client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errors.New("order api base url is required")
	}
	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// CreateOrder submits a new order. A rejected request maps to
// ORDER_CREATION_FAILED carrying the backend's message.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order api client not configured")
	}
	var resp orderResponse
	if err := c.do(ctx, http.MethodPost, "orders", req, &resp, pkgerrors.CodeOrderCreationFailed); err != nil {
		return nil, err
	}
	order := resp.toOrder()
	if order.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeOrderCreationFailed, "backend returned an order without id")
	}
	return order, nil
}

// UpdateStatus moves an existing order to status.
func (c *Client) UpdateStatus(ctx context.Context, orderID, status string) (*Order, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order api client not configured")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	var resp orderResponse
	body := map[string]string{"status": status}
	if err := c.do(ctx, http.MethodPut, "orders/"+url.PathEscape(orderID), body, &resp, pkgerrors.CodeDependency); err != nil {
		return nil, err
	}
	return resp.toOrder(), nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, rejectCode pkgerrors.Code) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(in)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal order request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+path, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build order request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.consumerKey != "" {
		httpReq.SetBasicAuth(c.consumerKey, c.consumerSecret)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.FromTransport(err, fmt.Sprintf("%s %s", method, path))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		message := backendMessage(raw)
		if message == "" {
			message = fmt.Sprintf("order backend returned status %d", resp.StatusCode)
		}
		return pkgerrors.New(rejectCode, message).WithDetails(map[string]any{"status": resp.StatusCode})
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return pkgerrors.FromTransport(ctx.Err(), "read order response")
		}
		return pkgerrors.Wrap(rejectCode, err, "decode order response")
	}
	return nil
}

func backendMessage(raw []byte) string {
	var be backendError
	if err := json.Unmarshal(raw, &be); err == nil && strings.TrimSpace(be.Message) != "" {
		return strings.TrimSpace(be.Message)
	}
	return strings.TrimSpace(string(raw))
}

func (r orderResponse) toOrder() *Order {
	id := r.ID.String()
	number := strings.TrimSpace(r.Number)
	if number == "" {
		number = id
	}
	return &Order{
		ID:            id,
		Number:        number,
		Status:        r.Status,
		Currency:      r.Currency,
		Total:         r.Total,
		ShippingTotal: r.ShippingTotal,
	}
}

