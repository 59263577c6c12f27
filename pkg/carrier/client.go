package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
)

const (
	defaultTimeout              = 8 * time.Second
	defaultBreakerFailures      = 5
	defaultBreakerOpenDelay     = 30 * time.Second
	responseBodyReadLimit int64 = 1024
)

// Address is a pickup or delivery location in carrier format.
type Address struct {
	Company       string `json:"company,omitempty"`
	StreetAddress string `json:"streetAddress"`
	LocalArea     string `json:"localArea,omitempty"`
	City          string `json:"city"`
	Zone          string `json:"zone"`
	Country       string `json:"country"`
	PostalCode    string `json:"postalCode"`
}

// Parcel describes one cart line for rating purposes. Dimensions are in cm, weight in kg.
type Parcel struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	Weight      float64 `json:"weight"`
	Length      float64 `json:"length,omitempty"`
	Width       float64 `json:"width,omitempty"`
	Height      float64 `json:"height,omitempty"`
}

// RateRequest is the input to a rate quote.
type RateRequest struct {
	Collection    Address
	Delivery      Address
	Items         []Parcel
	DeclaredValue decimal.Decimal
}

// Rate is one priced delivery service quoted by the carrier.
type Rate struct {
	ID           string
	ServiceName  string
	Description  string
	Price        decimal.Decimal
	Currency     string
	DeliveryTime string
	Default      bool
}

// Client quotes delivery rates through the carrier REST API behind a circuit breaker.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	timeout    time.Duration
	breaker    *gobreaker.CircuitBreaker[[]Rate]
	observe    func(time.Duration)
	now        func() time.Time
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

// WithAPIKey sets the bearer key sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// WithTimeout bounds every quote request.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLatencyObserver receives the duration of every carrier round trip.
func WithLatencyObserver(fn func(time.Duration)) Option {
	return func(c *Client) {
		c.observe = fn
	}
}

// BreakerSettings tunes the circuit breaker wrapped around the rates call.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenDelay           time.Duration
	OnStateChange       func(name string, from, to gobreaker.State)
}

// WithBreaker overrides the default breaker thresholds.
func WithBreaker(settings BreakerSettings) Option {
	return func(c *Client) {
		c.breaker = newBreaker(settings)
	}
}

// NewClient builds a carrier client for baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errors.New("carrier base url is required")
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.breaker == nil {
		client.breaker = newBreaker(BreakerSettings{})
	}
	return client, nil
}

func newBreaker(settings BreakerSettings) *gobreaker.CircuitBreaker[[]Rate] {
	failures := settings.ConsecutiveFailures
	if failures == 0 {
		failures = defaultBreakerFailures
	}
	openDelay := settings.OpenDelay
	if openDelay <= 0 {
		openDelay = defaultBreakerOpenDelay
	}
	return gobreaker.NewCircuitBreaker[[]Rate](gobreaker.Settings{
		Name:        "carrier-rates",
		MaxRequests: 1,
		Timeout:     openDelay,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: settings.OnStateChange,
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

type rateRequestBody struct {
	CollectionAddress Address  `json:"collectionAddress"`
	DeliveryAddress   Address  `json:"deliveryAddress"`
	Items             []Parcel `json:"items"`
	DeclaredValue     float64  `json:"declaredValue"`
}

type rateResponseBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Rates   []struct {
		ID           string          `json:"id"`
		ServiceName  string          `json:"serviceName"`
		Description  string          `json:"description"`
		Price        decimal.Decimal `json:"price"`
		Currency     string          `json:"currency"`
		DeliveryTime string          `json:"deliveryTime"`
		Default      bool            `json:"default"`
	} `json:"rates"`
}

// Rates requests delivery quotes. Transport failures map to TIMEOUT or
// NETWORK_ERROR; carrier-side failures and an open circuit map to DEPENDENCY_ERROR.
func (c *Client) Rates(ctx context.Context, req RateRequest) ([]Rate, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "carrier client not configured")
	}

	rates, err := c.breaker.Execute(func() ([]Rate, error) {
		return c.fetchRates(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "carrier circuit open")
		}
		return nil, err
	}
	return rates, nil
}

// State exposes the breaker position for readiness reporting.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

func (c *Client) fetchRates(ctx context.Context, req RateRequest) ([]Rate, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(rateRequestBody{
		CollectionAddress: req.Collection,
		DeliveryAddress:   req.Delivery,
		Items:             req.Items,
		DeclaredValue:     req.DeclaredValue.InexactFloat64(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal rate request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rates", bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build rate request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	started := c.now()
	resp, err := c.httpClient.Do(httpReq)
	if c.observe != nil {
		c.observe(c.now().Sub(started))
	}
	if err != nil {
		return nil, pkgerrors.FromTransport(err, "execute rate request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "rate request failed")
	}

	var body rateResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if ctx.Err() != nil {
			return nil, pkgerrors.FromTransport(ctx.Err(), "read rate response")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode rate response")
	}
	if !body.Success {
		msg := strings.TrimSpace(body.Error)
		if msg == "" {
			msg = "carrier reported failure"
		}
		return nil, pkgerrors.New(pkgerrors.CodeDependency, msg)
	}
	if len(body.Rates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "carrier returned no rates")
	}

	rates := make([]Rate, 0, len(body.Rates))
	for i, r := range body.Rates {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			id = fmt.Sprintf("rate-%d", i+1)
		}
		rates = append(rates, Rate{
			ID:           id,
			ServiceName:  strings.TrimSpace(r.ServiceName),
			Description:  strings.TrimSpace(r.Description),
			Price:        r.Price,
			Currency:     strings.TrimSpace(r.Currency),
			DeliveryTime: strings.TrimSpace(r.DeliveryTime),
			Default:      r.Default,
		})
	}
	return rates, nil
}
