package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/payment"
	sfsession "github.com/angelmondragon/storefront-backend/internal/session"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/pkg/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/orderapi"
	"github.com/angelmondragon/storefront-backend/pkg/payfast"
)

type stubInterpreter struct{}

func (stubInterpreter) InterpretCallback(values url.Values) payfast.Callback {
	return payfast.ParseCallback(values)
}

type countingObserver struct {
	kinds []string
}

func (c *countingObserver) ObserveCallback(kind, status string) {
	c.kinds = append(c.kinds, kind+":"+status)
}

type failingJournal struct{ calls int }

func (f *failingJournal) RecordCallback(context.Context, *models.PaymentCallback) error {
	f.calls++
	return errors.New("db down")
}

type fixedBackend struct{ orderID string }

func (f fixedBackend) CreateOrder(context.Context, orderapi.CreateOrderRequest) (*orderapi.Order, error) {
	return &orderapi.Order{ID: f.orderID, Number: f.orderID, Status: "pending"}, nil
}

func (f fixedBackend) UpdateStatus(_ context.Context, orderID, status string) (*orderapi.Order, error) {
	return &orderapi.Order{ID: orderID, Status: status}, nil
}

type unusedGateway struct{}

func (unusedGateway) BuildRequest(payment.Order, payment.Customer) (*payment.Request, error) {
	return nil, errors.New("not used")
}

func (unusedGateway) Submit(context.Context, *payment.Request) (*payment.SubmitResult, error) {
	return nil, errors.New("not used")
}

// sessionWithOrder returns a session holding one cart line whose checkout
// created orderID.
func sessionWithOrder(t *testing.T, id, orderID string) *sfsession.Session {
	t.Helper()
	ctx := context.Background()
	c, err := cart.Hydrate(ctx, id, cart.NewMemoryStore())
	if err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if err := c.Add(ctx, cart.Product{ID: "A", Name: "Whey", Price: decimal.NewFromInt(100), StockStatus: enums.StockStatusInStock}, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	o, err := checkout.NewOrchestrator(id, checkout.Dependencies{Backend: fixedBackend{orderID: orderID}, Gateway: unusedGateway{}})
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}
	form := checkout.Form{
		FirstName: "Thandi", LastName: "Nkosi", Email: "thandi@example.com", Phone: "0821234567",
		StreetAddress: "12 Long Street", City: "Cape Town", Zone: "Western Cape", PostalCode: "8001", Country: "ZA",
	}
	if _, err := o.CreateOrder(ctx, c.Items(), form, nil); err != nil {
		t.Fatalf("create order: %v", err)
	}
	return &sfsession.Session{ID: id, Cart: c, Checkout: o}
}

func TestHealthReadyReportsComponents(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("down") }

	rec := httptest.NewRecorder()
	HealthReady(cfg, nil,
		ReadinessCheck{Name: "redis", Check: ok},
		ReadinessCheck{Name: "carrier", Optional: true, Check: down},
	)(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("optional failure should not fail readiness, got %d", rec.Code)
	}
	var body struct {
		Data struct {
			Status     string            `json:"status"`
			Components map[string]string `json:"components"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Status != "degraded" || body.Data.Components["carrier"] != "degraded" {
		t.Fatalf("unexpected body %+v", body.Data)
	}
	if rec.Header().Get(envHeader) != "test" {
		t.Fatalf("missing env header")
	}

	rec = httptest.NewRecorder()
	HealthReady(cfg, nil, ReadinessCheck{Name: "database", Check: down})(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("required failure should be 503, got %d", rec.Code)
	}
}

func TestCartProductParsesWeight(t *testing.T) {
	stock := 4
	p := CartProduct(catalog.Product{
		ID:            "42",
		Name:          "Creatine",
		Price:         decimal.RequireFromString("299.90"),
		StockStatus:   enums.StockStatusInStock,
		StockQuantity: &stock,
		Images:        []catalog.Image{{Src: "https://img.example/42.jpg"}},
		Weight:        " 0.75 ",
	})
	if p.WeightKG != 0.75 || p.Image != "https://img.example/42.jpg" || *p.StockQuantity != 4 {
		t.Fatalf("unexpected mapping %+v", p)
	}
	if CartProduct(catalog.Product{ID: "1", Weight: "heavy"}).WeightKG != 0 {
		t.Fatalf("unparseable weight should be zero")
	}
}

func TestWantsHTML(t *testing.T) {
	cases := []struct {
		url    string
		accept string
		want   bool
	}{
		{"/pay?format=html", "", true},
		{"/pay", "text/html,application/xhtml+xml", true},
		{"/pay", "application/json", false},
		{"/pay", "", false},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, tc.url, nil)
		if tc.accept != "" {
			req.Header.Set("Accept", tc.accept)
		}
		if got := wantsHTML(req); got != tc.want {
			t.Fatalf("%s %q: expected %v got %v", tc.url, tc.accept, tc.want, got)
		}
	}
}

func TestPaymentReturnRedirectsAndClearsCart(t *testing.T) {
	sess := sessionWithOrder(t, "s1", "9001")
	c := sess.Cart

	observer := &countingObserver{}
	journal := &failingJournal{}
	handler := PaymentReturn(PaymentCallbacks{
		Interpreter: stubInterpreter{},
		Journal:     journal,
		Observer:    observer,
		LandingURL:  "https://shop.example/",
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/return?custom_str1=9001", nil)
	req = req.WithContext(middleware.WithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://shop.example/checkout/success?order_id=9001" {
		t.Fatalf("unexpected location %q", loc)
	}
	if !c.IsEmpty() {
		t.Fatalf("return landing should clear the cart")
	}
	if journal.calls != 1 {
		t.Fatalf("journal failure should still be attempted once, got %d", journal.calls)
	}
	if len(observer.kinds) != 1 || observer.kinds[0] != "return:unknown" {
		t.Fatalf("unexpected observations %v", observer.kinds)
	}
}

func TestPaymentReturnKeepsCartOnFailedStatus(t *testing.T) {
	sess := sessionWithOrder(t, "s2", "9001")
	c := sess.Cart

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/return?custom_str1=9001&payment_status=FAILED&amount_gross=1&email_address=a%40b.co", nil)
	req = req.WithContext(middleware.WithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	PaymentReturn(PaymentCallbacks{Interpreter: stubInterpreter{}})(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected JSON landing, got %d", rec.Code)
	}
	if c.IsEmpty() {
		t.Fatalf("failed payment must keep the cart")
	}
}

func TestPaymentReturnKeepsCartForForeignOrder(t *testing.T) {
	cases := []struct {
		name  string
		query string
	}{
		{"no order reference", ""},
		{"other order", "?custom_str1=1234"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sess := sessionWithOrder(t, "s4", "9001")
			req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/return"+tc.query, nil)
			req = req.WithContext(middleware.WithSession(req.Context(), sess))
			rec := httptest.NewRecorder()
			PaymentReturn(PaymentCallbacks{Interpreter: stubInterpreter{}})(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected JSON landing, got %d", rec.Code)
			}
			if sess.Cart.IsEmpty() {
				t.Fatal("cart must survive a landing for an order this session did not create")
			}
		})
	}

	c, err := cart.Hydrate(context.Background(), "s5", cart.NewMemoryStore())
	if err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if err := c.Add(context.Background(), cart.Product{ID: "A", Name: "Whey", Price: decimal.NewFromInt(100), StockStatus: enums.StockStatusInStock}, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/return?custom_str1=9001", nil)
	req = req.WithContext(middleware.WithSession(req.Context(), &sfsession.Session{ID: "s5", Cart: c}))
	PaymentReturn(PaymentCallbacks{Interpreter: stubInterpreter{}})(httptest.NewRecorder(), req)
	if c.IsEmpty() {
		t.Fatal("cart must survive a landing when the session has no checkout")
	}
}

func TestCartGetWithoutSession(t *testing.T) {
	rec := httptest.NewRecorder()
	CartGet(nil)(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", rec.Code)
	}
}

// gatedResolver blocks resolutions for gateCity until release is closed.
type gatedResolver struct {
	gateCity string
	entered  chan struct{}
	release  chan struct{}
	active   atomic.Int32
	overlap  atomic.Bool
}

func (g *gatedResolver) Resolve(_ context.Context, address shipping.Address, _ []shipping.Parcel, _ decimal.Decimal) (*shipping.Result, error) {
	if g.active.Add(1) > 1 {
		g.overlap.Store(true)
	}
	defer g.active.Add(-1)
	if address.City == g.gateCity {
		close(g.entered)
		<-g.release
	}
	return &shipping.Result{
		Options: []shipping.Option{{ID: strings.ToLower(address.City), Price: decimal.NewFromInt(50), Selected: true}},
		Source:  "carrier",
	}, nil
}

func TestShippingRatesSerializesPerSession(t *testing.T) {
	sess := &sfsession.Session{ID: "s3", Cart: &cart.Cart{}, Rates: shipping.NewRateSet()}
	resolver := &gatedResolver{gateCity: "Durban", entered: make(chan struct{}), release: make(chan struct{})}
	handler := ShippingRates(resolver, nil)

	post := func(city string) *httptest.ResponseRecorder {
		body := `{"street_address":"1 Main Rd","city":"` + city + `","zone":"KZN","country":"ZA","postal_code":"4001"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/shipping/rates", strings.NewReader(body))
		req = req.WithContext(middleware.WithSession(req.Context(), sess))
		rec := httptest.NewRecorder()
		handler(rec, req)
		return rec
	}

	var wg sync.WaitGroup
	codes := make([]int, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		codes[0] = post("Durban").Code
	}()
	<-resolver.entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		codes[1] = post("Pretoria").Code
	}()
	time.Sleep(20 * time.Millisecond)
	close(resolver.release)
	wg.Wait()

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Fatalf("unexpected statuses %v", codes)
	}
	if resolver.overlap.Load() {
		t.Fatal("resolutions for one session overlapped")
	}
	options := sess.Rates.Options()
	if len(options) != 1 || options[0].ID != "pretoria" {
		t.Fatalf("the newer address should own the rate set, got %+v", options)
	}
}
