package carrier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": {"application/json"}},
	}
}

func testRequest() RateRequest {
	return RateRequest{
		Collection:    Address{StreetAddress: "1 Depot Rd", City: "Cape Town", Zone: "WC", Country: "ZA", PostalCode: "8001"},
		Delivery:      Address{StreetAddress: "5 Main St", City: "Durban", Zone: "KZN", Country: "ZA", PostalCode: "4001"},
		Items:         []Parcel{{Description: "Whey 1kg", Quantity: 2, Weight: 1}},
		DeclaredValue: decimal.RequireFromString("200.00"),
	}
}

func TestRatesSendsRequestAndMapsResponse(t *testing.T) {
	t.Parallel()

	observed := false
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.String() != "http://carrier.test/api/rates" {
			t.Fatalf("unexpected url %s", req.URL)
		}
		if req.Header.Get("Authorization") != "Bearer key-1" {
			t.Fatalf("missing bearer header")
		}
		var body map[string]any
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["declaredValue"] != 200.0 {
			t.Fatalf("unexpected declared value %v", body["declaredValue"])
		}
		delivery := body["deliveryAddress"].(map[string]any)
		if delivery["postalCode"] != "4001" {
			t.Fatalf("unexpected delivery address %v", delivery)
		}
		return jsonResponse(http.StatusOK, `{"success":true,"rates":[
			{"id":"eco","serviceName":"Economy","price":80,"currency":"ZAR","deliveryTime":"3-5 days"},
			{"serviceName":"Express","price":"50.00","currency":"ZAR","default":true}]}`), nil
	})

	client, err := NewClient("http://carrier.test/api/",
		WithHTTPClient(&http.Client{Transport: rt}),
		WithAPIKey("key-1"),
		WithLatencyObserver(func(time.Duration) { observed = true }),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	rates, err := client.Rates(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("rates: %v", err)
	}
	if len(rates) != 2 {
		t.Fatalf("expected 2 rates, got %d", len(rates))
	}
	if rates[0].ID != "eco" || !rates[0].Price.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("unexpected first rate %+v", rates[0])
	}
	if rates[1].ID != "rate-2" || !rates[1].Default || !rates[1].Price.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unexpected second rate %+v", rates[1])
	}
	if !observed {
		t.Fatalf("latency observer not called")
	}
}

func TestRatesClassifiesFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rt   roundTripFunc
		code pkgerrors.Code
	}{
		{
			name: "non 2xx",
			rt: func(*http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusBadGateway, `upstream down`), nil
			},
			code: pkgerrors.CodeDependency,
		},
		{
			name: "success false",
			rt: func(*http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `{"success":false,"error":"zone not serviced"}`), nil
			},
			code: pkgerrors.CodeDependency,
		},
		{
			name: "empty list",
			rt: func(*http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `{"success":true,"rates":[]}`), nil
			},
			code: pkgerrors.CodeDependency,
		},
		{
			name: "transport",
			rt: func(*http.Request) (*http.Response, error) {
				return nil, errors.New("connection refused")
			},
			code: pkgerrors.CodeNetwork,
		},
		{
			name: "deadline",
			rt: func(req *http.Request) (*http.Response, error) {
				<-req.Context().Done()
				return nil, req.Context().Err()
			},
			code: pkgerrors.CodeTimeout,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			client, err := NewClient("http://carrier.test",
				WithHTTPClient(&http.Client{Transport: tc.rt}),
				WithTimeout(20*time.Millisecond),
			)
			if err != nil {
				t.Fatalf("new client: %v", err)
			}
			_, err = client.Rates(context.Background(), testRequest())
			if code := pkgerrors.CodeOf(err); code != tc.code {
				t.Fatalf("expected %s, got %s (%v)", tc.code, code, err)
			}
		})
	}
}

func TestRatesOpensCircuitAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		calls++
		return nil, errors.New("connection reset")
	})
	client, err := NewClient("http://carrier.test",
		WithHTTPClient(&http.Client{Transport: rt}),
		WithBreaker(BreakerSettings{ConsecutiveFailures: 2, OpenDelay: time.Minute}),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := client.Rates(context.Background(), testRequest()); err == nil {
			t.Fatalf("expected failure %d", i)
		}
	}
	if client.State() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", client.State())
	}

	_, err = client.Rates(context.Background(), testRequest())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open state error, got %v", err)
	}
	if pkgerrors.CodeOf(err) != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency code, got %s", pkgerrors.CodeOf(err))
	}
	if calls != 2 {
		t.Fatalf("open breaker should short-circuit, calls=%d", calls)
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	t.Parallel()

	if _, err := NewClient("  "); err == nil {
		t.Fatalf("expected base url error")
	}
}
