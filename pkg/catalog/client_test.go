package catalog

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func TestSearchBuildsQueryAndMapsProducts(t *testing.T) {
	t.Parallel()

	var captured string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		captured = req.URL.String()
		return respond(http.StatusOK, `[
			{"id":12,"name":"Whey Protein","price":"100.00","stock_status":"instock","stock_quantity":5,
			 "categories":[{"id":1,"name":"Protein"}],"brands":[{"id":3,"name":"Acme"}],
			 "images":[{"src":"https://cdn.test/whey.png"}],"short_description":"Fast","description":"Long"},
			{"id":13,"name":"Variable Pack","price":"","stock_status":"outofstock","stock_quantity":null}
		]`), nil
	})

	client, err := NewClient("http://catalog.test/wc/v3", WithHTTPClient(&http.Client{Transport: rt}), WithPageSize(20))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	products, err := client.Search(context.Background(), " whey ", 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if captured != "http://catalog.test/wc/v3/products?page=1&per_page=20&search=whey" {
		t.Fatalf("unexpected url %s", captured)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	first := products[0]
	if first.ID != "12" || !first.Price.Equal(decimal.NewFromInt(100)) || first.PrimaryImage() != "https://cdn.test/whey.png" {
		t.Fatalf("unexpected first product %+v", first)
	}
	if first.StockQuantity == nil || *first.StockQuantity != 5 {
		t.Fatalf("stock quantity not mapped")
	}
	second := products[1]
	if !second.Price.IsZero() || second.StockStatus != enums.StockStatusOutOfStock || second.StockQuantity != nil {
		t.Fatalf("unexpected second product %+v", second)
	}
}

func TestProductNotFound(t *testing.T) {
	t.Parallel()

	client, err := NewClient("http://catalog.test", WithHTTPClient(&http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return respond(http.StatusNotFound, `{"code":"woocommerce_rest_product_invalid_id"}`), nil
	})}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Product(context.Background(), "99"); pkgerrors.CodeOf(err) != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := client.Product(context.Background(), ""); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCategoriesAndBrands(t *testing.T) {
	t.Parallel()

	client, err := NewClient("http://catalog.test", WithCredentials("ck", "cs"), WithHTTPClient(&http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if _, _, ok := req.BasicAuth(); !ok {
			t.Fatalf("expected basic auth")
		}
		switch req.URL.Path {
		case "/products/categories":
			return respond(http.StatusOK, `[{"id":1,"name":"Protein","slug":"protein"}]`), nil
		case "/products/brands":
			return respond(http.StatusOK, `[{"id":3,"name":"Acme"}]`), nil
		}
		return respond(http.StatusNotFound, ``), nil
	})}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	categories, err := client.Categories(context.Background())
	if err != nil || len(categories) != 1 || categories[0].Slug != "protein" {
		t.Fatalf("unexpected categories %+v err=%v", categories, err)
	}
	brands, err := client.Brands(context.Background())
	if err != nil || len(brands) != 1 || brands[0].Name != "Acme" {
		t.Fatalf("unexpected brands %+v err=%v", brands, err)
	}
}

func TestParsePrice(t *testing.T) {
	t.Parallel()

	cases := map[string]string{`"19.99"`: "19.99", `42`: "42", `""`: "0", `null`: "0", `"n/a"`: "0"}
	for raw, want := range cases {
		if got := parsePrice([]byte(raw)); !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("parsePrice(%s) = %s, want %s", raw, got, want)
		}
	}
}
