package shipping

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/carrier"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRates struct {
	rates []carrier.Rate
	err   error
	calls int
	last  carrier.RateRequest
}

func (s *stubRates) Rates(_ context.Context, req carrier.RateRequest) ([]carrier.Rate, error) {
	s.calls++
	s.last = req
	return s.rates, s.err
}

type countingObserver map[string]int

func (c countingObserver) ObserveRateResolution(source string) { c[source]++ }

func validAddress() Address {
	return Address{
		StreetAddress: "12 Long Street",
		City:          "Cape Town",
		Zone:          "Western Cape",
		Country:       "za",
		PostalCode:    "8001",
	}
}

func warehouse() Address {
	return Address{StreetAddress: "1 Depot Rd", City: "Johannesburg", Zone: "Gauteng", Country: "ZA", PostalCode: "2000"}
}

func newTestResolver(t *testing.T, source RateSource, observer ResolutionObserver) *Resolver {
	t.Helper()
	r, err := NewResolver(source, ResolverConfig{Warehouse: warehouse(), Currency: "ZAR"}, nil, observer)
	require.NoError(t, err)
	return r
}

func money(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestResolveRanksByPriceAndSelectsDefault(t *testing.T) {
	source := &stubRates{rates: []carrier.Rate{
		{ID: "exp", ServiceName: "Express", Price: money("80")},
		{ID: "eco", ServiceName: "Economy", Price: money("50"), Currency: "ZAR"},
		{ID: "ovn", ServiceName: "Overnight", Price: money("80"), Default: true},
	}}
	observer := countingObserver{}
	r := newTestResolver(t, source, observer)

	result, err := r.Resolve(context.Background(), validAddress(), []Parcel{{Description: "Whey", Quantity: 2}}, money("200"))
	require.NoError(t, err)

	ids := []string{}
	for _, opt := range result.Options {
		ids = append(ids, opt.ID)
	}
	assert.Equal(t, []string{"eco", "exp", "ovn"}, ids)
	selected, ok := result.Selected()
	require.True(t, ok)
	assert.Equal(t, "ovn", selected.ID)
	assert.Equal(t, "ZAR", result.Options[1].Currency)
	assert.Empty(t, result.Warning)
	assert.Equal(t, 1, observer[metrics.RateSourceCarrier])

	assert.Equal(t, "ZA", source.last.Delivery.Country)
	assert.Equal(t, "Johannesburg", source.last.Collection.City)
	require.Len(t, source.last.Items, 1)
	assert.Equal(t, defaultParcelWeightKG, source.last.Items[0].Weight)
	assert.True(t, source.last.DeclaredValue.Equal(money("200")))
}

func TestResolveSelectsCheapestWithoutDefault(t *testing.T) {
	source := &stubRates{rates: []carrier.Rate{
		{ID: "b", Price: money("80")},
		{ID: "a", Price: money("50")},
	}}
	r := newTestResolver(t, source, nil)
	result, err := r.Resolve(context.Background(), validAddress(), []Parcel{{Quantity: 1}}, money("100"))
	require.NoError(t, err)
	selected, _ := result.Selected()
	assert.Equal(t, "a", selected.ID)
}

func TestResolveDuplicateCarrierIDsStayDistinct(t *testing.T) {
	source := &stubRates{rates: []carrier.Rate{
		{ID: "std", ServiceName: "Standard", Price: money("50")},
		{ID: "std", ServiceName: "Standard Plus", Price: money("80")},
		{ID: "", ServiceName: "Courier", Price: money("90")},
		{ID: "std", ServiceName: "Standard Max", Price: money("95"), Default: true},
	}}
	r := newTestResolver(t, source, nil)
	result, err := r.Resolve(context.Background(), validAddress(), []Parcel{{Quantity: 1}}, money("100"))
	require.NoError(t, err)

	ids := []string{}
	for _, opt := range result.Options {
		ids = append(ids, opt.ID)
	}
	assert.Equal(t, []string{"std", "std-2", "rate-3", "std-3"}, ids)
	selected, ok := result.Selected()
	require.True(t, ok)
	assert.Equal(t, "std-3", selected.ID)

	set := NewRateSet()
	set.Replace(result)
	require.True(t, set.Select("std"))
	count := 0
	for _, opt := range set.Options() {
		if opt.Selected {
			count++
			assert.Equal(t, "Standard", opt.Name)
		}
	}
	assert.Equal(t, 1, count)
}

func TestResolveCarrierFailureFallsBack(t *testing.T) {
	cases := map[string]*stubRates{
		"network": {err: pkgerrors.Wrap(pkgerrors.CodeNetwork, errors.New("dial tcp"), "carrier request failed")},
		"timeout": {err: pkgerrors.New(pkgerrors.CodeTimeout, "carrier timed out")},
		"empty":   {},
		"invalid": {rates: []carrier.Rate{{ID: "neg", Price: money("-1")}}},
	}
	for name, source := range cases {
		t.Run(name, func(t *testing.T) {
			observer := countingObserver{}
			r := newTestResolver(t, source, observer)
			result, err := r.Resolve(context.Background(), validAddress(), []Parcel{{Quantity: 1}}, money("200"))
			require.NoError(t, err)
			require.Len(t, result.Options, 1)
			assert.True(t, result.Options[0].Selected)
			assert.True(t, result.Options[0].Fallback)
			assert.True(t, result.Options[0].Price.Equal(money("99")))
			assert.NotEmpty(t, result.Warning)
			assert.Equal(t, metrics.RateSourceFallback, result.Source)
			assert.Equal(t, 1, observer[metrics.RateSourceFallback])
		})
	}
}

func TestResolveFallbackFreeAboveThreshold(t *testing.T) {
	r := newTestResolver(t, &stubRates{err: errors.New("boom")}, nil)
	result, err := r.Resolve(context.Background(), validAddress(), []Parcel{{Quantity: 1}}, money("750.00"))
	require.NoError(t, err)
	assert.True(t, result.Options[0].Price.IsZero())
	assert.Equal(t, FreeFallbackName, result.Options[0].Name)
}

func TestResolveValidation(t *testing.T) {
	source := &stubRates{}
	r := newTestResolver(t, source, nil)

	_, err := r.Resolve(context.Background(), Address{Country: "ZA", PostalCode: "80011"}, []Parcel{{Quantity: 1}}, money("1"))
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInvalidAddress, typed.Code())
	fields := typed.Details().(map[string]any)["fields"].(map[string]string)
	for _, key := range []string{"street_address", "city", "zone", "postal_code"} {
		assert.Contains(t, fields, key)
	}
	assert.NotContains(t, fields, "country")

	_, err = r.Resolve(context.Background(), validAddress(), nil, money("1"))
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeEmptyCart))
	_, err = r.Resolve(context.Background(), validAddress(), []Parcel{{Quantity: 0}}, money("1"))
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeEmptyCart))
	assert.Zero(t, source.calls)
}

func TestAddressPostalCodes(t *testing.T) {
	cases := []struct {
		country string
		postal  string
		ok      bool
	}{
		{"ZA", "8001", true},
		{"ZA", "800", false},
		{"ZA", "80 01", true},
		{"GB", "SW1A1AA", true},
		{"US", "12", false},
		{"US", "12345-678", false},
		{"XX", "1234", false},
	}
	for _, tc := range cases {
		addr := validAddress()
		addr.Country = tc.country
		addr.PostalCode = tc.postal
		err := addr.Validate()
		if tc.ok && err != nil {
			t.Fatalf("%s/%s: unexpected error %v", tc.country, tc.postal, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s/%s: expected error", tc.country, tc.postal)
		}
	}
}

func TestParcelsFromCart(t *testing.T) {
	parcels := ParcelsFromCart([]cart.LineItem{{Name: "Whey", Quantity: 2, WeightKG: 1.5}})
	require.Len(t, parcels, 1)
	assert.Equal(t, Parcel{Description: "Whey", Quantity: 2, WeightKG: 1.5}, parcels[0])
}

func TestConfigFrom(t *testing.T) {
	cfg, err := ConfigFrom(config.WarehouseConfig{City: "Durban", Country: "ZA"}, config.ShippingConfig{
		Currency: "ZAR", FallbackFlatPrice: "60", FreeThreshold: "500", DefaultWeightKG: "1.25",
	})
	require.NoError(t, err)
	assert.Equal(t, "Durban", cfg.Warehouse.City)
	assert.Equal(t, 1.25, cfg.DefaultWeightKG)
	opt := cfg.Fallback.Fallback(money("100"), "ZAR")
	assert.True(t, opt.Price.Equal(money("60")))

	_, err = ConfigFrom(config.WarehouseConfig{}, config.ShippingConfig{FallbackFlatPrice: "x"})
	assert.Error(t, err)
}

func TestNewResolverRequiresSource(t *testing.T) {
	_, err := NewResolver(nil, ResolverConfig{}, nil, nil)
	assert.Error(t, err)
}
