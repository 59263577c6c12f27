package shipping

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/carrier"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/shopspring/decimal"
)

const defaultParcelWeightKG = 0.5

// RateSource quotes live delivery rates.
type RateSource interface {
	Rates(ctx context.Context, req carrier.RateRequest) ([]carrier.Rate, error)
}

// ResolutionObserver records where each resolution's options came from.
type ResolutionObserver interface {
	ObserveRateResolution(source string)
}

// Parcel is one cart line as the carrier needs it.
type Parcel struct {
	Description string
	Quantity    int
	WeightKG    float64
}

// Result is the outcome of a resolution. Warning is set when the fallback was used.
type Result struct {
	Options []Option `json:"options"`
	Warning string   `json:"warning,omitempty"`
	Source  string   `json:"source"`
}

// Selected returns the option marked selected.
func (r *Result) Selected() (Option, bool) {
	if r == nil {
		return Option{}, false
	}
	for _, opt := range r.Options {
		if opt.Selected {
			return opt, true
		}
	}
	return Option{}, false
}

// ResolverConfig carries the collection address and pricing defaults.
type ResolverConfig struct {
	Warehouse       Address
	Currency        string
	Fallback        FallbackPolicy
	DefaultWeightKG float64
}

type Resolver struct {
	source   RateSource
	cfg      ResolverConfig
	logg     *logger.Logger
	observer ResolutionObserver
}

func NewResolver(source RateSource, cfg ResolverConfig, logg *logger.Logger, observer ResolutionObserver) (*Resolver, error) {
	if source == nil {
		return nil, fmt.Errorf("rate source required")
	}
	if cfg.Fallback == nil {
		cfg.Fallback = DefaultFallback()
	}
	if strings.TrimSpace(cfg.Currency) == "" {
		cfg.Currency = "ZAR"
	}
	if cfg.DefaultWeightKG <= 0 {
		cfg.DefaultWeightKG = defaultParcelWeightKG
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Resolver{source: source, cfg: cfg, logg: logg, observer: observer}, nil
}

// Resolve quotes delivery for parcels to address. Carrier failures never surface as
// errors: the fallback policy supplies a single selected option and Warning explains why.
func (r *Resolver) Resolve(ctx context.Context, address Address, parcels []Parcel, declaredValue decimal.Decimal) (*Result, error) {
	if err := address.Validate(); err != nil {
		return nil, err
	}
	if countParcels(parcels) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	rates, err := r.source.Rates(ctx, carrier.RateRequest{
		Collection:    r.cfg.Warehouse.toCarrier(),
		Delivery:      address.toCarrier(),
		Items:         r.toCarrierParcels(parcels),
		DeclaredValue: declaredValue,
	})
	if err == nil {
		if options, defaultID := r.optionsFromRates(rates); len(options) > 0 {
			r.observe(metrics.RateSourceCarrier)
			return &Result{Options: rankOptions(options, defaultID), Source: metrics.RateSourceCarrier}, nil
		}
		err = pkgerrors.New(pkgerrors.CodeDependency, "carrier returned no usable rates")
	}

	warnCtx := r.logg.WithFields(ctx, map[string]any{
		"error":      err.Error(),
		"error_code": string(pkgerrors.CodeOf(err)),
	})
	r.logg.Warn(warnCtx, "shipping rates unavailable, using fallback")
	r.observe(metrics.RateSourceFallback)

	fallback := r.cfg.Fallback.Fallback(declaredValue, r.cfg.Currency)
	fallback.Selected = true
	return &Result{
		Options: []Option{fallback},
		Warning: err.Error(),
		Source:  metrics.RateSourceFallback,
	}, nil
}

func (r *Resolver) observe(source string) {
	if r.observer != nil {
		r.observer.ObserveRateResolution(source)
	}
}

func (r *Resolver) toCarrierParcels(parcels []Parcel) []carrier.Parcel {
	out := make([]carrier.Parcel, 0, len(parcels))
	for _, p := range parcels {
		if p.Quantity <= 0 {
			continue
		}
		weight := p.WeightKG
		if weight <= 0 {
			weight = r.cfg.DefaultWeightKG
		}
		out = append(out, carrier.Parcel{
			Description: p.Description,
			Quantity:    p.Quantity,
			Weight:      weight,
		})
	}
	return out
}

func (r *Resolver) optionsFromRates(rates []carrier.Rate) ([]Option, string) {
	options := make([]Option, 0, len(rates))
	seen := make(map[string]int, len(rates))
	defaultID := ""
	for i, rate := range rates {
		if rate.Price.IsNegative() {
			continue
		}
		id := uniqueOptionID(seen, strings.TrimSpace(rate.ID), i)
		currency := rate.Currency
		if currency == "" {
			currency = r.cfg.Currency
		}
		options = append(options, Option{
			ID:           id,
			Name:         rate.ServiceName,
			Description:  rate.Description,
			Price:        rate.Price,
			Currency:     currency,
			DeliveryTime: rate.DeliveryTime,
		})
		if rate.Default && defaultID == "" {
			defaultID = id
		}
	}
	return options, defaultID
}

// uniqueOptionID suffixes repeated carrier ids (-2, -3, ...) so selection by id
// always matches exactly one option.
func uniqueOptionID(seen map[string]int, id string, index int) string {
	if id == "" {
		id = fmt.Sprintf("rate-%d", index+1)
	}
	candidate := id
	for seen[candidate] > 0 {
		seen[id]++
		candidate = fmt.Sprintf("%s-%d", id, seen[id])
	}
	seen[candidate]++
	return candidate
}

func countParcels(parcels []Parcel) int {
	total := 0
	for _, p := range parcels {
		if p.Quantity > 0 {
			total += p.Quantity
		}
	}
	return total
}

// ParcelsFromCart converts cart lines into parcels.
func ParcelsFromCart(items []cart.LineItem) []Parcel {
	out := make([]Parcel, 0, len(items))
	for _, item := range items {
		out = append(out, Parcel{
			Description: item.Name,
			Quantity:    item.Quantity,
			WeightKG:    item.WeightKG,
		})
	}
	return out
}

// ConfigFrom builds resolver settings from the service configuration.
func ConfigFrom(warehouse config.WarehouseConfig, shipping config.ShippingConfig) (ResolverConfig, error) {
	flat, err := decimal.NewFromString(shipping.FallbackFlatPrice)
	if err != nil {
		return ResolverConfig{}, fmt.Errorf("parse fallback price: %w", err)
	}
	threshold, err := decimal.NewFromString(shipping.FreeThreshold)
	if err != nil {
		return ResolverConfig{}, fmt.Errorf("parse free threshold: %w", err)
	}
	weight, err := decimal.NewFromString(shipping.DefaultWeightKG)
	if err != nil {
		return ResolverConfig{}, fmt.Errorf("parse default weight: %w", err)
	}
	return ResolverConfig{
		Warehouse: Address{
			Company:       warehouse.Company,
			StreetAddress: warehouse.StreetAddress,
			LocalArea:     warehouse.LocalArea,
			City:          warehouse.City,
			Zone:          warehouse.Zone,
			Country:       warehouse.Country,
			PostalCode:    warehouse.PostalCode,
		},
		Currency:        shipping.Currency,
		Fallback:        ThresholdFallback{FlatPrice: flat, FreeThreshold: threshold},
		DefaultWeightKG: weight.InexactFloat64(),
	}, nil
}
