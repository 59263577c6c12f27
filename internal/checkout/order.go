package checkout

import (
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/orderapi"
	"github.com/shopspring/decimal"
)

const (
	freeShippingMethodID    = "free_shipping"
	freeShippingMethodTitle = "Free shipping"
)

// Order is the storefront's view of a created backend order. Items and
// ShippingLine are copies taken at creation; later cart edits do not touch them.
type Order struct {
	ID            string            `json:"id"`
	Number        string            `json:"number"`
	Status        enums.OrderStatus `json:"status"`
	Billing       orderapi.Address  `json:"billing"`
	Shipping      orderapi.Address  `json:"shipping"`
	Items         []cart.LineItem   `json:"items"`
	ShippingLine  shipping.Option   `json:"shipping_line"`
	Subtotal      decimal.Decimal   `json:"subtotal"`
	ShippingTotal decimal.Decimal   `json:"shipping_total"`
	GrandTotal    decimal.Decimal   `json:"grand_total"`
	PaymentMethod string            `json:"payment_method"`
	CustomerNote  string            `json:"customer_note,omitempty"`
}

func copyItems(items []cart.LineItem) []cart.LineItem {
	out := make([]cart.LineItem, 0, len(items))
	for _, item := range items {
		if item.StockQuantity != nil {
			stock := *item.StockQuantity
			item.StockQuantity = &stock
		}
		out = append(out, item)
	}
	return out
}

func shippingLineFor(option *shipping.Option) shipping.Option {
	if option == nil {
		return shipping.Option{
			ID:       freeShippingMethodID,
			Name:     freeShippingMethodTitle,
			Price:    decimal.Zero,
			Selected: true,
		}
	}
	line := *option
	line.Selected = true
	return line
}

func buildOrderRequest(items []cart.LineItem, form Form, line shipping.Option, settings Settings) orderapi.CreateOrderRequest {
	lineItems := make([]orderapi.LineItem, 0, len(items))
	for _, item := range items {
		lineItems = append(lineItems, orderapi.LineItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price.StringFixed(2),
		})
	}
	return orderapi.CreateOrderRequest{
		PaymentMethod:      settings.PaymentMethod,
		PaymentMethodTitle: settings.PaymentTitle,
		SetPaid:            false,
		Status:             string(enums.OrderStatusPending),
		Billing:            form.backendAddress(true),
		Shipping:           form.backendAddress(false),
		LineItems:          lineItems,
		ShippingLines: []orderapi.ShippingLine{{
			MethodID:    line.ID,
			MethodTitle: line.Name,
			Total:       line.Price.StringFixed(2),
		}},
		CustomerNote: form.normalize().CustomerNote,
	}
}
