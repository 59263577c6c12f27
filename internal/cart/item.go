package cart

import (
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Product is what the cart needs to know about a catalog entry when adding it.
type Product struct {
	ID            string
	Name          string
	Price         decimal.Decimal
	Image         string
	StockStatus   enums.StockStatus
	StockQuantity *int
	WeightKG      float64
}

// LineItem is one product line. Quantity is always at least 1.
type LineItem struct {
	ID            string            `json:"id"`
	ProductID     string            `json:"product_id"`
	Name          string            `json:"name"`
	Price         decimal.Decimal   `json:"price"`
	Quantity      int               `json:"quantity"`
	Image         string            `json:"image,omitempty"`
	StockStatus   enums.StockStatus `json:"stock_status"`
	StockQuantity *int              `json:"stock_quantity,omitempty"`
	WeightKG      float64           `json:"weight_kg,omitempty"`
}

// LineTotal is price times quantity.
func (l LineItem) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ceiling returns the stock limit enforced for this line, if any.
// Backorderable products are not capped by stock on hand.
func ceiling(status enums.StockStatus, stock *int) (int, bool) {
	if stock == nil || status == enums.StockStatusOnBackorder {
		return 0, false
	}
	return *stock, true
}

func cloneItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	for i, item := range items {
		out[i] = item
		if item.StockQuantity != nil {
			stock := *item.StockQuantity
			out[i].StockQuantity = &stock
		}
	}
	return out
}

// Totals derives total and item count from the given lines.
func Totals(items []LineItem) (decimal.Decimal, int) {
	total := decimal.Zero
	count := 0
	for _, item := range items {
		total = total.Add(item.LineTotal())
		count += item.Quantity
	}
	return total, count
}
