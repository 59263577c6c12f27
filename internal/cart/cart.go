package cart

import (
	"context"
	"strings"
	"sync"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MutationObserver is notified after every cart mutation attempt.
type MutationObserver interface {
	ObserveCartMutation(op, result string)
}

// Cart is a session's line items. Every mutation holds the lock across
// read, modify and persist so concurrent requests apply against the latest state.
type Cart struct {
	mu        sync.Mutex
	sessionID string
	store     Store
	items     []LineItem
	newID     func() string
	observer  MutationObserver
}

type Option func(*Cart)

// WithIDGenerator overrides the line item id source.
func WithIDGenerator(fn func() string) Option {
	return func(c *Cart) {
		if fn != nil {
			c.newID = fn
		}
	}
}

func WithObserver(observer MutationObserver) Option {
	return func(c *Cart) {
		c.observer = observer
	}
}

// Hydrate loads the persisted cart for sessionID, or starts empty when none exists.
// Stored totals are ignored and recomputed from the lines.
func Hydrate(ctx context.Context, sessionID string, store Store, opts ...Option) (*Cart, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart store required")
	}
	c := &Cart{
		sessionID: sessionID,
		store:     store,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	snap, err := store.Load(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if snap != nil {
		c.items = normalize(snap.Items)
	}
	return c, nil
}

// normalize drops invalid lines and merges duplicates left by older writers.
func normalize(items []LineItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	index := map[string]int{}
	for _, item := range items {
		if strings.TrimSpace(item.ProductID) == "" || item.Quantity <= 0 {
			continue
		}
		if i, ok := index[item.ProductID]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		index[item.ProductID] = len(out)
		out = append(out, item)
	}
	return out
}

func (c *Cart) SessionID() string {
	return c.sessionID
}

// Add puts quantity units of product in the cart, merging with an existing line.
// A zero quantity means one unit.
func (c *Cart) Add(ctx context.Context, product Product, quantity int) error {
	return c.mutate(ctx, "add", func(items []LineItem) ([]LineItem, error) {
		if strings.TrimSpace(product.ID) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if quantity == 0 {
			quantity = 1
		}
		if quantity < 0 {
			return nil, invalidQuantity(product.ID, quantity, nil)
		}
		if product.StockStatus == enums.StockStatusOutOfStock {
			return nil, pkgerrors.New(pkgerrors.CodeOutOfStock, "product is out of stock").
				WithDetails(map[string]any{"productId": product.ID})
		}
		if product.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product price cannot be negative")
		}

		for i := range items {
			if items[i].ProductID != product.ID {
				continue
			}
			next := items[i].Quantity + quantity
			if limit, ok := ceiling(product.StockStatus, product.StockQuantity); ok && next > limit {
				return nil, invalidQuantity(product.ID, next, &limit)
			}
			items[i].Quantity = next
			items[i].Name = product.Name
			items[i].Price = product.Price
			items[i].Image = product.Image
			items[i].StockStatus = product.StockStatus
			items[i].StockQuantity = product.StockQuantity
			if product.WeightKG > 0 {
				items[i].WeightKG = product.WeightKG
			}
			return items, nil
		}

		if limit, ok := ceiling(product.StockStatus, product.StockQuantity); ok && quantity > limit {
			return nil, invalidQuantity(product.ID, quantity, &limit)
		}
		return append(items, LineItem{
			ID:            c.newID(),
			ProductID:     product.ID,
			Name:          product.Name,
			Price:         product.Price,
			Quantity:      quantity,
			Image:         product.Image,
			StockStatus:   product.StockStatus,
			StockQuantity: product.StockQuantity,
			WeightKG:      product.WeightKG,
		}), nil
	})
}

// Update sets the quantity of an existing line. A quantity of zero or less removes it.
func (c *Cart) Update(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return c.Remove(ctx, productID)
	}
	return c.mutate(ctx, "update", func(items []LineItem) ([]LineItem, error) {
		for i := range items {
			if items[i].ProductID != productID {
				continue
			}
			if limit, ok := ceiling(items[i].StockStatus, items[i].StockQuantity); ok && quantity > limit {
				return nil, invalidQuantity(productID, quantity, &limit)
			}
			items[i].Quantity = quantity
			return items, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product is not in the cart").
			WithDetails(map[string]any{"productId": productID})
	})
}

// Remove deletes the line for productID. Removing an absent product is a no-op.
func (c *Cart) Remove(ctx context.Context, productID string) error {
	return c.mutate(ctx, "remove", func(items []LineItem) ([]LineItem, error) {
		out := items[:0]
		for _, item := range items {
			if item.ProductID != productID {
				out = append(out, item)
			}
		}
		return out, nil
	})
}

// Clear empties the cart.
func (c *Cart) Clear(ctx context.Context) error {
	return c.mutate(ctx, "clear", func([]LineItem) ([]LineItem, error) {
		return nil, nil
	})
}

func (c *Cart) mutate(ctx context.Context, op string, fn func([]LineItem) ([]LineItem, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	previous := c.items
	next, err := fn(cloneItems(previous))
	if err != nil {
		c.observe(op, string(pkgerrors.CodeOf(err)))
		return err
	}

	c.items = next
	if err := c.store.Save(ctx, c.sessionID, c.snapshotLocked()); err != nil {
		c.items = previous
		c.observe(op, string(pkgerrors.CodeDependency))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
	}
	c.observe(op, "ok")
	return nil
}

func (c *Cart) observe(op, result string) {
	if c.observer != nil {
		c.observer.ObserveCartMutation(op, result)
	}
}

func invalidQuantity(productID string, requested int, limit *int) error {
	details := map[string]any{"productId": productID, "requested": requested}
	msg := "quantity must be positive"
	if limit != nil {
		details["max"] = *limit
		msg = "quantity exceeds available stock"
	}
	return pkgerrors.New(pkgerrors.CodeInvalidQuantity, msg).WithDetails(details)
}

// Get returns a copy of the line for productID.
func (c *Cart) Get(productID string) (LineItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range c.items {
		if item.ProductID == productID {
			return cloneItems([]LineItem{item})[0], true
		}
	}
	return LineItem{}, false
}

func (c *Cart) Has(productID string) bool {
	_, ok := c.Get(productID)
	return ok
}

// QuantityOf returns the quantity for productID, zero when absent.
func (c *Cart) QuantityOf(productID string) int {
	item, _ := c.Get(productID)
	return item.Quantity
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneItems(c.items)
}

func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total, _ := Totals(c.items)
	return total
}

func (c *Cart) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, count := Totals(c.items)
	return count
}

func (c *Cart) IsEmpty() bool {
	return c.ItemCount() == 0
}

// Snapshot returns a point-in-time copy of lines and derived totals.
func (c *Cart) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Cart) snapshotLocked() Snapshot {
	items := cloneItems(c.items)
	total, count := Totals(items)
	return Snapshot{Items: items, Total: total, ItemCount: count}
}
