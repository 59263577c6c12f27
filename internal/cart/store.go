package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/shopspring/decimal"
)

// Snapshot is the persisted form of a cart.
type Snapshot struct {
	Items     []LineItem
	Total     decimal.Decimal
	ItemCount int
}

// Store persists carts by session id. Load returns nil when nothing is stored.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Snapshot, error)
	Save(ctx context.Context, sessionID string, snap Snapshot) error
}

type storedItem struct {
	ID            string            `json:"id"`
	ProductID     string            `json:"productId"`
	Name          string            `json:"name"`
	Price         float64           `json:"price"`
	Quantity      int               `json:"quantity"`
	Image         string            `json:"image,omitempty"`
	StockStatus   enums.StockStatus `json:"stockStatus"`
	StockQuantity *int              `json:"stockQuantity,omitempty"`
	WeightKG      float64           `json:"weight,omitempty"`
}

type storedCart struct {
	Items     []storedItem `json:"items"`
	Total     float64      `json:"total"`
	ItemCount int          `json:"itemCount"`
}

// MarshalSnapshot renders the {items, total, itemCount} document.
func MarshalSnapshot(snap Snapshot) ([]byte, error) {
	doc := storedCart{
		Items:     make([]storedItem, 0, len(snap.Items)),
		Total:     snap.Total.InexactFloat64(),
		ItemCount: snap.ItemCount,
	}
	for _, item := range snap.Items {
		doc.Items = append(doc.Items, storedItem{
			ID:            item.ID,
			ProductID:     item.ProductID,
			Name:          item.Name,
			Price:         item.Price.InexactFloat64(),
			Quantity:      item.Quantity,
			Image:         item.Image,
			StockStatus:   item.StockStatus,
			StockQuantity: item.StockQuantity,
			WeightKG:      item.WeightKG,
		})
	}
	return json.Marshal(doc)
}

// UnmarshalSnapshot parses a stored document. Totals are recomputed from the items.
func UnmarshalSnapshot(data []byte) (*Snapshot, error) {
	var doc storedCart
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	items := make([]LineItem, 0, len(doc.Items))
	for _, si := range doc.Items {
		status := si.StockStatus
		if !status.IsValid() {
			status = enums.StockStatusInStock
		}
		items = append(items, LineItem{
			ID:            si.ID,
			ProductID:     si.ProductID,
			Name:          si.Name,
			Price:         decimal.NewFromFloat(si.Price),
			Quantity:      si.Quantity,
			Image:         si.Image,
			StockStatus:   status,
			StockQuantity: si.StockQuantity,
			WeightKG:      si.WeightKG,
		})
	}
	total, count := Totals(items)
	return &Snapshot{Items: items, Total: total, ItemCount: count}, nil
}

// MemoryStore keeps carts in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[string][]byte{}}
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) (*Snapshot, error) {
	m.mu.Lock()
	data, ok := m.docs[sessionID]
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return UnmarshalSnapshot(data)
}

func (m *MemoryStore) Save(_ context.Context, sessionID string, snap Snapshot) error {
	data, err := MarshalSnapshot(snap)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.docs[sessionID] = data
	m.mu.Unlock()
	return nil
}

// Raw returns the stored document for sessionID.
func (m *MemoryStore) Raw(sessionID string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.docs[sessionID]
	return data, ok
}

// RedisStore keeps carts under sf:cart:<session> with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (r *RedisStore) Load(ctx context.Context, sessionID string) (*Snapshot, error) {
	raw, err := r.client.GetEx(ctx, r.client.CartKey(sessionID), r.ttl)
	if redis.IsNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get cart: %w", err)
	}
	return UnmarshalSnapshot([]byte(raw))
}

func (r *RedisStore) Save(ctx context.Context, sessionID string, snap Snapshot) error {
	data, err := MarshalSnapshot(snap)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := r.client.Set(ctx, r.client.CartKey(sessionID), string(data), r.ttl); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}
