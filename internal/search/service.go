package search

import (
	"context"
	"errors"

	"github.com/angelmondragon/storefront-backend/pkg/catalog"
)

// ProductSource is the catalog surface search depends on.
type ProductSource interface {
	Search(ctx context.Context, query string, page int) ([]catalog.Product, error)
}

// Hit is a ranked product returned to callers.
type Hit struct {
	Product       catalog.Product `json:"product"`
	Score         float64         `json:"score"`
	MatchedFields []string        `json:"matched_fields"`
}

type Service interface {
	Search(ctx context.Context, query string, limit int) ([]Hit, error)
}

type service struct {
	source ProductSource
}

func NewService(source ProductSource) (Service, error) {
	if source == nil {
		return nil, errors.New("product source required")
	}
	return &service{source: source}, nil
}

// Search fetches the catalog's candidates for query and reorders them by relevance.
func (s *service) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	products, err := s.source.Search(ctx, query, 1)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]catalog.Product, len(products))
	items := make([]Item, 0, len(products))
	for _, p := range products {
		byID[p.ID] = p
		items = append(items, ItemFromProduct(p))
	}

	ranked := Rank(query, items)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	hits := make([]Hit, 0, len(ranked))
	for _, r := range ranked {
		hits = append(hits, Hit{
			Product:       byID[r.Item.ID],
			Score:         r.Result.Score,
			MatchedFields: r.Result.MatchedFields,
		})
	}
	return hits, nil
}

// ItemFromProduct projects a catalog product onto the searchable fields.
func ItemFromProduct(p catalog.Product) Item {
	item := Item{
		ID:               p.ID,
		Name:             p.Name,
		ShortDescription: p.ShortDescription,
		Description:      p.Description,
	}
	for _, b := range p.Brands {
		item.Brands = append(item.Brands, b.Name)
	}
	for _, c := range p.Categories {
		item.Categories = append(item.Categories, c.Name)
	}
	return item
}
