package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/search"
	"github.com/angelmondragon/storefront-backend/pkg/catalog"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const maxQueryLength = 200

// CatalogTerms lists the taxonomy used by storefront filters.
type CatalogTerms interface {
	Categories(ctx context.Context) ([]catalog.Term, error)
	Brands(ctx context.Context) ([]catalog.Term, error)
}

// Search ranks catalog matches for ?q= by relevance.
func Search(svc search.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := validators.SanitizeString(r.URL.Query().Get("q"), maxQueryLength)
		if query == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "search query is required").
				WithDetails(map[string]any{"field": "q"}))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 20, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		hits, err := svc.Search(r.Context(), query, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if hits == nil {
			hits = []search.Hit{}
		}
		responses.WriteSuccess(w, map[string]any{"query": query, "results": hits})
	}
}

func CatalogCategories(terms CatalogTerms, logg *logger.Logger) http.HandlerFunc {
	return listTerms(terms.Categories, logg)
}

func CatalogBrands(terms CatalogTerms, logg *logger.Logger) http.HandlerFunc {
	return listTerms(terms.Brands, logg)
}

func listTerms(fetch func(context.Context) ([]catalog.Term, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := fetch(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if items == nil {
			items = []catalog.Term{}
		}
		responses.WriteSuccess(w, items)
	}
}
