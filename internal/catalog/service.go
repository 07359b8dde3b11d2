// Package catalog serves product listings with filtering and sorting.
package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/arena/internal/domain"
)

// MaxSearchLength bounds the free-text search term.
const MaxSearchLength = 100

// Service reads the product catalog.
type Service struct {
	products domain.ProductStore
}

// NewService creates a catalog service.
func NewService(products domain.ProductStore) *Service {
	return &Service{products: products}
}

// Query is the raw filter as received from a request.
type Query struct {
	Category string
	Type     string
	Search   string
	InStock  bool
	Sort     string
}

// Filter validates q and converts it to a product filter. An empty sort
// means newest first; "all" as category or type means no filter.
func (q Query) Filter() (domain.ProductFilter, error) {
	const op = "catalog.filter"

	f := domain.ProductFilter{
		Category:    strings.TrimSpace(q.Category),
		Type:        strings.TrimSpace(q.Type),
		Search:      strings.TrimSpace(q.Search),
		InStockOnly: q.InStock,
		Sort:        domain.SortNewest,
	}
	if strings.EqualFold(f.Category, "all") {
		f.Category = ""
	}
	if strings.EqualFold(f.Type, "all") {
		f.Type = ""
	}
	if len(f.Search) > MaxSearchLength {
		return f, domain.NewValidationError(op, "search", "must be at most 100 characters")
	}

	switch sort := domain.ProductSort(strings.TrimSpace(q.Sort)); sort {
	case "":
	case domain.SortNewest, domain.SortPriceAsc, domain.SortPriceDesc:
		f.Sort = sort
	default:
		return f, domain.NewValidationError(op, "sort", "must be one of: newest price_asc price_desc")
	}
	return f, nil
}

// List returns the products matching q.
func (s *Service) List(ctx context.Context, q Query) ([]domain.Product, error) {
	filter, err := q.Filter()
	if err != nil {
		return nil, err
	}
	return s.products.ListProducts(ctx, filter)
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.products.GetProduct(ctx, id)
}

// Categories returns the distinct categories of listed products.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.products.ListCategories(ctx)
}
