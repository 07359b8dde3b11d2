package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrProductNotFound = &Error{Code: ENOTFOUND, Message: "Product not found"}

// Product is a catalog row.
type Product struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	PriceDH     decimal.Decimal `json:"price_dh"`
	Category    string          `json:"category"`
	Type        string          `json:"type"`
	Stock       int             `json:"stock"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url"`
	CreatedAt   time.Time       `json:"created_at"`
}

// InStock reports whether at least one unit can be sold.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// ProductSort orders catalog listings.
type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
)

// ProductFilter narrows a catalog listing. Zero values mean "no filter".
type ProductFilter struct {
	Category    string
	Type        string
	Search      string
	InStockOnly bool
	Sort        ProductSort
}

// ProductInput carries admin-editable product fields.
type ProductInput struct {
	Name        string          `json:"name" validate:"required,max=120"`
	PriceDH     decimal.Decimal `json:"price_dh"`
	Category    string          `json:"category" validate:"required,max=60"`
	Type        string          `json:"type" validate:"required,max=60"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Description string          `json:"description" validate:"max=4000"`
	ImageURL    string          `json:"image_url" validate:"omitempty,url"`
}

// ProductStore is the gateway's products collection.
type ProductStore interface {
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	ListCategories(ctx context.Context) ([]string, error)
	CreateProduct(ctx context.Context, in ProductInput) (*Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}
