package storefront

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/dukerupert/arena/internal/catalog"
	"github.com/dukerupert/arena/internal/domain"
	"github.com/dukerupert/arena/internal/handler"
)

// Catalog is the product listing used by the catalog and cart handlers.
type Catalog interface {
	List(ctx context.Context, q catalog.Query) ([]domain.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	Categories(ctx context.Context) ([]string, error)
}

// CatalogHandler serves product browsing.
type CatalogHandler struct {
	catalog Catalog
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler(c Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

// List handles GET /api/products
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	inStock, _ := strconv.ParseBool(q.Get("in_stock"))

	products, err := h.catalog.List(r.Context(), catalog.Query{
		Category: q.Get("category"),
		Type:     q.Get("type"),
		Search:   q.Get("search"),
		InStock:  inStock,
		Sort:     q.Get("sort"),
	})
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}

	handler.WriteJSON(w, http.StatusOK, map[string]any{"products": products})
}

// Get handles GET /api/products/{id}
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id", "catalog.get")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	product, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, product)
}

// Categories handles GET /api/categories
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if categories == nil {
		categories = []string{}
	}

	handler.WriteJSON(w, http.StatusOK, map[string]any{"categories": categories})
}
