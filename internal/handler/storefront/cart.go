package storefront

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/arena/internal/cart"
	"github.com/dukerupert/arena/internal/domain"
	"github.com/dukerupert/arena/internal/handler"
	"github.com/dukerupert/arena/internal/middleware"
)

// CartOpener hydrates the cart persisted for a device.
type CartOpener func(ctx context.Context, deviceID string) *cart.Store

// CartHandler handles all cart routes. The cart lives in durable device
// storage; every request hydrates it and every mutation rewrites it.
type CartHandler struct {
	open    CartOpener
	catalog Catalog
}

// NewCartHandler creates a new cart handler
func NewCartHandler(open CartOpener, catalog Catalog) *CartHandler {
	return &CartHandler{open: open, catalog: catalog}
}

type cartResponse struct {
	Items        []domain.CartItem `json:"items"`
	Count        int               `json:"count"`
	Total        decimal.Decimal   `json:"total"`
	DisplayTotal string            `json:"display_total"`
}

func newCartResponse(c *cart.Store) cartResponse {
	items := c.Items()
	if items == nil {
		items = []domain.CartItem{}
	}
	return cartResponse{
		Items:        items,
		Count:        c.Count(),
		Total:        c.Total(),
		DisplayTotal: c.DisplayTotal(),
	}
}

func (h *CartHandler) cart(r *http.Request) *cart.Store {
	return h.open(r.Context(), middleware.GetDeviceID(r.Context()))
}

// View handles GET /api/cart
func (h *CartHandler) View(w http.ResponseWriter, r *http.Request) {
	handler.WriteJSON(w, http.StatusOK, newCartResponse(h.cart(r)))
}

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// Add handles POST /api/cart/items
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	const op = "cart.add"

	var req addItemRequest
	if err := handler.DecodeJSON(r, op, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 1 {
		handler.ErrorResponse(w, r, domain.NewValidationError(op, "quantity", "must be at least 1"))
		return
	}

	product, err := h.catalog.Get(r.Context(), req.ProductID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	c := h.cart(r)
	if err := c.Add(r.Context(), *product, req.Quantity); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, newCartResponse(c))
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// SetQuantity handles PATCH /api/cart/items/{product_id}. A quantity of zero
// or less removes the item.
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	const op = "cart.set_quantity"

	productID, err := handler.PathUUID(r, "product_id", op)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req setQuantityRequest
	if err := handler.DecodeJSON(r, op, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	c := h.cart(r)
	if err := c.SetQuantity(r.Context(), productID, req.Quantity); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, newCartResponse(c))
}

// Remove handles DELETE /api/cart/items/{product_id}
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	productID, err := handler.PathUUID(r, "product_id", "cart.remove")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	c := h.cart(r)
	c.Remove(r.Context(), productID)

	handler.WriteJSON(w, http.StatusOK, newCartResponse(c))
}

// Clear handles DELETE /api/cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	c := h.cart(r)
	c.Clear(r.Context())

	handler.WriteJSON(w, http.StatusOK, newCartResponse(c))
}
