package storefront

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/dukerupert/arena/internal/chat"
	"github.com/dukerupert/arena/internal/domain"
	"github.com/dukerupert/arena/internal/handler"
)

// Orders reads purchase history.
type Orders interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error)
}

// OrderHandler serves the signed-in user's orders.
type OrderHandler struct {
	orders Orders
}

// NewOrderHandler creates an order handler.
func NewOrderHandler(orders Orders) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// List handles GET /api/orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListOrdersByUser(r.Context(), s.UserID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}

	handler.WriteJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// Get handles GET /api/orders/{id}. Admins may read any order.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, ok := loadOrder(w, r, h.orders, "orders.get")
	if !ok {
		return
	}
	handler.WriteJSON(w, http.StatusOK, order)
}

// loadOrder fetches the {id} order and checks the viewer may see it.
func loadOrder(w http.ResponseWriter, r *http.Request, orders Orders, op string) (*domain.Order, bool) {
	s, ok := requireSession(w, r)
	if !ok {
		return nil, false
	}

	id, err := handler.PathUUID(r, "id", op)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return nil, false
	}

	order, err := orders.GetOrder(r.Context(), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return nil, false
	}

	if err := chat.Authorize(order, s.User()); err != nil {
		// Other users' orders are reported as missing.
		if domain.IsCode(err, domain.EFORBIDDEN) {
			err = domain.ErrOrderNotFound
		}
		handler.ErrorResponse(w, r, err)
		return nil, false
	}
	return order, true
}
