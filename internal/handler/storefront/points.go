package storefront

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/dukerupert/arena/internal/domain"
	"github.com/dukerupert/arena/internal/handler"
	"github.com/dukerupert/arena/internal/points"
)

// PointShop lists and redeems loyalty rewards.
type PointShop interface {
	Items(ctx context.Context) ([]domain.PointShopItem, error)
	Redeem(ctx context.Context, holder points.Holder, itemID uuid.UUID) (*points.Redemption, error)
}

// PointsHandler serves the point shop.
type PointsHandler struct {
	shop PointShop
}

// NewPointsHandler creates a point shop handler.
func NewPointsHandler(shop PointShop) *PointsHandler {
	return &PointsHandler{shop: shop}
}

// Items handles GET /api/points/items
func (h *PointsHandler) Items(w http.ResponseWriter, r *http.Request) {
	items, err := h.shop.Items(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if items == nil {
		items = []domain.PointShopItem{}
	}

	handler.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

// Redeem handles POST /api/points/items/{id}/redeem
func (h *PointsHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}

	itemID, err := handler.PathUUID(r, "id", "points.redeem")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	redemption, err := h.shop.Redeem(r.Context(), s.Holder, itemID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, map[string]any{
		"item":    redemption.Item,
		"profile": newProfileResponse(redemption.Profile),
	})
}
