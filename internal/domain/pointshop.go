package domain

import (
	"context"

	"github.com/google/uuid"
)

var (
	ErrPointItemNotFound    = &Error{Code: ENOTFOUND, Message: "Reward not found"}
	ErrInsufficientPoints   = &Error{Code: EPAYMENT, Message: "Not enough points for this reward"}
	ErrPointItemUnavailable = &Error{Code: EGONE, Message: "This reward is out of stock"}
)

// PointShopItem is a reward purchasable with loyalty points.
type PointShopItem struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CostPoints  int64     `json:"cost_points"`
	Stock       int       `json:"stock"`
	ImageURL    string    `json:"image_url,omitempty"`
	Active      bool      `json:"active"`
}

// Available reports whether the item can currently be redeemed.
func (i PointShopItem) Available() bool {
	return i.Active && i.Stock > 0
}

// PointItemInput carries admin-editable reward fields.
type PointItemInput struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
	CostPoints  int64  `json:"cost_points" validate:"gt=0"`
	Stock       int    `json:"stock" validate:"gte=0"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
}

// RedemptionResult is the outcome of the atomic redemption procedure.
type RedemptionResult struct {
	Success   bool   `json:"success"`
	NewPoints int64  `json:"new_points"`
	Message   string `json:"message,omitempty"`
}

// PointShopStore is the gateway's point_shop_items collection and redemption RPC.
type PointShopStore interface {
	ListPointItems(ctx context.Context) ([]PointShopItem, error)
	GetPointItem(ctx context.Context, id uuid.UUID) (*PointShopItem, error)
	CreatePointItem(ctx context.Context, in PointItemInput) (*PointShopItem, error)
	RedeemPointItem(ctx context.Context, userID, itemID uuid.UUID) (*RedemptionResult, error)
}
