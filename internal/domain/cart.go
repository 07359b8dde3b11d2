package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidQuantity = &Error{Code: EINVALID, Message: "Quantity must be at least 1"}

// CartItem is one cart line. The price, name and image are a snapshot taken
// when the product was added; they are not refreshed from the catalog.
type CartItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url,omitempty"`
	Category  string          `json:"category,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// LineTotal is unit price times quantity at full precision.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// NewCartItem snapshots a product into a cart line.
func NewCartItem(p Product, quantity int) CartItem {
	return CartItem{
		ProductID: p.ID,
		Name:      p.Name,
		ImageURL:  p.ImageURL,
		Category:  p.Category,
		UnitPrice: p.PriceDH,
		Quantity:  quantity,
	}
}
