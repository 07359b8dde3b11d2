package storefront

import (
	"net/http"

	"github.com/dukerupert/arena/internal/checkout"
	"github.com/dukerupert/arena/internal/domain"
	"github.com/dukerupert/arena/internal/handler"
	"github.com/dukerupert/arena/internal/middleware"
)

// Checkouts hands out the per-session checkout orchestrator.
type Checkouts interface {
	For(sessionID string, holder checkout.Holder) *checkout.Orchestrator
}

// CheckoutHandler turns the device cart into a purchase.
type CheckoutHandler struct {
	checkouts Checkouts
	open      CartOpener
}

// NewCheckoutHandler creates a checkout handler.
func NewCheckoutHandler(checkouts Checkouts, open CartOpener) *CheckoutHandler {
	return &CheckoutHandler{checkouts: checkouts, open: open}
}

type checkoutResponse struct {
	*checkout.Outcome
	DisplayBalance string       `json:"display_balance"`
	Cart           cartResponse `json:"cart"`
}

// Checkout handles POST /api/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}

	c := h.open(r.Context(), middleware.GetDeviceID(r.Context()))
	outcome, err := h.checkouts.For(s.ID, s.Holder).Checkout(r.Context(), c)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, checkoutResponse{
		Outcome:        outcome,
		DisplayBalance: domain.RoundDisplay(outcome.NewBalance),
		Cart:           newCartResponse(c),
	})
}
