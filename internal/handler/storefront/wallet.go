package storefront

import (
	"context"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/arena/internal/domain"
	"github.com/dukerupert/arena/internal/handler"
	"github.com/dukerupert/arena/internal/wallet"
)

// Wallet starts and completes card deposits.
type Wallet interface {
	StartDeposit(ctx context.Context, user *domain.User, amount decimal.Decimal) (*wallet.Deposit, error)
	CompleteDeposit(ctx context.Context, intentID string) (*domain.Profile, error)
	History(ctx context.Context, user *domain.User) ([]domain.WalletEntry, error)
}

// WalletHandler serves the wallet routes.
type WalletHandler struct {
	wallet Wallet
}

// NewWalletHandler creates a wallet handler.
func NewWalletHandler(w Wallet) *WalletHandler {
	return &WalletHandler{wallet: w}
}

type depositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// StartDeposit handles POST /api/wallet/deposits
func (h *WalletHandler) StartDeposit(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}

	var req depositRequest
	if err := handler.DecodeJSON(r, "wallet.start_deposit", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	deposit, err := h.wallet.StartDeposit(r.Context(), s.User(), req.Amount)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.WriteJSON(w, http.StatusCreated, deposit)
}

type completeDepositResponse struct {
	Profile        profileResponse `json:"profile"`
	AlreadyApplied bool            `json:"already_applied,omitempty"`
	Warning        string          `json:"warning,omitempty"`
}

// CompleteDeposit handles POST /api/wallet/deposits/{intent_id}/complete.
// The payment widget calls it after confirmation; the webhook may already
// have applied the credit, which is not an error for the shopper.
func (h *WalletHandler) CompleteDeposit(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}

	intentID := r.PathValue("intent_id")
	if intentID == "" {
		handler.ErrorResponse(w, r, domain.NewValidationError("wallet.complete_deposit", "intent_id", "is required"))
		return
	}

	var resp completeDepositResponse
	profile, err := h.wallet.CompleteDeposit(r.Context(), intentID)
	switch {
	case errors.Is(err, domain.ErrDepositAlreadyApplied):
		resp.AlreadyApplied = true
	case errors.Is(err, domain.ErrPartialSuccess):
		resp.Warning = "Your deposit was credited but could not be added to your history yet."
	case err != nil:
		handler.ErrorResponse(w, r, err)
		return
	}

	// Patching reaches every session of the owner, this one included.
	current, ok := s.Holder.Profile()
	if !ok && profile != nil {
		current = *profile
	}
	resp.Profile = newProfileResponse(current)

	handler.WriteJSON(w, http.StatusOK, resp)
}

// History handles GET /api/wallet/history
func (h *WalletHandler) History(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}

	entries, err := h.wallet.History(r.Context(), s.User())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.WalletEntry{}
	}

	handler.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
