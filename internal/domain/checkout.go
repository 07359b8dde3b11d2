package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart           = &Error{Code: EINVALID, Message: "Your cart is empty"}
	ErrInsufficientFunds   = &Error{Code: EPAYMENT, Message: "Insufficient wallet balance. Please top up your wallet."}
	ErrCheckoutInFlight    = &Error{Code: ECONFLICT, Message: "A checkout is already in progress"}
	ErrCheckoutUnavailable = &Error{Code: EINTERNAL, Message: "Checkout failed. Please try again."}
)

// CheckoutLine is one entry of the checkout request snapshot.
type CheckoutLine struct {
	ProductID uuid.UUID `json:"id"`
	Quantity  int       `json:"quantity"`
}

// CheckoutResult is the outcome of the atomic checkout procedure.
type CheckoutResult struct {
	Success      bool            `json:"success"`
	NewBalance   decimal.Decimal `json:"new_balance"`
	PointsEarned int64           `json:"points_earned"`
	Message      string          `json:"message,omitempty"`
}

// CheckoutProcessor runs the gateway's atomic checkout procedure. The call
// either applies every effect (stock, balance, points, orders) or none.
type CheckoutProcessor interface {
	ProcessCheckout(ctx context.Context, userID uuid.UUID, lines []CheckoutLine) (*CheckoutResult, error)
}
