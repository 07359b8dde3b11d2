package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/arena/internal/domain"
)

// Checkout calls the process_checkout procedure.
type Checkout struct {
	db DBTX
}

var _ domain.CheckoutProcessor = (*Checkout)(nil)

func NewCheckout(db DBTX) *Checkout {
	return &Checkout{db: db}
}

type checkoutPayload struct {
	Success      *bool            `json:"success"`
	NewBalance   *decimal.Decimal `json:"new_balance"`
	PointsEarned *int64           `json:"points_earned"`
	Message      string           `json:"message"`
}

// ProcessCheckout runs the atomic checkout and decodes its result.
// A payload missing required fields is a transport failure.
func (s *Checkout) ProcessCheckout(ctx context.Context, userID uuid.UUID, lines []domain.CheckoutLine) (*domain.CheckoutResult, error) {
	const op = "checkout.rpc"

	items, err := json.Marshal(lines)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to encode cart")
	}

	var raw []byte
	if err := s.db.QueryRow(ctx, `SELECT process_checkout($1, $2::jsonb)`, userID, string(items)).Scan(&raw); err != nil {
		return nil, mapError(err, op, nil)
	}

	return decodeCheckout(raw)
}

func decodeCheckout(raw []byte) (*domain.CheckoutResult, error) {
	const op = "checkout.decode"

	var p checkoutPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, domain.Internal(err, op, "malformed checkout response")
	}
	if p.Success == nil {
		return nil, domain.Internal(fmt.Errorf("missing success field"), op, "malformed checkout response")
	}
	if !*p.Success {
		return &domain.CheckoutResult{Success: false, Message: p.Message}, nil
	}
	if p.NewBalance == nil || p.PointsEarned == nil || p.NewBalance.IsNegative() || *p.PointsEarned < 0 {
		return nil, domain.Internal(fmt.Errorf("incomplete success payload: %s", raw), op, "malformed checkout response")
	}
	return &domain.CheckoutResult{
		Success:      true,
		NewBalance:   *p.NewBalance,
		PointsEarned: *p.PointsEarned,
	}, nil
}
