package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/arena/internal/domain"
)

// Wallet runs wallet credits and the wallet_history collection.
type Wallet struct {
	db DBTX
}

var _ domain.WalletStore = (*Wallet)(nil)

func NewWallet(db DBTX) *Wallet {
	return &Wallet{db: db}
}

type creditPayload struct {
	Success   bool            `json:"success"`
	Duplicate bool            `json:"duplicate"`
	Message   string          `json:"message"`
	Profile   *domain.Profile `json:"profile"`
}

// CreditWallet applies a deposit once per reference. The profile comes back
// from the same statement, so a committed credit always returns it.
func (s *Wallet) CreditWallet(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reference string) (*domain.Profile, error) {
	const op = "wallet.credit"

	var raw []byte
	if err := s.db.QueryRow(ctx, `SELECT credit_wallet($1, $2, $3)`, userID, amount, reference).Scan(&raw); err != nil {
		return nil, mapError(err, op, nil)
	}

	var p creditPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, domain.Internal(err, op, "malformed credit response")
	}
	if p.Duplicate {
		return p.Profile, domain.ErrDepositAlreadyApplied
	}
	if !p.Success {
		return nil, domain.Invalid(op, p.Message)
	}
	if p.Profile == nil || p.Profile.ID == uuid.Nil {
		return nil, domain.Internal(nil, op, "credit response without profile")
	}
	return p.Profile, nil
}

// AppendWalletHistory ignores a second entry with the same reference.
func (s *Wallet) AppendWalletHistory(ctx context.Context, e domain.WalletEntry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO wallet_history (user_id, amount, type, description, reference)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		ON CONFLICT (reference) DO NOTHING`,
		e.UserID, e.Amount, e.Type, e.Description, e.Reference)
	return mapError(err, "wallet.append_history", nil)
}

// HasWalletEntry reports whether a history entry exists for reference.
func (s *Wallet) HasWalletEntry(ctx context.Context, reference string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM wallet_history WHERE reference = $1)`, reference).Scan(&exists)
	if err != nil {
		return false, mapError(err, "wallet.has_entry", nil)
	}
	return exists, nil
}

// ListWalletHistory returns the newest entries first.
func (s *Wallet) ListWalletHistory(ctx context.Context, userID uuid.UUID, limit int) ([]domain.WalletEntry, error) {
	const op = "wallet.list_history"

	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, amount, type, description, COALESCE(reference, ''), created_at
		FROM wallet_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, mapError(err, op, nil)
	}
	entries, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.WalletEntry, error) {
		var e domain.WalletEntry
		err := r.Scan(&e.ID, &e.UserID, &e.Amount, &e.Type, &e.Description, &e.Reference, &e.CreatedAt)
		return e, err
	})
	if err != nil {
		return nil, mapError(err, op, nil)
	}
	return entries, nil
}
