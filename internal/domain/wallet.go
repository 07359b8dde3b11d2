package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrDepositTooSmall       = &Error{Code: EINVALID, Message: "Minimum deposit is 5.00 DH"}
	ErrDepositNotPaid        = &Error{Code: EPAYMENT, Message: "Payment has not been completed"}
	ErrDepositAlreadyApplied = &Error{Code: ECONFLICT, Message: "Deposit already applied"}
)

// WalletEntryType classifies wallet history rows.
type WalletEntryType string

const (
	WalletDeposit  WalletEntryType = "deposit"
	WalletPurchase WalletEntryType = "purchase"
	WalletRefund   WalletEntryType = "refund"
	WalletAdjust   WalletEntryType = "adjustment"
)

// WalletEntry is one wallet_history row.
type WalletEntry struct {
	ID          uuid.UUID       `json:"id"`
	UserID      uuid.UUID       `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Type        WalletEntryType `json:"type"`
	Description string          `json:"description"`
	// Reference ties the entry to the credit that produced it. Empty for
	// entries without a payment.
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// WalletStore is the gateway's wallet mutations and the wallet_history collection.
type WalletStore interface {
	// CreditWallet adds amount to the balance once per reference and returns
	// the full updated profile read in the same statement. A repeated
	// reference returns the current profile with ErrDepositAlreadyApplied.
	CreditWallet(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reference string) (*Profile, error)

	// AppendWalletHistory writes entry once per non-empty Reference.
	AppendWalletHistory(ctx context.Context, entry WalletEntry) error
	HasWalletEntry(ctx context.Context, reference string) (bool, error)
	ListWalletHistory(ctx context.Context, userID uuid.UUID, limit int) ([]WalletEntry, error)
}
