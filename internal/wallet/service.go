// Package wallet funds user wallets through card deposits and exposes the
// wallet history.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/arena/internal/billing"
	"github.com/dukerupert/arena/internal/domain"
	"github.com/dukerupert/arena/internal/telemetry"
)

// MinDeposit is the smallest accepted deposit in DH.
var MinDeposit = decimal.NewFromInt(5)

// HistoryLimit caps the wallet history page.
const HistoryLimit = 50

// SessionPatcher applies a profile patch to every live session of a user.
type SessionPatcher interface {
	PatchUser(userID uuid.UUID, patch domain.ProfilePatch) int
}

// Reporter forwards errors that were handled but must not go unnoticed.
type Reporter func(err error, extras map[string]interface{})

// Observer is notified with the outcome of every deposit step: "started",
// "credited", "duplicate", "partial" or "failed".
type Observer func(outcome string, amount decimal.Decimal)

// Service runs the deposit flow.
type Service struct {
	provider billing.Provider
	store    domain.WalletStore
	sessions SessionPatcher
	logger   *slog.Logger
	report   Reporter
	observer Observer
	currency string
}

// Option configures a Service.
type Option func(*Service)

// WithReporter replaces the Sentry reporter.
func WithReporter(fn Reporter) Option {
	return func(s *Service) {
		s.report = fn
	}
}

// WithObserver registers a deposit outcome observer (metrics).
func WithObserver(fn Observer) Option {
	return func(s *Service) {
		s.observer = fn
	}
}

// WithCurrency sets the currency deposits are charged in.
func WithCurrency(currency string) Option {
	return func(s *Service) {
		s.currency = currency
	}
}

// NewService creates a wallet service.
func NewService(provider billing.Provider, store domain.WalletStore, sessions SessionPatcher, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		provider: provider,
		store:    store,
		sessions: sessions,
		logger:   logger.With("service", "wallet"),
		report: func(err error, extras map[string]interface{}) {
			telemetry.CaptureError(err, extras)
		},
		currency: billing.DefaultCurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deposit is a started deposit awaiting confirmation by the payment widget.
type Deposit struct {
	IntentID     string          `json:"intent_id"`
	ClientSecret string          `json:"client_secret"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
}

// StartDeposit creates a payment intent for amount DH on behalf of user.
func (s *Service) StartDeposit(ctx context.Context, user *domain.User, amount decimal.Decimal) (*Deposit, error) {
	const op = "wallet.start_deposit"

	if user == nil {
		return nil, domain.ErrLoginRequired
	}
	if amount.LessThan(MinDeposit) {
		return nil, domain.ErrDepositTooSmall
	}
	if !amount.Round(2).Equal(amount) {
		return nil, domain.Invalid(op, "Amount cannot have more than two decimals")
	}

	pi, err := s.provider.CreatePaymentIntent(ctx, billing.CreatePaymentIntentParams{
		AmountMinor:   domain.ToMinorUnits(amount),
		Currency:      s.currency,
		CustomerEmail: user.Email,
		Description:   "Arena wallet deposit",
		Metadata: map[string]string{
			billing.MetadataUserID: user.ID.String(),
			billing.MetadataKind:   billing.KindDeposit,
		},
	})
	if err != nil {
		s.observe("failed", amount)
		if errors.Is(err, billing.ErrAmountTooSmall) {
			return nil, domain.ErrDepositTooSmall
		}
		s.logger.Error("failed to create payment intent", "user_id", user.ID, "error", err)
		return nil, domain.Internal(err, op, "Could not start the deposit. Please try again.")
	}

	s.observe("started", amount)
	return &Deposit{
		IntentID:     pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       amount,
		Currency:     pi.Currency,
	}, nil
}

// errMissingHistory is reported when a credited deposit has no history entry.
var errMissingHistory = errors.New("wallet history entry missing for credited deposit")

// CompleteDeposit credits a paid intent to its owner's wallet. The gateway
// credit is applied once per intent; a repeated call returns
// domain.ErrDepositAlreadyApplied. After the credit, every live session of
// the owner receives the gateway's balance and points, then a history entry
// is appended. A failed history write returns the credited profile together
// with an error wrapping domain.ErrPartialSuccess.
//
// A repeated call for a deposit whose history entry is missing finishes the
// deposit instead and also returns domain.ErrPartialSuccess.
func (s *Service) CompleteDeposit(ctx context.Context, intentID string) (*domain.Profile, error) {
	const op = "wallet.complete_deposit"

	pi, err := s.provider.GetPaymentIntent(ctx, intentID)
	if err != nil {
		if errors.Is(err, billing.ErrPaymentIntentNotFound) {
			return nil, domain.NotFound(op, "payment", intentID)
		}
		return nil, domain.Internal(err, op, "Could not verify the payment. Please try again.")
	}
	if pi.Metadata[billing.MetadataKind] != billing.KindDeposit {
		return nil, domain.Invalid(op, "Payment is not a wallet deposit")
	}
	userID, err := uuid.Parse(pi.Metadata[billing.MetadataUserID])
	if err != nil {
		return nil, domain.Invalid(op, "Payment is not linked to an account")
	}
	if !pi.Succeeded() {
		return nil, domain.ErrDepositNotPaid
	}

	amount := pi.Amount()

	// Once money is credited the remaining steps must run even if the
	// request goes away.
	ctx = context.WithoutCancel(ctx)

	profile, err := s.store.CreditWallet(ctx, userID, amount, pi.ID)
	switch {
	case errors.Is(err, domain.ErrDepositAlreadyApplied):
		return s.reconcile(ctx, op, pi.ID, userID, amount, profile)
	case err != nil:
		s.observe("failed", amount)
		s.logger.Error("failed to credit wallet", "user_id", userID, "intent_id", pi.ID, "error", err)
		return nil, domain.WrapError(err, domain.ErrorCode(err), op, "Could not credit your wallet. Please contact support.")
	}

	patched := s.patchSessions(userID, profile)

	if err := s.store.AppendWalletHistory(ctx, depositEntry(userID, amount, pi.ID)); err != nil {
		s.observe("partial", amount)
		s.logger.Error("deposit credited without history entry",
			"user_id", userID, "intent_id", pi.ID, "amount", amount.String(), "error", err)
		s.report(err, depositExtras(userID, pi.ID, amount))
		return profile, fmt.Errorf("%s: %w: %w", op, domain.ErrPartialSuccess, err)
	}

	s.observe("credited", amount)
	s.logger.Info("deposit credited", "user_id", userID, "intent_id", pi.ID, "amount", amount.String(), "sessions", patched)
	return profile, nil
}

// reconcile handles a repeated credit. A deposit with its history entry is
// a plain duplicate; one without was interrupted after the credit, so the
// sessions are patched and the entry written now.
func (s *Service) reconcile(ctx context.Context, op, intentID string, userID uuid.UUID, amount decimal.Decimal, profile *domain.Profile) (*domain.Profile, error) {
	recorded, err := s.store.HasWalletEntry(ctx, intentID)
	if err != nil {
		s.logger.Error("failed to check deposit history", "user_id", userID, "intent_id", intentID, "error", err)
		return nil, domain.WrapError(err, domain.ErrorCode(err), op, "Could not verify the deposit. Please try again.")
	}
	if recorded {
		s.observe("duplicate", amount)
		return nil, domain.ErrDepositAlreadyApplied
	}

	patched := s.patchSessions(userID, profile)

	cause := errMissingHistory
	if err := s.store.AppendWalletHistory(ctx, depositEntry(userID, amount, intentID)); err != nil {
		cause = err
	}

	s.observe("partial", amount)
	s.logger.Error("deposit credited by an earlier attempt without history entry",
		"user_id", userID, "intent_id", intentID, "amount", amount.String(),
		"history_written", cause == errMissingHistory, "sessions", patched)
	s.report(cause, depositExtras(userID, intentID, amount))
	return profile, fmt.Errorf("%s: %w: %w", op, domain.ErrPartialSuccess, cause)
}

func (s *Service) patchSessions(userID uuid.UUID, profile *domain.Profile) int {
	if profile == nil {
		return 0
	}
	return s.sessions.PatchUser(userID, domain.ProfilePatch{
		WalletBalance: &profile.WalletBalance,
		LoyaltyPoints: &profile.LoyaltyPoints,
	})
}

func depositEntry(userID uuid.UUID, amount decimal.Decimal, intentID string) domain.WalletEntry {
	return domain.WalletEntry{
		UserID:      userID,
		Amount:      amount,
		Type:        domain.WalletDeposit,
		Description: fmt.Sprintf("Card deposit (%s)", intentID),
		Reference:   intentID,
	}
}

func depositExtras(userID uuid.UUID, intentID string, amount decimal.Decimal) map[string]interface{} {
	return map[string]interface{}{
		"user_id":   userID.String(),
		"intent_id": intentID,
		"amount":    amount.String(),
	}
}

// History returns the newest wallet history entries of user.
func (s *Service) History(ctx context.Context, user *domain.User) ([]domain.WalletEntry, error) {
	if user == nil {
		return nil, domain.ErrLoginRequired
	}
	return s.store.ListWalletHistory(ctx, user.ID, HistoryLimit)
}

func (s *Service) observe(outcome string, amount decimal.Decimal) {
	if s.observer != nil {
		s.observer(outcome, amount)
	}
}
