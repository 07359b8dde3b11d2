// Package billing captures card payments that fund user wallets.
package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/arena/internal/domain"
)

// Provider defines the interface for payment processing.
type Provider interface {
	// CreatePaymentIntent creates a payment intent for a one-time charge and
	// returns it with the client secret the payment widget confirms.
	CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error)

	// GetPaymentIntent retrieves an existing payment intent. Deposits are
	// only credited after the retrieved intent reports success.
	GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error)

	// ParseWebhookEvent verifies the signature header and decodes the event.
	ParseWebhookEvent(payload []byte, signature string) (*Event, error)
}

// Intent statuses used by the deposit flow.
const (
	StatusSucceeded             = "succeeded"
	StatusProcessing            = "processing"
	StatusRequiresPaymentMethod = "requires_payment_method"
	StatusCanceled              = "canceled"
)

// Event types handled by the webhook.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// Metadata keys written on every deposit intent.
const (
	MetadataUserID = "user_id"
	MetadataKind   = "kind"
	KindDeposit    = "wallet_deposit"
)

// CreatePaymentIntentParams contains parameters for creating a payment intent.
type CreatePaymentIntentParams struct {
	// AmountMinor is the amount in the smallest currency unit (centimes for MAD).
	AmountMinor int64

	// Currency code (ISO 4217, lower case). Empty uses the provider default.
	Currency string

	CustomerEmail string
	Description   string
	Metadata      map[string]string

	// IdempotencyKey prevents duplicate intents for one deposit attempt.
	IdempotencyKey string
}

// PaymentIntent is a provider-neutral view of a payment intent.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	AmountMinor  int64
	Currency     string
	Status       string
	Metadata     map[string]string
	CreatedAt    time.Time
}

// Succeeded reports whether the funds were captured.
func (pi *PaymentIntent) Succeeded() bool {
	return pi.Status == StatusSucceeded
}

// Amount returns the intent amount in major units.
func (pi *PaymentIntent) Amount() decimal.Decimal {
	return domain.FromMinorUnits(pi.AmountMinor)
}

// Event is a verified webhook event.
type Event struct {
	ID            string
	Type          string
	PaymentIntent *PaymentIntent
}
