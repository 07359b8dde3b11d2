// Package webhook receives payment provider callbacks.
package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/arena/internal/billing"
	"github.com/dukerupert/arena/internal/domain"
	"github.com/dukerupert/arena/internal/handler"
	"github.com/dukerupert/arena/internal/telemetry"
)

// EventParser verifies and decodes webhook payloads.
type EventParser interface {
	ParseWebhookEvent(payload []byte, signature string) (*billing.Event, error)
}

// Deposits credits paid deposit intents.
type Deposits interface {
	CompleteDeposit(ctx context.Context, intentID string) (*domain.Profile, error)
}

// StripeHandler handles Stripe webhook events. The payment widget also
// completes deposits; whichever arrives second sees the deposit as already
// applied.
type StripeHandler struct {
	parser   EventParser
	deposits Deposits
	metrics  *telemetry.BusinessMetrics
	logger   *slog.Logger
}

// NewStripeHandler creates a new Stripe webhook handler. metrics may be nil.
func NewStripeHandler(parser EventParser, deposits Deposits, metrics *telemetry.BusinessMetrics, logger *slog.Logger) *StripeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StripeHandler{
		parser:   parser,
		deposits: deposits,
		metrics:  metrics,
		logger:   logger.With("component", "stripe_webhook"),
	}
}

// HandleWebhook processes POST /webhooks/stripe.
//
// Stripe retries any non-2xx response, so only failures a retry can fix
// return 500. Signature failures return 400.
func (h *StripeHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		handler.ErrorResponse(w, r, domain.Invalid("webhook.stripe", "Error reading request body"))
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		h.metrics.ObserveWebhook("unknown", "rejected", time.Since(start))
		handler.ErrorResponse(w, r, domain.Invalid("webhook.stripe", "Missing signature"))
		return
	}

	event, err := h.parser.ParseWebhookEvent(payload, signature)
	if err != nil {
		h.logger.Warn("webhook rejected", "error", err)
		h.metrics.ObserveWebhook("unknown", "rejected", time.Since(start))
		handler.ErrorResponse(w, r, domain.Invalid("webhook.stripe", "Invalid signature"))
		return
	}

	logger := h.logger.With("event_id", event.ID, "event_type", event.Type)
	result := h.dispatch(r.Context(), event, logger)
	h.metrics.ObserveWebhook(event.Type, result, time.Since(start))

	if result == "error" {
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINTERNAL, "webhook.stripe", "Webhook processing failed"))
		return
	}
	handler.WriteJSON(w, http.StatusOK, map[string]string{"status": result})
}

// dispatch handles one verified event and returns its metrics result.
func (h *StripeHandler) dispatch(ctx context.Context, event *billing.Event, logger *slog.Logger) string {
	switch event.Type {
	case billing.EventPaymentSucceeded:
		return h.paymentSucceeded(ctx, event, logger)

	case billing.EventPaymentFailed:
		if event.PaymentIntent != nil {
			logger.Info("deposit payment failed",
				"intent_id", event.PaymentIntent.ID,
				"user_id", event.PaymentIntent.Metadata[billing.MetadataUserID],
			)
		}
		return "recorded"

	default:
		logger.Debug("unhandled event type")
		return "ignored"
	}
}

func (h *StripeHandler) paymentSucceeded(ctx context.Context, event *billing.Event, logger *slog.Logger) string {
	pi := event.PaymentIntent
	if pi == nil || pi.Metadata[billing.MetadataKind] != billing.KindDeposit {
		logger.Debug("payment is not a wallet deposit")
		return "ignored"
	}

	logger = logger.With("intent_id", pi.ID)
	_, err := h.deposits.CompleteDeposit(ctx, pi.ID)
	switch {
	case err == nil:
		logger.Info("deposit credited from webhook")
		return "credited"
	case errors.Is(err, domain.ErrDepositAlreadyApplied):
		return "duplicate"
	case errors.Is(err, domain.ErrPartialSuccess):
		// Money is credited; the missing history row is reported separately.
		return "partial"
	case domain.IsCode(err, domain.EINTERNAL), domain.IsCode(err, domain.EABORTED):
		logger.Error("deposit completion failed", "error", err)
		return "error"
	default:
		logger.Warn("deposit not completed", "error", err)
		return "skipped"
	}
}
