package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
)

// MockProvider is a mock billing provider for testing and local development.
// Simulates payment flows without calling Stripe API.
type MockProvider struct {
	// CreatePaymentIntentFunc allows customizing payment intent creation behavior
	CreatePaymentIntentFunc func(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error)

	// GetPaymentIntentFunc allows customizing payment intent retrieval behavior
	GetPaymentIntentFunc func(ctx context.Context, id string) (*PaymentIntent, error)

	// ParseWebhookEventFunc allows customizing webhook verification behavior
	ParseWebhookEventFunc func(payload []byte, signature string) (*Event, error)

	mu sync.Mutex

	// PaymentIntents stores created payment intents for retrieval
	PaymentIntents map[string]*PaymentIntent

	// CallLog tracks method calls for test assertions
	CallLog []string
}

// NewMockProvider creates a new mock billing provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		PaymentIntents: make(map[string]*PaymentIntent),
	}
}

func (m *MockProvider) log(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallLog = append(m.CallLog, call)
}

// CreatePaymentIntent creates a mock payment intent.
func (m *MockProvider) CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*PaymentIntent, error) {
	m.log(fmt.Sprintf("CreatePaymentIntent(%d, %s)", params.AmountMinor, params.Currency))

	if m.CreatePaymentIntentFunc != nil {
		return m.CreatePaymentIntentFunc(ctx, params)
	}

	currency := params.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	id := "pi_" + uuid.NewString()
	pi := &PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret_" + uuid.NewString(),
		AmountMinor:  params.AmountMinor,
		Currency:     currency,
		Status:       StatusRequiresPaymentMethod,
		Metadata:     params.Metadata,
		CreatedAt:    time.Now(),
	}

	m.mu.Lock()
	m.PaymentIntents[pi.ID] = pi
	m.mu.Unlock()
	return pi, nil
}

// GetPaymentIntent retrieves a mock payment intent.
func (m *MockProvider) GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	m.log(fmt.Sprintf("GetPaymentIntent(%s)", id))

	if m.GetPaymentIntentFunc != nil {
		return m.GetPaymentIntentFunc(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	pi, exists := m.PaymentIntents[id]
	if !exists {
		return nil, ErrPaymentIntentNotFound
	}
	clone := *pi
	return &clone, nil
}

// ParseWebhookEvent decodes a Stripe event payload without verifying the
// signature. An empty signature is rejected.
func (m *MockProvider) ParseWebhookEvent(payload []byte, signature string) (*Event, error) {
	m.log("ParseWebhookEvent")

	if m.ParseWebhookEventFunc != nil {
		return m.ParseWebhookEventFunc(payload, signature)
	}
	if signature == "" {
		return nil, ErrInvalidWebhookSignature
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebhookSignature, err)
	}
	return decodeEvent(event)
}

// Succeed marks a stored intent as paid, as the payment widget would.
func (m *MockProvider) Succeed(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pi, ok := m.PaymentIntents[id]; ok {
		pi.Status = StatusSucceeded
	}
}

// Calls returns a copy of the call log.
func (m *MockProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.CallLog...)
}
