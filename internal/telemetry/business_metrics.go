package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// BusinessMetrics holds Prometheus metrics for storefront flows. The Observe
// methods are nil-safe so services can run without metrics in tests.
type BusinessMetrics struct {
	// Cart
	CartMutations *prometheus.CounterVec
	CartItemCount prometheus.Histogram

	// Checkout
	CheckoutOutcomes *prometheus.CounterVec
	CheckoutDuration *prometheus.HistogramVec

	// Order chat
	ChatSends       *prometheus.CounterVec
	RealtimeEvents  *prometheus.CounterVec
	ChatConnections prometheus.Gauge

	// Wallet
	Deposits        *prometheus.CounterVec
	DepositedAmount prometheus.Counter

	// Loyalty and tournaments
	Redemptions   *prometheus.CounterVec
	Registrations *prometheus.CounterVec

	// Webhooks
	WebhookReceived *prometheus.CounterVec
	WebhookLatency  *prometheus.HistogramVec

	// Auth
	Signups prometheus.Counter
	Logins  *prometheus.CounterVec

	// Assistant
	AssistantReplies *prometheus.CounterVec
}

// NewBusinessMetrics creates the business collectors and registers them on
// reg. A nil reg uses the default registry.
func NewBusinessMetrics(namespace string, reg prometheus.Registerer) *BusinessMetrics {
	if namespace == "" {
		namespace = "arena"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	const subsystem = "business"
	factory := promauto.With(reg)

	return &BusinessMetrics{
		// =======================================================================
		// Cart
		// =======================================================================
		CartMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_mutations_total",
				Help:      "Total cart mutations by operation",
			},
			[]string{"op"}, // op: add, remove, set_quantity, set_all, clear, persist_failed
		),
		CartItemCount: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_item_count",
				Help:      "Units in the cart after each mutation",
				Buckets:   []float64{0, 1, 2, 3, 5, 10, 20, 50},
			},
		),

		// =======================================================================
		// Checkout
		// =======================================================================
		CheckoutOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_outcomes_total",
				Help:      "Checkout attempts by terminal state",
			},
			[]string{"state"}, // state: applied, rejected, failed
		),
		CheckoutDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_duration_seconds",
				Help:      "Time from checkout start to terminal state",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
			},
			[]string{"state"},
		),

		// =======================================================================
		// Order chat
		// =======================================================================
		ChatSends: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "chat_sends_total",
				Help:      "Order chat sends by outcome",
			},
			[]string{"outcome"}, // outcome: confirmed, failed, retried, duplicate
		),
		RealtimeEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "realtime_events_total",
				Help:      "Realtime feed events (published, delivered, publish_failed, decode_failed)",
			},
			[]string{"event"},
		),
		ChatConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "chat_connections",
				Help:      "Open order chat websocket connections",
			},
		),

		// =======================================================================
		// Wallet
		// =======================================================================
		Deposits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "wallet_deposits_total",
				Help:      "Wallet deposits by outcome",
			},
			[]string{"outcome"}, // outcome: started, credited, duplicate, partial, failed
		),
		DepositedAmount: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "wallet_deposited_dh_total",
				Help:      "Total DH credited to wallets",
			},
		),

		// =======================================================================
		// Loyalty and tournaments
		// =======================================================================
		Redemptions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "point_redemptions_total",
				Help:      "Point shop redemptions by outcome",
			},
			[]string{"outcome"},
		),
		Registrations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tournament_registrations_total",
				Help:      "Tournament registrations by outcome",
			},
			[]string{"outcome"},
		),

		// =======================================================================
		// Webhooks
		// =======================================================================
		WebhookReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhooks_received_total",
				Help:      "Payment webhooks by event type and result",
			},
			[]string{"event_type", "result"}, // result: processed, ignored, rejected, failed
		),
		WebhookLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhook_duration_seconds",
				Help:      "Webhook processing duration",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"event_type"},
		),

		// =======================================================================
		// Auth
		// =======================================================================
		Signups: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "signups_total",
				Help:      "Accounts created",
			},
		),
		Logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "logins_total",
				Help:      "Login attempts by result",
			},
			[]string{"result"}, // result: success, failed
		),

		// =======================================================================
		// Assistant
		// =======================================================================
		AssistantReplies: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "assistant_replies_total",
				Help:      "Assistant completions by outcome",
			},
			[]string{"outcome"}, // outcome: ok, failed, disabled
		),
	}
}

// ObserveCart matches cart.Observer.
func (m *BusinessMetrics) ObserveCart(op string, count int) {
	if m == nil {
		return
	}
	m.CartMutations.WithLabelValues(op).Inc()
	m.CartItemCount.Observe(float64(count))
}

// ObserveCheckout records a terminal checkout state.
func (m *BusinessMetrics) ObserveCheckout(state string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.CheckoutOutcomes.WithLabelValues(state).Inc()
	m.CheckoutDuration.WithLabelValues(state).Observe(elapsed.Seconds())
}

// ObserveChat matches chat.Observer.
func (m *BusinessMetrics) ObserveChat(outcome string) {
	if m == nil {
		return
	}
	m.ChatSends.WithLabelValues(outcome).Inc()
}

// ObserveRealtime matches realtime.Observer.
func (m *BusinessMetrics) ObserveRealtime(event string) {
	if m == nil {
		return
	}
	m.RealtimeEvents.WithLabelValues(event).Inc()
}

// ChatConnected tracks open chat sockets; call the returned func on close.
func (m *BusinessMetrics) ChatConnected() func() {
	if m == nil {
		return func() {}
	}
	m.ChatConnections.Inc()
	return m.ChatConnections.Dec
}

// ObserveDeposit matches wallet.Observer.
func (m *BusinessMetrics) ObserveDeposit(outcome string, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.Deposits.WithLabelValues(outcome).Inc()
	if outcome == "credited" || outcome == "partial" {
		m.DepositedAmount.Add(amount.InexactFloat64())
	}
}

// ObserveRedemption matches points.Observer.
func (m *BusinessMetrics) ObserveRedemption(outcome string) {
	if m == nil {
		return
	}
	m.Redemptions.WithLabelValues(outcome).Inc()
}

// ObserveRegistration matches tournament.Observer.
func (m *BusinessMetrics) ObserveRegistration(outcome string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(outcome).Inc()
}

// ObserveWebhook records one webhook delivery.
func (m *BusinessMetrics) ObserveWebhook(eventType, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.WebhookReceived.WithLabelValues(eventType, result).Inc()
	m.WebhookLatency.WithLabelValues(eventType).Observe(elapsed.Seconds())
}

// ObserveSignup counts a created account.
func (m *BusinessMetrics) ObserveSignup() {
	if m == nil {
		return
	}
	m.Signups.Inc()
}

// ObserveLogin records a login attempt.
func (m *BusinessMetrics) ObserveLogin(success bool) {
	if m == nil {
		return
	}
	result := "failed"
	if success {
		result = "success"
	}
	m.Logins.WithLabelValues(result).Inc()
}

// ObserveAssistant records an assistant reply outcome.
func (m *BusinessMetrics) ObserveAssistant(outcome string) {
	if m == nil {
		return
	}
	m.AssistantReplies.WithLabelValues(outcome).Inc()
}
