// Package checkout turns a cart into one atomic gateway checkout call and
// reconciles the session's balance, points and cart with the result.
package checkout

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/arena/internal/domain"
)

// State is the position of an orchestrator in its checkout cycle.
// Applied, rejected and failed are terminal: the next Checkout may start.
type State string

const (
	StateIdle     State = "idle"
	StateInFlight State = "in_flight"
	StateApplied  State = "applied"
	StateRejected State = "rejected"
	StateFailed   State = "failed"
)

// DefaultTimeout bounds the gateway call once it has been issued.
const DefaultTimeout = 15 * time.Second

const genericFailure = "Checkout failed. Please try again."

// Cart is the part of the cart store checkout reads and consumes.
type Cart interface {
	Total() decimal.Decimal
	Count() int
	Snapshot() []domain.CheckoutLine
	Consume(ctx context.Context, lines []domain.CheckoutLine)
}

// Holder is the part of the session holder checkout reads and patches.
type Holder interface {
	Profile() (domain.Profile, bool)
	Patch(patch domain.ProfilePatch) (domain.Profile, bool)
}

// SessionPatcher applies a profile patch to every live session of a user.
type SessionPatcher interface {
	PatchUser(userID uuid.UUID, patch domain.ProfilePatch) int
}

// Observer is notified when a checkout reaches a terminal state.
type Observer func(state State, elapsed time.Duration)

// Outcome is the result of an applied checkout.
type Outcome struct {
	NewBalance   decimal.Decimal `json:"new_balance"`
	PointsEarned int64           `json:"points_earned"`
	Profile      domain.Profile  `json:"profile"`
}

// Orchestrator runs the checkouts of one session, one at a time.
type Orchestrator struct {
	processor domain.CheckoutProcessor
	holder    Holder
	logger    *slog.Logger
	timeout   time.Duration
	observer  Observer
	sessions  SessionPatcher

	mu    sync.Mutex
	state State
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Checkout validates the cart against the held profile, issues exactly one
// gateway call with a snapshot of the cart and applies the result.
//
// Precondition failures (no user, empty cart, total above balance) and a
// concurrent checkout return before any gateway call. The gateway call is
// detached from ctx cancellation so a committed purchase is always reconciled.
func (o *Orchestrator) Checkout(ctx context.Context, cart Cart) (*Outcome, error) {
	const op = "checkout.process"

	profile, lines, err := o.begin(cart)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.timeout)
	defer cancel()

	o.logger.Info("checkout started",
		"user_id", profile.ID,
		"lines", len(lines),
		"total", domain.RoundDisplay(cart.Total()),
	)

	result, callErr := o.processor.ProcessCheckout(callCtx, profile.ID, lines)

	switch {
	case callErr != nil:
		o.finish(StateFailed, start)
		o.logger.Error("checkout call failed", "user_id", profile.ID, "error", callErr)
		if domain.ErrorCode(callErr) != domain.EINTERNAL && domain.ErrorCode(callErr) != domain.EABORTED {
			return nil, callErr
		}
		return nil, domain.WrapError(callErr, domain.EINTERNAL, op, genericFailure)

	case result == nil || !result.Success:
		o.finish(StateRejected, start)
		msg := genericFailure
		if result != nil && result.Message != "" {
			msg = result.Message
		}
		o.logger.Warn("checkout rejected", "user_id", profile.ID, "reason", msg)
		return nil, &domain.Error{Code: domain.ECONFLICT, Op: op, Message: msg}
	}

	updated, _ := o.holder.Patch(domain.ProfilePatch{
		WalletBalance: &result.NewBalance,
		PointsDelta:   result.PointsEarned,
	})
	if o.sessions != nil {
		o.sessions.PatchUser(profile.ID, domain.ProfilePatch{
			WalletBalance: &updated.WalletBalance,
			LoyaltyPoints: &updated.LoyaltyPoints,
		})
	}
	cart.Consume(context.WithoutCancel(ctx), lines)
	o.finish(StateApplied, start)

	o.logger.Info("checkout applied",
		"user_id", profile.ID,
		"new_balance", domain.RoundDisplay(result.NewBalance),
		"points_earned", result.PointsEarned,
	)

	return &Outcome{
		NewBalance:   result.NewBalance,
		PointsEarned: result.PointsEarned,
		Profile:      updated,
	}, nil
}

// begin checks the preconditions and enters the in-flight state.
func (o *Orchestrator) begin(cart Cart) (domain.Profile, []domain.CheckoutLine, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateInFlight {
		return domain.Profile{}, nil, domain.ErrCheckoutInFlight
	}

	profile, ok := o.holder.Profile()
	if !ok {
		return domain.Profile{}, nil, domain.ErrLoginRequired
	}

	if cart.Count() == 0 {
		return domain.Profile{}, nil, domain.ErrEmptyCart
	}

	if cart.Total().GreaterThan(profile.WalletBalance) {
		o.state = StateRejected
		if o.observer != nil {
			o.observer(StateRejected, 0)
		}
		return domain.Profile{}, nil, domain.ErrInsufficientFunds
	}

	o.state = StateInFlight
	return profile, cart.Snapshot(), nil
}

func (o *Orchestrator) finish(state State, start time.Time) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()

	if o.observer != nil {
		o.observer(state, time.Since(start))
	}
}
