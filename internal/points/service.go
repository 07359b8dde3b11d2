// Package points runs the loyalty-point redemption shop.
package points

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dukerupert/arena/internal/domain"
)

// Holder is the session view of the redeeming user's profile.
type Holder interface {
	Profile() (domain.Profile, bool)
	Patch(patch domain.ProfilePatch) (domain.Profile, bool)
}

// SessionPatcher applies a profile patch to every live session of a user.
type SessionPatcher interface {
	PatchUser(userID uuid.UUID, patch domain.ProfilePatch) int
}

// Observer is notified with "redeemed", "rejected" or "failed".
type Observer func(outcome string)

// Service lists rewards and redeems them.
type Service struct {
	store    domain.PointShopStore
	logger   *slog.Logger
	observer Observer
	sessions SessionPatcher
}

// Option configures a Service.
type Option func(*Service)

// WithSessions broadcasts the points balance after a redemption to every
// live session of the user.
func WithSessions(p SessionPatcher) Option {
	return func(s *Service) {
		s.sessions = p
	}
}

// NewService creates a point shop service.
func NewService(store domain.PointShopStore, logger *slog.Logger, observer Observer, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{store: store, logger: logger.With("service", "points"), observer: observer}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Items returns the active rewards.
func (s *Service) Items(ctx context.Context) ([]domain.PointShopItem, error) {
	return s.store.ListPointItems(ctx)
}

// Redemption is a completed redemption.
type Redemption struct {
	Item    domain.PointShopItem `json:"item"`
	Profile domain.Profile       `json:"profile"`
}

// Redeem spends the holder's points on itemID. Rewards the user cannot
// afford or that are out of stock are rejected without calling the
// gateway; the gateway procedure re-checks both atomically. On success the
// holder receives the gateway's points balance.
func (s *Service) Redeem(ctx context.Context, holder Holder, itemID uuid.UUID) (*Redemption, error) {
	const op = "points.redeem"

	profile, ok := holder.Profile()
	if !ok {
		return nil, domain.ErrLoginRequired
	}

	item, err := s.store.GetPointItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.Available() {
		s.observe("rejected")
		return nil, domain.ErrPointItemUnavailable
	}
	if profile.LoyaltyPoints < item.CostPoints {
		s.observe("rejected")
		return nil, domain.ErrInsufficientPoints
	}

	res, err := s.store.RedeemPointItem(ctx, profile.ID, itemID)
	if err != nil {
		s.observe("failed")
		s.logger.Error("redemption failed", "user_id", profile.ID, "item_id", itemID, "error", err)
		if domain.ErrorCode(err) == domain.EINTERNAL {
			return nil, domain.Internal(err, op, "Redemption failed. Please try again.")
		}
		return nil, err
	}
	if !res.Success {
		s.observe("rejected")
		return nil, domain.Conflict(op, res.Message)
	}

	patch := domain.ProfilePatch{LoyaltyPoints: &res.NewPoints}
	updated, _ := holder.Patch(patch)
	if s.sessions != nil {
		s.sessions.PatchUser(profile.ID, patch)
	}
	s.observe("redeemed")
	s.logger.Info("reward redeemed", "user_id", profile.ID, "item_id", itemID, "points", res.NewPoints)

	item.Stock--
	return &Redemption{Item: *item, Profile: updated}, nil
}

func (s *Service) observe(outcome string) {
	if s.observer != nil {
		s.observer(outcome)
	}
}
