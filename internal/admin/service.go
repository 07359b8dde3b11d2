// Package admin implements the back-office operations: dashboard figures,
// order fulfilment, catalog and reward management, and the audit trail.
package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/arena/internal/domain"
	"github.com/dukerupert/arena/internal/validate"
)

const (
	// RecentOrdersLimit is how many orders the dashboard shows.
	RecentOrdersLimit = 10

	// ListLimit caps admin list pages.
	ListLimit = 200

	// DefaultAuditLimit is used when no audit page size is given.
	DefaultAuditLimit = 50
)

// Audit actions.
const (
	ActionOrderStatus      = "order.status"
	ActionProductCreate    = "product.create"
	ActionProductUpdate    = "product.update"
	ActionProductDelete    = "product.delete"
	ActionTournamentCreate = "tournament.create"
	ActionPointItemCreate  = "point_item.create"
	ActionUserPromote      = "user.promote"
)

// Stores groups the gateway collections the back office reads and writes.
type Stores struct {
	Products    domain.ProductStore
	Profiles    domain.ProfileStore
	Orders      domain.OrderStore
	Tournaments domain.TournamentStore
	PointShop   domain.PointShopStore
	Audit       domain.AuditStore
	Stats       domain.StatsStore
}

// Service implements admin operations. Every mutation is recorded in the
// audit log; a failed audit write is logged and does not undo the mutation.
type Service struct {
	stores Stores
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates an admin service.
func NewService(stores Stores, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{stores: stores, logger: logger.With("service", "admin"), now: time.Now}
}

// Dashboard gathers the dashboard figures concurrently.
func (s *Service) Dashboard(ctx context.Context) (*domain.DashboardStats, error) {
	var stats domain.DashboardStats
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		revenue, err := s.stores.Stats.Revenue(ctx)
		stats.Revenue = revenue
		return err
	})
	g.Go(func() error {
		n, err := s.stores.Stats.CountOrders(ctx, "")
		stats.OrderCount = n
		return err
	})
	g.Go(func() error {
		n, err := s.stores.Stats.CountOrders(ctx, domain.OrderPending)
		stats.PendingOrders = n
		return err
	})
	g.Go(func() error {
		n, err := s.stores.Stats.CountProfiles(ctx)
		stats.UserCount = n
		return err
	})
	g.Go(func() error {
		orders, err := s.stores.Orders.ListOrders(ctx, "", RecentOrdersLimit)
		stats.RecentOrders = orders
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, domain.WrapError(err, domain.ErrorCode(err), "admin.dashboard", "Could not load the dashboard")
	}
	return &stats, nil
}

// Orders lists orders, newest first. An empty status lists all of them.
func (s *Service) Orders(ctx context.Context, status string) ([]domain.Order, error) {
	var filter domain.OrderStatus
	if status != "" && status != "all" {
		parsed, err := domain.ParseOrderStatus(status)
		if err != nil {
			return nil, err
		}
		filter = parsed
	}
	return s.stores.Orders.ListOrders(ctx, filter, ListLimit)
}

// UpdateOrderStatus overwrites an order's status.
func (s *Service) UpdateOrderStatus(ctx context.Context, actor *domain.User, orderID uuid.UUID, status string) (*domain.Order, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	next, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}

	before, err := s.stores.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order, err := s.stores.Orders.UpdateOrderStatus(ctx, orderID, next)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, actor, ActionOrderStatus, "order", orderID.String(), map[string]any{
		"from": before.Status,
		"to":   next,
	})
	return order, nil
}

// CreateProduct adds a product to the catalog.
func (s *Service) CreateProduct(ctx context.Context, actor *domain.User, in domain.ProductInput) (*domain.Product, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validateProduct("admin.create_product", in); err != nil {
		return nil, err
	}

	p, err := s.stores.Products.CreateProduct(ctx, in)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, actor, ActionProductCreate, "product", p.ID.String(), map[string]any{
		"name":  p.Name,
		"price": p.PriceDH.String(),
	})
	return p, nil
}

// UpdateProduct replaces a product's editable fields.
func (s *Service) UpdateProduct(ctx context.Context, actor *domain.User, id uuid.UUID, in domain.ProductInput) (*domain.Product, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validateProduct("admin.update_product", in); err != nil {
		return nil, err
	}

	p, err := s.stores.Products.UpdateProduct(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, actor, ActionProductUpdate, "product", id.String(), map[string]any{
		"name":  p.Name,
		"price": p.PriceDH.String(),
		"stock": p.Stock,
	})
	return p, nil
}

// DeleteProduct removes a product from the catalog. Past orders keep
// their product reference.
func (s *Service) DeleteProduct(ctx context.Context, actor *domain.User, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.stores.Products.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, actor, ActionProductDelete, "product", id.String(), nil)
	return nil
}

// Users lists profiles, newest first.
func (s *Service) Users(ctx context.Context) ([]domain.Profile, error) {
	return s.stores.Profiles.ListProfiles(ctx, ListLimit)
}

// Promote grants the admin role to the account registered under email.
// A nil actor means an operator acting from the command line.
func (s *Service) Promote(ctx context.Context, actor *domain.User, email string) (*domain.Profile, error) {
	if actor != nil {
		if err := requireAdmin(actor); err != nil {
			return nil, err
		}
	}

	p, err := s.stores.Profiles.GetProfileByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if p.Role == domain.RoleAdmin {
		return p, nil
	}
	if err := s.stores.Profiles.SetRole(ctx, p.ID, domain.RoleAdmin); err != nil {
		return nil, err
	}
	p.Role = domain.RoleAdmin

	s.audit(ctx, actor, ActionUserPromote, "profile", p.ID.String(), map[string]any{"email": p.Email})
	return p, nil
}

// CreateTournament schedules a new tournament.
func (s *Service) CreateTournament(ctx context.Context, actor *domain.User, in domain.TournamentInput) (*domain.Tournament, error) {
	const op = "admin.create_tournament"

	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validate.Struct(op, in); err != nil {
		return nil, err
	}
	if !in.StartsAt.After(s.now()) {
		return nil, domain.NewValidationError(op, "starts_at", "must be in the future")
	}

	t, err := s.stores.Tournaments.CreateTournament(ctx, in)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, actor, ActionTournamentCreate, "tournament", t.ID.String(), map[string]any{
		"name":      t.Name,
		"starts_at": t.StartsAt,
	})
	return t, nil
}

// CreatePointItem adds a reward to the point shop.
func (s *Service) CreatePointItem(ctx context.Context, actor *domain.User, in domain.PointItemInput) (*domain.PointShopItem, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validate.Struct("admin.create_point_item", in); err != nil {
		return nil, err
	}

	item, err := s.stores.PointShop.CreatePointItem(ctx, in)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, actor, ActionPointItemCreate, "point_item", item.ID.String(), map[string]any{
		"name": item.Name,
		"cost": item.CostPoints,
	})
	return item, nil
}

// Registrations lists the teams entered in a tournament.
func (s *Service) Registrations(ctx context.Context, tournamentID uuid.UUID) ([]domain.Registration, error) {
	return s.stores.Tournaments.ListRegistrations(ctx, tournamentID)
}

// AuditLog returns the newest audit entries. limit is clamped to
// 1..ListLimit; zero uses DefaultAuditLimit.
func (s *Service) AuditLog(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	switch {
	case limit == 0:
		limit = DefaultAuditLimit
	case limit < 1:
		limit = 1
	case limit > ListLimit:
		limit = ListLimit
	}
	return s.stores.Audit.ListAudit(ctx, limit)
}

func (s *Service) audit(ctx context.Context, actor *domain.User, action, targetType, targetID string, details map[string]any) {
	entry := domain.AuditEntry{
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
	}
	if actor != nil {
		entry.ActorID = actor.ID
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err == nil {
			entry.Details = raw
		}
	}

	if err := s.stores.Audit.AppendAudit(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Error("failed to write audit log",
			"action", action, "target_id", targetID, "actor_id", entry.ActorID, "error", err)
	}
}

func requireAdmin(actor *domain.User) error {
	if actor == nil {
		return domain.ErrLoginRequired
	}
	if !actor.IsAdmin() {
		return domain.Forbidden("admin", "Admin access required")
	}
	return nil
}

func validateProduct(op string, in domain.ProductInput) error {
	if err := validate.Struct(op, in); err != nil {
		return err
	}
	if !in.PriceDH.IsPositive() {
		return domain.NewValidationError(op, "price_dh", "must be greater than 0")
	}
	if !in.PriceDH.Round(2).Equal(in.PriceDH) {
		return domain.NewValidationError(op, "price_dh", "cannot have more than two decimals")
	}
	return nil
}
