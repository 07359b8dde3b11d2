// Package admin serves the back-office JSON API. Every route sits behind
// middleware.RequireAdmin; the service re-checks the actor's role.
package admin

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/dukerupert/arena/internal/domain"
	"github.com/dukerupert/arena/internal/handler"
)

// Service is the admin use-case layer.
type Service interface {
	Dashboard(ctx context.Context) (*domain.DashboardStats, error)
	Orders(ctx context.Context, status string) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, actor *domain.User, orderID uuid.UUID, status string) (*domain.Order, error)
	CreateProduct(ctx context.Context, actor *domain.User, in domain.ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, actor *domain.User, id uuid.UUID, in domain.ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, actor *domain.User, id uuid.UUID) error
	Users(ctx context.Context) ([]domain.Profile, error)
	Promote(ctx context.Context, actor *domain.User, email string) (*domain.Profile, error)
	CreateTournament(ctx context.Context, actor *domain.User, in domain.TournamentInput) (*domain.Tournament, error)
	CreatePointItem(ctx context.Context, actor *domain.User, in domain.PointItemInput) (*domain.PointShopItem, error)
	Registrations(ctx context.Context, tournamentID uuid.UUID) ([]domain.Registration, error)
	AuditLog(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}

// Handler serves every admin route.
type Handler struct {
	svc Service
}

// NewHandler creates an admin handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// Dashboard handles GET /api/admin/dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Dashboard(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, stats)
}

// Orders handles GET /api/admin/orders?status=
func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.Orders(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	handler.WriteJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus handles PATCH /api/admin/orders/{id}
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	const op = "admin.update_order_status"

	id, err := handler.PathUUID(r, "id", op)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var req statusRequest
	if err := handler.DecodeJSON(r, op, &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	order, err := h.svc.UpdateOrderStatus(r.Context(), domain.UserFromContext(r.Context()), id, req.Status)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, order)
}

// CreateProduct handles POST /api/admin/products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in domain.ProductInput
	if err := handler.DecodeJSON(r, "admin.create_product", &in); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	product, err := h.svc.CreateProduct(r.Context(), domain.UserFromContext(r.Context()), in)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusCreated, product)
}

// UpdateProduct handles PUT /api/admin/products/{id}
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	const op = "admin.update_product"

	id, err := handler.PathUUID(r, "id", op)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var in domain.ProductInput
	if err := handler.DecodeJSON(r, op, &in); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	product, err := h.svc.UpdateProduct(r.Context(), domain.UserFromContext(r.Context()), id, in)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/admin/products/{id}
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id", "admin.delete_product")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	if err := h.svc.DeleteProduct(r.Context(), domain.UserFromContext(r.Context()), id); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Users handles GET /api/admin/users
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Users(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if users == nil {
		users = []domain.Profile{}
	}
	handler.WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

type promoteRequest struct {
	Email string `json:"email"`
}

// Promote handles POST /api/admin/users/promote
func (h *Handler) Promote(w http.ResponseWriter, r *http.Request) {
	var req promoteRequest
	if err := handler.DecodeJSON(r, "admin.promote", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	profile, err := h.svc.Promote(r.Context(), domain.UserFromContext(r.Context()), req.Email)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, profile)
}

// CreateTournament handles POST /api/admin/tournaments
func (h *Handler) CreateTournament(w http.ResponseWriter, r *http.Request) {
	var in domain.TournamentInput
	if err := handler.DecodeJSON(r, "admin.create_tournament", &in); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	t, err := h.svc.CreateTournament(r.Context(), domain.UserFromContext(r.Context()), in)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusCreated, t)
}

// Registrations handles GET /api/admin/tournaments/{id}/registrations
func (h *Handler) Registrations(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id", "admin.registrations")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	regs, err := h.svc.Registrations(r.Context(), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if regs == nil {
		regs = []domain.Registration{}
	}
	handler.WriteJSON(w, http.StatusOK, map[string]any{"registrations": regs})
}

// CreatePointItem handles POST /api/admin/point-items
func (h *Handler) CreatePointItem(w http.ResponseWriter, r *http.Request) {
	var in domain.PointItemInput
	if err := handler.DecodeJSON(r, "admin.create_point_item", &in); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	item, err := h.svc.CreatePointItem(r.Context(), domain.UserFromContext(r.Context()), in)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.WriteJSON(w, http.StatusCreated, item)
}

// AuditLog handles GET /api/admin/audit?limit=
func (h *Handler) AuditLog(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.svc.AuditLog(r.Context(), limit)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	handler.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
