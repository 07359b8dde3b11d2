package routes

import (
	"github.com/dukerupert/arena/internal/middleware"
	"github.com/dukerupert/arena/internal/router"
)

// RegisterAdminRoutes registers all back-office routes.
// All routes are protected by admin authentication middleware.
func RegisterAdminRoutes(r *router.Router, deps AdminDeps) {
	admin := r.Group(
		middleware.RequireAdmin,
		middleware.MaxBodySize(),
		middleware.Timeout(),
	)
	h := deps.Handler

	admin.Get("/api/admin/dashboard", h.Dashboard)

	// Orders
	admin.Get("/api/admin/orders", h.Orders)
	admin.Patch("/api/admin/orders/{id}", h.UpdateOrderStatus)

	// Products
	admin.Post("/api/admin/products", h.CreateProduct)
	admin.Put("/api/admin/products/{id}", h.UpdateProduct)
	admin.Delete("/api/admin/products/{id}", h.DeleteProduct)

	// Users
	admin.Get("/api/admin/users", h.Users)
	admin.Post("/api/admin/users/promote", h.Promote)

	// Tournaments and rewards
	admin.Post("/api/admin/tournaments", h.CreateTournament)
	admin.Get("/api/admin/tournaments/{id}/registrations", h.Registrations)
	admin.Post("/api/admin/point-items", h.CreatePointItem)

	admin.Get("/api/admin/audit", h.AuditLog)
}
