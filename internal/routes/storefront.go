package routes

import (
	"github.com/dukerupert/arena/internal/middleware"
	"github.com/dukerupert/arena/internal/router"
)

// RegisterStorefrontRoutes registers all shopper-facing API routes.
//
// Every route except the chat websocket runs under the request timeout; a
// hijacked connection cannot be bounded that way.
func RegisterStorefrontRoutes(r *router.Router, deps StorefrontDeps) {
	api := r.Group(
		deps.APILimiter.Middleware,
		middleware.MaxBodySize(),
		middleware.Timeout(),
	)

	api.Get("/api/config", deps.ConfigHandler)

	// Catalog
	api.Get("/api/products", deps.CatalogHandler.List)
	api.Get("/api/products/{id}", deps.CatalogHandler.Get)
	api.Get("/api/categories", deps.CatalogHandler.Categories)

	// Cart
	api.Get("/api/cart", deps.CartHandler.View)
	api.Post("/api/cart/items", deps.CartHandler.Add)
	api.Patch("/api/cart/items/{product_id}", deps.CartHandler.SetQuantity)
	api.Delete("/api/cart/items/{product_id}", deps.CartHandler.Remove)
	api.Delete("/api/cart", deps.CartHandler.Clear)

	// Point shop and tournaments (browsing is public)
	api.Get("/api/points/items", deps.PointsHandler.Items)
	api.Get("/api/tournaments", deps.TournamentHandler.List)
	api.Get("/api/tournaments/{id}", deps.TournamentHandler.Get)

	// Assistant (anonymous visitors may ask)
	api.Get("/api/assistant", deps.AssistantHandler.Status)

	slow := r.Group(
		deps.APILimiter.Middleware,
		middleware.MaxBodySize(),
		middleware.Timeout(middleware.LongTimeout),
	)
	slow.Post("/api/assistant", deps.AssistantHandler.Ask)

	// Credential routes get the stricter limiter
	auth := api.Group(deps.AuthLimiter.Middleware)
	auth.Post("/api/auth/signup", deps.AuthHandler.Signup)
	auth.Post("/api/auth/login", deps.AuthHandler.Login)
	api.Post("/api/auth/logout", deps.AuthHandler.Logout)

	// Signed-in routes
	account := api.Group(middleware.RequireAuth)
	account.Get("/api/me", deps.AuthHandler.Me)
	account.Post("/api/me/refresh", deps.AuthHandler.Refresh)
	account.Post("/api/checkout", deps.CheckoutHandler.Checkout)
	account.Get("/api/orders", deps.OrderHandler.List)
	account.Get("/api/orders/{id}", deps.OrderHandler.Get)
	account.Post("/api/wallet/deposits", deps.WalletHandler.StartDeposit)
	account.Post("/api/wallet/deposits/{intent_id}/complete", deps.WalletHandler.CompleteDeposit)
	account.Get("/api/wallet/history", deps.WalletHandler.History)
	account.Post("/api/points/items/{id}/redeem", deps.PointsHandler.Redeem)
	account.Post("/api/tournaments/{id}/registrations", deps.TournamentHandler.Register)

	// Order chat websocket
	r.Get("/api/orders/{id}/chat", deps.ChatHandler.Serve, deps.APILimiter.Middleware, middleware.RequireAuth)
}
