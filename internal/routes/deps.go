package routes

import (
	"net/http"

	"github.com/dukerupert/arena/internal/handler/admin"
	"github.com/dukerupert/arena/internal/handler/storefront"
	"github.com/dukerupert/arena/internal/middleware"
)

// StorefrontDeps contains dependencies for storefront routes
type StorefrontDeps struct {
	// Catalog (products, categories)
	CatalogHandler *storefront.CatalogHandler

	// Cart (device scoped)
	CartHandler *storefront.CartHandler

	// Checkout
	CheckoutHandler *storefront.CheckoutHandler

	// Auth (signup, login, logout, current profile)
	AuthHandler *storefront.AuthHandler

	// Orders and the order support chat
	OrderHandler *storefront.OrderHandler
	ChatHandler  *storefront.ChatHandler

	// Wallet deposits and history
	WalletHandler *storefront.WalletHandler

	// Point shop
	PointsHandler *storefront.PointsHandler

	// Tournaments
	TournamentHandler *storefront.TournamentHandler

	// Store assistant
	AssistantHandler *storefront.AssistantHandler

	// Public client configuration
	ConfigHandler http.HandlerFunc

	// Rate limiters for credential and general API routes
	AuthLimiter *middleware.RateLimiter
	APILimiter  *middleware.RateLimiter
}

// AdminDeps contains dependencies for admin routes
type AdminDeps struct {
	Handler *admin.Handler
}

// WebhookDeps contains dependencies for webhook routes
type WebhookDeps struct {
	StripeHandler http.HandlerFunc
}

// SystemDeps contains dependencies for operational routes
type SystemDeps struct {
	Health  http.HandlerFunc
	Metrics http.Handler
}
