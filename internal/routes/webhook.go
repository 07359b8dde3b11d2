package routes

import (
	"github.com/dukerupert/arena/internal/middleware"
	"github.com/dukerupert/arena/internal/router"
)

// RegisterWebhookRoutes registers all webhook routes.
//
// Webhook routes do NOT have authentication middleware. Each webhook
// handler verifies the request signature itself.
func RegisterWebhookRoutes(r *router.Router, deps WebhookDeps) {
	r.Post("/webhooks/stripe", deps.StripeHandler,
		middleware.MaxBodySize(middleware.WebhookMaxBodySize),
		middleware.Timeout(),
	)
}
