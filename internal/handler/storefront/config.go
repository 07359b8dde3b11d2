package storefront

import (
	"net/http"

	"github.com/dukerupert/arena/internal/handler"
)

// ClientConfig is the public configuration the browser needs.
type ClientConfig struct {
	StripePublishableKey string `json:"stripe_publishable_key"`
	Currency             string `json:"currency"`
	AssistantEnabled     bool   `json:"assistant_enabled"`
}

// ConfigHandler handles GET /api/config
func ConfigHandler(cfg ClientConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handler.WriteJSON(w, http.StatusOK, cfg)
	}
}
