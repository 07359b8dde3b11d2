// Package storefront serves the shopper-facing JSON API and the order chat
// websocket.
package storefront

import (
	"net/http"

	"github.com/dukerupert/arena/internal/domain"
	"github.com/dukerupert/arena/internal/handler"
	"github.com/dukerupert/arena/internal/session"
)

// requireSession returns the signed-in session of r or writes a 401.
func requireSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s := session.FromContext(r.Context())
	if s == nil || !s.Holder.Authenticated() {
		handler.ErrorResponse(w, r, domain.ErrLoginRequired)
		return nil, false
	}
	return s, true
}

// profileResponse wraps the held profile with the display balance.
type profileResponse struct {
	domain.Profile
	DisplayBalance string `json:"display_balance"`
}

func newProfileResponse(p domain.Profile) profileResponse {
	return profileResponse{Profile: p, DisplayBalance: domain.RoundDisplay(p.WalletBalance)}
}
