// Package middleware holds the HTTP middleware shared by every route group.
package middleware

import (
	"net/http"

	"github.com/dukerupert/arena/internal/domain"
	"github.com/dukerupert/arena/internal/handler"
)

type contextKey string

// respondUnauthorized is a convenience wrapper for 401 errors.
func respondUnauthorized(w http.ResponseWriter, r *http.Request) {
	handler.ErrorResponse(w, r, domain.Unauthorized("", "Please log in to continue."))
}

// respondForbidden is a convenience wrapper for 403 errors.
func respondForbidden(w http.ResponseWriter, r *http.Request) {
	handler.ErrorResponse(w, r, domain.Forbidden("", "You don't have permission to access this resource"))
}

// respondTooManyRequests is a convenience wrapper for 429 errors.
func respondTooManyRequests(w http.ResponseWriter, r *http.Request) {
	handler.ErrorResponse(w, r, domain.Errorf(domain.ERATELIMIT, "", "Too many requests. Please slow down."))
}

// respondStatus writes a bare envelope for statuses with no domain code.
func respondStatus(w http.ResponseWriter, status int, code, message string) {
	handler.WriteJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
