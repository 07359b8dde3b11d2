// Package cookie provides the cookie helpers shared by the session and device
// middleware.
package cookie

import (
	"net/http"
	"time"
)

const (
	// SessionName carries the signed session token.
	SessionName = "arena_session"

	// DeviceName identifies the browser for persisted cart state.
	DeviceName = "arena_device"

	// DeviceMaxAge keeps the device cookie for a year.
	DeviceMaxAge = 365 * 24 * time.Hour
)

// Config holds cookie configuration.
type Config struct {
	// Domain scopes cookies; empty means host-only.
	Domain string

	// Secure determines whether cookies require HTTPS.
	// Should be true in production, false in development.
	Secure bool
}

// NewConfig creates a new cookie configuration.
func NewConfig(domain string, secure bool) *Config {
	return &Config{Domain: domain, Secure: secure}
}

// Set writes an HttpOnly, SameSite=Lax cookie on path "/".
func (c *Config) Set(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Domain:   c.Domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear removes a cookie by setting MaxAge to -1.
func (c *Config) Clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Domain:   c.Domain,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Value returns the named cookie's value, or "" if absent.
func Value(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
