package storefront

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/arena/internal/account"
	"github.com/dukerupert/arena/internal/cookie"
	"github.com/dukerupert/arena/internal/domain"
	"github.com/dukerupert/arena/internal/handler"
	"github.com/dukerupert/arena/internal/middleware"
	"github.com/dukerupert/arena/internal/session"
	"github.com/dukerupert/arena/internal/telemetry"
)

// Accounts creates and authenticates users.
type Accounts interface {
	Signup(ctx context.Context, form account.SignupForm) (*domain.Profile, error)
	Authenticate(ctx context.Context, form account.LoginForm) (*domain.Profile, error)
}

// Sessions starts, refreshes and ends sessions.
type Sessions interface {
	Login(ctx context.Context, userID uuid.UUID) (*session.Session, string, error)
	Refresh(ctx context.Context, s *session.Session) error
	Logout(ctx context.Context, id string) error
}

// AuthHandler handles signup, login, logout and the current profile.
type AuthHandler struct {
	accounts Accounts
	sessions Sessions
	cookies  *cookie.Config
	metrics  *telemetry.BusinessMetrics
	logger   *slog.Logger
}

// NewAuthHandler creates an auth handler. metrics may be nil.
func NewAuthHandler(accounts Accounts, sessions Sessions, cookies *cookie.Config, metrics *telemetry.BusinessMetrics, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		accounts: accounts,
		sessions: sessions,
		cookies:  cookies,
		metrics:  metrics,
		logger:   logger,
	}
}

type sessionResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Profile   profileResponse `json:"profile"`
}

// Signup handles POST /api/auth/signup. A new account is signed in at once.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var form account.SignupForm
	if err := handler.DecodeJSON(r, "auth.signup", &form); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	profile, err := h.accounts.Signup(r.Context(), form)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	h.metrics.ObserveSignup()

	h.startSession(w, r, profile, http.StatusCreated)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var form account.LoginForm
	if err := handler.DecodeJSON(r, "auth.login", &form); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	profile, err := h.accounts.Authenticate(r.Context(), form)
	if err != nil {
		h.metrics.ObserveLogin(false)
		middleware.GetLogger(r.Context(), h.logger).Info("login failed",
			"ip", middleware.GetClientIP(r),
			"error", domain.ErrorMessage(err),
		)
		handler.ErrorResponse(w, r, err)
		return
	}
	h.metrics.ObserveLogin(true)

	h.startSession(w, r, profile, http.StatusOK)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, profile *domain.Profile, status int) {
	s, token, err := h.sessions.Login(r.Context(), profile.ID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	h.cookies.Set(w, cookie.SessionName, token, time.Until(s.ExpiresAt))

	current, _ := s.Holder.Profile()
	handler.WriteJSON(w, status, sessionResponse{
		Token:     token,
		ExpiresAt: s.ExpiresAt,
		Profile:   newProfileResponse(current),
	})
}

// Logout handles POST /api/auth/logout. Logging out without a session
// still clears the cookie; a failed revocation keeps it so the client can
// retry.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if s := session.FromContext(r.Context()); s != nil {
		if err := h.sessions.Logout(r.Context(), s.ID); err != nil {
			h.logger.Error("logout failed", "session_id", s.ID, "error", err)
			handler.ErrorResponse(w, r, err)
			return
		}
	}
	h.cookies.Clear(w, cookie.SessionName)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}

	profile, ok := s.Holder.Profile()
	if !ok {
		handler.ErrorResponse(w, r, domain.ErrLoginRequired)
		return
	}

	handler.WriteJSON(w, http.StatusOK, newProfileResponse(profile))
}

// Refresh handles POST /api/me/refresh. The held profile is replaced with
// the gateway's current row.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	s, ok := requireSession(w, r)
	if !ok {
		return
	}

	if err := h.sessions.Refresh(r.Context(), s); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	profile, ok := s.Holder.Profile()
	if !ok {
		handler.ErrorResponse(w, r, domain.ErrLoginRequired)
		return
	}

	handler.WriteJSON(w, http.StatusOK, newProfileResponse(profile))
}
