package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/arena/internal/auth"
	"github.com/dukerupert/arena/internal/domain"
)

var ErrSessionEnded = &domain.Error{Code: domain.EUNAUTHORIZED, Message: "Your session has ended. Please log in again."}

// ProfileLookup fetches profiles from the gateway.
type ProfileLookup interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
}

// Session is one signed-in browser session.
type Session struct {
	ID        string
	UserID    uuid.UUID
	ExpiresAt time.Time
	Holder    *Holder
}

// User returns the request identity of the session, or nil once signed out.
func (s *Session) User() *domain.User {
	p, ok := s.Holder.Profile()
	if !ok {
		return nil
	}
	return &domain.User{ID: p.ID, SessionID: s.ID, Email: p.Email, Role: p.Role}
}

// LogoutHook runs after a session is logged out.
type LogoutHook func(sessionID string)

// Revocations records signed-out session ids until their tokens expire.
// Every instance sharing the store rejects a revoked token.
type Revocations interface {
	Revoke(ctx context.Context, sessionID string, until time.Time) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
	PurgeRevocations(ctx context.Context, now time.Time) (int64, error)
}

// Manager is the registry of live sessions.
type Manager struct {
	profiles    ProfileLookup
	tokens      *auth.TokenIssuer
	revocations Revocations
	logger      *slog.Logger
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	byUser   map[uuid.UUID]map[string]*Session
	hooks    []LogoutHook
}

// Option configures a Manager.
type Option func(*Manager)

// WithRevocations replaces the in-process revocation list, which does not
// survive a restart and is not shared between instances.
func WithRevocations(r Revocations) Option {
	return func(m *Manager) {
		m.revocations = r
	}
}

// NewManager creates a session registry.
func NewManager(profiles ProfileLookup, tokens *auth.TokenIssuer, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		profiles:    profiles,
		tokens:      tokens,
		revocations: NewMemoryRevocations(),
		logger:      logger,
		now:         time.Now,
		sessions:    make(map[string]*Session),
		byUser:      make(map[uuid.UUID]map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnLogout registers a hook run for every logged-out session.
func (m *Manager) OnLogout(hook LogoutHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook)
}

// Login starts a session for userID and returns it with its signed token.
func (m *Manager) Login(ctx context.Context, userID uuid.UUID) (*Session, string, error) {
	const op = "session.login"

	profile, err := m.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, "", domain.WrapError(err, domain.ErrorCode(err), op, domain.ErrorMessage(err))
	}

	id := uuid.NewString()
	token, expires, err := m.tokens.Issue(userID, id)
	if err != nil {
		return nil, "", domain.Internal(err, op, "failed to issue session token")
	}

	s := &Session{ID: id, UserID: userID, ExpiresAt: expires, Holder: NewHolder(profile)}
	m.register(s)

	m.logger.Info("session started", "session_id", id, "user_id", userID)
	return s, token, nil
}

// Resolve maps a token to its session. A valid token whose session is not
// in memory (after a restart or on another instance) is rebuilt from a
// fresh profile lookup. A revoked token ends any copy held here.
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, error) {
	const op = "session.resolve"

	claims, err := m.tokens.Parse(token)
	if err != nil {
		return nil, domain.WrapError(err, domain.EUNAUTHORIZED, op, "Invalid session")
	}
	userID, _ := claims.UserID()

	revoked, err := m.revocations.IsRevoked(ctx, claims.SessionID())
	if err != nil {
		return nil, domain.WrapError(err, domain.EINTERNAL, op, "failed to check session")
	}
	if revoked {
		m.end(claims.SessionID())
		return nil, ErrSessionEnded
	}

	if s, ok := m.Get(claims.SessionID()); ok {
		return s, nil
	}

	profile, err := m.profiles.GetProfile(ctx, userID)
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			return nil, ErrSessionEnded
		}
		return nil, domain.WrapError(err, domain.EINTERNAL, op, "failed to load profile")
	}

	s := &Session{
		ID:        claims.SessionID(),
		UserID:    userID,
		ExpiresAt: claims.ExpiresAt.Time,
		Holder:    NewHolder(profile),
	}
	return m.register(s), nil
}

// register stores s unless another request rebuilt it first, and returns
// the registered session.
func (m *Manager) register(s *Session) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[s.ID]; ok {
		return existing
	}
	m.sessions[s.ID] = s
	if m.byUser[s.UserID] == nil {
		m.byUser[s.UserID] = make(map[string]*Session)
	}
	m.byUser[s.UserID][s.ID] = s
	return s
}

// Refresh re-fetches the profile of s and replaces it wholesale.
func (m *Manager) Refresh(ctx context.Context, s *Session) error {
	profile, err := m.profiles.GetProfile(ctx, s.UserID)
	if err != nil {
		return domain.WrapError(err, domain.ErrorCode(err), "session.refresh", "failed to refresh profile")
	}
	if s.Holder.Authenticated() {
		s.Holder.Set(*profile)
	}
	return nil
}

// Get returns a live session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// ForUser returns every live session of a user.
func (m *Manager) ForUser(userID uuid.UUID) []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Session, 0, len(m.byUser[userID]))
	for _, s := range m.byUser[userID] {
		out = append(out, s)
	}
	return out
}

// PatchUser applies patch to every live session of a user and returns how
// many were patched.
func (m *Manager) PatchUser(userID uuid.UUID, patch domain.ProfilePatch) int {
	n := 0
	for _, s := range m.ForUser(userID) {
		if _, ok := s.Holder.Patch(patch); ok {
			n++
		}
	}
	return n
}

// Logout ends a session: the token is revoked until it expires, then the
// holder is cleared and logout hooks run. A failed revocation leaves the
// session untouched so the logout can be retried.
func (m *Manager) Logout(ctx context.Context, id string) error {
	s, ok := m.Get(id)
	if !ok {
		return nil
	}

	if err := m.revocations.Revoke(ctx, id, s.ExpiresAt); err != nil {
		return domain.WrapError(err, domain.EINTERNAL, "session.logout", "Could not sign out. Please try again.")
	}

	if m.end(id) {
		m.logger.Info("session ended", "session_id", id, "user_id", s.UserID)
	}
	return nil
}

// end drops a live session, clears its holder and runs the logout hooks.
// It reports whether the session was held here.
func (m *Manager) end(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		m.remove(s)
	}
	hooks := append([]LogoutHook(nil), m.hooks...)
	m.mu.Unlock()

	if !ok {
		return false
	}

	s.Holder.Clear()
	for _, hook := range hooks {
		hook(id)
	}
	return true
}

// remove drops s from the indexes. Callers hold m.mu.
func (m *Manager) remove(s *Session) {
	delete(m.sessions, s.ID)
	if byID := m.byUser[s.UserID]; byID != nil {
		delete(byID, s.ID)
		if len(byID) == 0 {
			delete(m.byUser, s.UserID)
		}
	}
}

// Sweep drops expired sessions and revocations. It returns the number of
// sessions dropped.
func (m *Manager) Sweep(ctx context.Context) int {
	now := m.now()

	if n, err := m.revocations.PurgeRevocations(ctx, now); err != nil {
		m.logger.Warn("failed to purge session revocations", "error", err)
	} else if n > 0 {
		m.logger.Debug("purged session revocations", "count", n)
	}

	m.mu.Lock()
	var expired []string
	for id, s := range m.sessions {
		if now.After(s.ExpiresAt) {
			m.remove(s)
			expired = append(expired, id)
		}
	}
	hooks := append([]LogoutHook(nil), m.hooks...)
	m.mu.Unlock()

	for _, id := range expired {
		for _, hook := range hooks {
			hook(id)
		}
	}
	return len(expired)
}

// Run sweeps expired sessions every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if n := m.Sweep(ctx); n > 0 {
				m.logger.Debug("swept expired sessions", "count", n)
			}
		}
	}
}
