package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/arena/internal/cookie"
	"github.com/dukerupert/arena/internal/domain"
	"github.com/dukerupert/arena/internal/session"
)

type mockResolver struct {
	ResolveFunc func(ctx context.Context, token string) (*session.Session, error)
}

func (m *mockResolver) Resolve(ctx context.Context, token string) (*session.Session, error) {
	return m.ResolveFunc(ctx, token)
}

func liveSession(role domain.Role) *session.Session {
	p := domain.Profile{ID: uuid.New(), Email: "player@arena.ma", Role: role}
	return &session.Session{ID: "sess-1", UserID: p.ID, Holder: session.NewHolder(&p)}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error.Code
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	t.Run("generates", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	})

	t.Run("keeps upstream id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "lb-123")
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "lb-123", seen)
	})
}

func TestSessions(t *testing.T) {
	cookies := cookie.NewConfig("", false)

	t.Run("attaches user from cookie", func(t *testing.T) {
		s := liveSession(domain.RoleUser)
		resolver := &mockResolver{ResolveFunc: func(_ context.Context, token string) (*session.Session, error) {
			assert.Equal(t, "tok", token)
			return s, nil
		}}

		var user *domain.User
		var got *session.Session
		h := Sessions(resolver, cookies, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user = domain.UserFromContext(r.Context())
			got = session.FromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: cookie.SessionName, Value: "tok"})
		h.ServeHTTP(httptest.NewRecorder(), req)

		require.NotNil(t, user)
		assert.Equal(t, s.UserID, user.ID)
		assert.Same(t, s, got)
	})

	t.Run("accepts bearer token", func(t *testing.T) {
		resolver := &mockResolver{ResolveFunc: func(_ context.Context, token string) (*session.Session, error) {
			assert.Equal(t, "bearer-tok", token)
			return liveSession(domain.RoleUser), nil
		}}
		var authed bool
		h := Sessions(resolver, cookies, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authed = domain.IsAuthenticated(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer bearer-tok")
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.True(t, authed)
	})

	t.Run("ended session clears cookie and continues anonymously", func(t *testing.T) {
		resolver := &mockResolver{ResolveFunc: func(context.Context, string) (*session.Session, error) {
			return nil, session.ErrSessionEnded
		}}
		var authed bool
		h := Sessions(resolver, cookies, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authed = domain.IsAuthenticated(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: cookie.SessionName, Value: "old"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.False(t, authed)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, -1, cookies[0].MaxAge)
	})

	t.Run("no token skips lookup", func(t *testing.T) {
		resolver := &mockResolver{ResolveFunc: func(context.Context, string) (*session.Session, error) {
			t.Fatal("resolver should not be called")
			return nil, nil
		}}
		rec := httptest.NewRecorder()
		Sessions(resolver, cookies, nil)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRequireAuthAndAdmin(t *testing.T) {
	withUser := func(role domain.Role) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/api/admin", nil)
		user := &domain.User{ID: uuid.New(), Role: role}
		return req.WithContext(domain.NewContextWithUser(req.Context(), user))
	}

	tests := []struct {
		name   string
		mw     func(http.Handler) http.Handler
		req    *http.Request
		status int
		code   string
	}{
		{"auth anonymous", RequireAuth, httptest.NewRequest(http.MethodGet, "/api/me", nil), http.StatusUnauthorized, domain.EUNAUTHORIZED},
		{"auth user", RequireAuth, withUser(domain.RoleUser), http.StatusOK, ""},
		{"admin anonymous", RequireAdmin, httptest.NewRequest(http.MethodGet, "/api/admin", nil), http.StatusUnauthorized, domain.EUNAUTHORIZED},
		{"admin as user", RequireAdmin, withUser(domain.RoleUser), http.StatusForbidden, domain.EFORBIDDEN},
		{"admin as admin", RequireAdmin, withUser(domain.RoleAdmin), http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.mw(okHandler).ServeHTTP(rec, tt.req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(t, rec))
			}
		})
	}
}

func TestWithDevice(t *testing.T) {
	cookies := cookie.NewConfig("", false)
	var id string
	h := WithDevice(cookies)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id = GetDeviceID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	issued := rec.Result().Cookies()
	require.Len(t, issued, 1)
	assert.Equal(t, cookie.DeviceName, issued[0].Name)
	assert.Equal(t, issued[0].Value, id)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(issued[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Result().Cookies(), "existing device cookie is kept")
	assert.Equal(t, issued[0].Value, id)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: 0.001,
		BurstSize:         2,
		KeyFunc:           func(r *http.Request) string { return r.Header.Get("X-Key") },
	})
	defer rl.Stop()

	h := rl.Middleware(okHandler)
	do := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.Header.Set("X-Key", key)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do("a").Code)
	assert.Equal(t, http.StatusOK, do("a").Code)

	rec := do("a")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, domain.ERATELIMIT, errorCode(t, rec))

	assert.Equal(t, http.StatusOK, do("b").Code, "keys are limited independently")
}

func TestPerMinute(t *testing.T) {
	cfg := PerMinute(120)
	assert.InDelta(t, 2.0, cfg.RequestsPerSecond, 0.0001)
	assert.Equal(t, 30, cfg.BurstSize)
	assert.Equal(t, 1, PerMinute(2).BurstSize)
}

func TestMaxBodySize(t *testing.T) {
	h := MaxBodySize(8)(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTimeout(t *testing.T) {
	t.Run("slow handler gets 503", func(t *testing.T) {
		h := Timeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("fast handler keeps its response", func(t *testing.T) {
		h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Test", "1")
			w.WriteHeader(http.StatusCreated)
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("X-Test"))
	})

	t.Run("panics reach the caller", func(t *testing.T) {
		h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))
		assert.Panics(t, func() {
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		})
	})
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(DefaultSecurityHeadersConfig())(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	mux := http.NewServeMux()
	mux.Handle("GET /api/orders/{id}", m.Middleware(okHandler))

	for _, id := range []string{"a", "b", "c"} {
		mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/orders/"+id, nil))
	}

	count := testutil.ToFloat64(m.requestsTotal.WithLabelValues(http.MethodGet, "/api/orders/{id}", "200"))
	assert.Equal(t, 3.0, count, "ids collapse into the route pattern")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "test_http_requests_total")
}
