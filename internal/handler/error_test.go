package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/arena/internal/domain"
)

type envelope struct {
	Error struct {
		Code      string            `json:"code"`
		Message   string            `json:"message"`
		Fields    map[string]string `json:"fields"`
		RequestID string            `json:"request_id"`
	} `json:"error"`
}

func serveError(t *testing.T, path string, err error) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req = req.WithContext(domain.NewContextWithRequestID(req.Context(), "req-42"))
	rec := httptest.NewRecorder()

	ErrorResponse(rec, req, err)

	var body envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	}
	return rec, body
}

func TestErrorResponse_ArenaErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{
			name:    "checkout already running",
			err:     domain.ErrCheckoutInFlight,
			status:  http.StatusConflict,
			code:    domain.ECONFLICT,
			message: "A checkout is already in progress",
		},
		{
			name:    "wallet too low",
			err:     fmt.Errorf("checkout.begin: %w", domain.ErrInsufficientFunds),
			status:  http.StatusPaymentRequired,
			code:    domain.EPAYMENT,
			message: "Insufficient wallet balance. Please top up your wallet.",
		},
		{
			name:    "not enough points",
			err:     domain.ErrInsufficientPoints,
			status:  http.StatusPaymentRequired,
			code:    domain.EPAYMENT,
			message: "Not enough points for this reward",
		},
		{
			name:    "reward sold out",
			err:     domain.ErrPointItemUnavailable,
			status:  http.StatusGone,
			code:    domain.EGONE,
			message: "This reward is out of stock",
		},
		{
			name:    "deposit replayed",
			err:     domain.ErrDepositAlreadyApplied,
			status:  http.StatusConflict,
			code:    domain.ECONFLICT,
			message: "Deposit already applied",
		},
		{
			name:    "deposit below minimum",
			err:     domain.ErrDepositTooSmall,
			status:  http.StatusBadRequest,
			code:    domain.EINVALID,
			message: "Minimum deposit is 5.00 DH",
		},
		{
			name:    "gateway failure hides detail",
			err:     domain.ErrCheckoutUnavailable,
			status:  http.StatusInternalServerError,
			code:    domain.EINTERNAL,
			message: "An internal error occurred. Please try again later.",
		},
		{
			name:    "database address never leaks",
			err:     domain.Internal(fmt.Errorf("dial tcp 10.0.0.5:5432: refused"), "wallet.credit", "credit failed"),
			status:  http.StatusInternalServerError,
			code:    domain.EINTERNAL,
			message: "An internal error occurred. Please try again later.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := serveError(t, "/api/checkout", tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Equal(t, tt.message, body.Error.Message)
			assert.Equal(t, "req-42", body.Error.RequestID)
			assert.Empty(t, body.Error.Fields)
		})
	}
}

func TestErrorResponse_ValidationFields(t *testing.T) {
	err := domain.NewValidationError("wallet.deposit", "amount", "must be at least 5.00")
	err = domain.AddFieldError(err, "currency", "is not supported")

	rec, body := serveError(t, "/api/wallet/deposit", err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.EINVALID, body.Error.Code)
	assert.Equal(t, "Please check the highlighted fields and try again.", body.Error.Message)
	assert.Equal(t, map[string]string{
		"amount":   "must be at least 5.00",
		"currency": "is not supported",
	}, body.Error.Fields)
}

func TestErrorResponse_SingleFieldNamesIt(t *testing.T) {
	rec, body := serveError(t, "/api/tournaments/x/register", domain.NewValidationError("tournament.register", "id", "must be a valid id"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "id must be a valid id", body.Error.Message)
	assert.Equal(t, map[string]string{"id": "must be a valid id"}, body.Error.Fields)
}

func TestErrorResponse_SupersededRequests(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"aborted chat page", domain.Aborted("chat.load_older", context.Canceled)},
		{"bare cancellation", fmt.Errorf("catalog.list: %w", context.Canceled)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := serveError(t, "/api/chat/older", tt.err)

			assert.Equal(t, StatusClientClosedRequest, rec.Code)
			assert.Equal(t, domain.EABORTED, body.Error.Code)
		})
	}
}

func TestErrorResponse_BrowserGetsPage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/checkout", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()

	ErrorResponse(rec, req, domain.ErrInsufficientFunds)

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.NotContains(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Contains(t, rec.Body.String(), "Insufficient wallet balance")
}

func TestValidationErrorResponse_FallsBack(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/points/redeem", nil)
	rec := httptest.NewRecorder()

	ValidationErrorResponse(rec, req, domain.ErrPointItemNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := map[string]int{
		domain.EINVALID:      http.StatusBadRequest,
		domain.EUNAUTHORIZED: http.StatusUnauthorized,
		domain.EPAYMENT:      http.StatusPaymentRequired,
		domain.EFORBIDDEN:    http.StatusForbidden,
		domain.ENOTFOUND:     http.StatusNotFound,
		domain.ECONFLICT:     http.StatusConflict,
		domain.EGONE:         http.StatusGone,
		domain.ERATELIMIT:    http.StatusTooManyRequests,
		domain.ENOTIMPL:      http.StatusNotImplemented,
		domain.EABORTED:      499,
		domain.EINTERNAL:     http.StatusInternalServerError,
		"unknown":            http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, ErrorCodeToHTTPStatus(code), code)
	}
}

func TestAcceptsJSON(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		accept string
		want   bool
	}{
		{name: "api route", path: "/api/cart", want: true},
		{name: "explicit accept", path: "/cart", accept: "application/json; charset=utf-8", want: true},
		{name: "browser page", path: "/cart", accept: "text/html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			assert.Equal(t, tt.want, acceptsJSON(req))
		})
	}
}

func TestRenderRecovery(t *testing.T) {
	rec := httptest.NewRecorder()

	RenderRecovery(rec, "req-1")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Reload")
	assert.Contains(t, rec.Body.String(), "req-1")
}
