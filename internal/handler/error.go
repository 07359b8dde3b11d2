package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/arena/internal/domain"
)

// StatusClientClosedRequest is the nginx convention for a request whose
// result is no longer wanted by the client.
const StatusClientClosedRequest = 499

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EPAYMENT:
		return http.StatusPaymentRequired
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.EGONE:
		return http.StatusGone
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests
	case domain.ENOTIMPL:
		return http.StatusNotImplemented
	case domain.EABORTED:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// ErrorResponse writes err as a JSON envelope or, for browsers, a small
// HTML page. Internal errors are logged with their operation and hidden
// behind a generic message.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	status := ErrorCodeToHTTPStatus(code)
	message := domain.ErrorMessage(err)
	requestID := domain.RequestIDFromContext(r.Context())

	switch code {
	case domain.EINTERNAL:
		slog.Error("request failed",
			"op", domain.ErrorOp(err),
			"error", err,
			"path", r.URL.Path,
			"request_id", requestID,
		)
	case domain.EABORTED:
		slog.Debug("request aborted", "op", domain.ErrorOp(err), "path", r.URL.Path)
	}

	body := errorBody{
		Code:      code,
		Message:   message,
		Fields:    domain.GetValidationFields(err),
		RequestID: requestID,
	}

	if acceptsJSON(r) {
		WriteJSON(w, status, errorEnvelope{Error: body})
		return
	}
	RenderError(w, status, body.Message, requestID)
}

// ValidationErrorResponse writes field errors. Other errors fall back to
// ErrorResponse.
func ValidationErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		ErrorResponse(w, r, err)
		return
	}
	ErrorResponse(w, r, ve)
}

// NotFoundResponse writes a generic 404.
func NotFoundResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, &domain.Error{Code: domain.ENOTFOUND, Message: "Not found"})
}

// UnauthorizedResponse writes a generic 401.
func UnauthorizedResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Unauthorized("", "Please log in to continue."))
}

// ForbiddenResponse writes a generic 403.
func ForbiddenResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Forbidden("", "You do not have access to this resource."))
}

// InternalErrorResponse wraps err as an internal error.
func InternalErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	ErrorResponse(w, r, domain.Internal(err, "", "internal error"))
}

// acceptsJSON reports whether the client wants a JSON error.
func acceptsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	if strings.HasSuffix(r.URL.Path, ".json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
