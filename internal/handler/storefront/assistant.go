package storefront

import (
	"context"
	"net/http"

	"github.com/dukerupert/arena/internal/assistant"
	"github.com/dukerupert/arena/internal/domain"
	"github.com/dukerupert/arena/internal/handler"
	"github.com/dukerupert/arena/internal/telemetry"
)

// Assistant answers shopper questions.
type Assistant interface {
	Enabled() bool
	Reply(ctx context.Context, user *domain.User, conversationID, message string) (*assistant.Reply, error)
}

// AssistantHandler serves the store assistant.
type AssistantHandler struct {
	assistant Assistant
	metrics   *telemetry.BusinessMetrics
}

// NewAssistantHandler creates an assistant handler. metrics may be nil.
func NewAssistantHandler(a Assistant, metrics *telemetry.BusinessMetrics) *AssistantHandler {
	return &AssistantHandler{assistant: a, metrics: metrics}
}

type assistantRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

// Ask handles POST /api/assistant. Anonymous visitors may ask too.
func (h *AssistantHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req assistantRequest
	if err := handler.DecodeJSON(r, "assistant.ask", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	reply, err := h.assistant.Reply(r.Context(), domain.UserFromContext(r.Context()), req.ConversationID, req.Message)
	if err != nil {
		h.metrics.ObserveAssistant(domain.ErrorCode(err))
		handler.ErrorResponse(w, r, err)
		return
	}
	h.metrics.ObserveAssistant("answered")

	handler.WriteJSON(w, http.StatusOK, reply)
}

// Status handles GET /api/assistant
func (h *AssistantHandler) Status(w http.ResponseWriter, r *http.Request) {
	handler.WriteJSON(w, http.StatusOK, map[string]bool{"enabled": h.assistant.Enabled()})
}
