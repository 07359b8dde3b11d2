package storefront

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/dukerupert/arena/internal/domain"
	"github.com/dukerupert/arena/internal/handler"
	"github.com/dukerupert/arena/internal/tournament"
)

// Tournaments lists tournaments and takes team registrations.
type Tournaments interface {
	Upcoming(ctx context.Context) ([]domain.Tournament, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Tournament, error)
	Register(ctx context.Context, user *domain.User, tournamentID uuid.UUID, form tournament.RegistrationForm) (*domain.Registration, error)
}

// TournamentHandler serves tournament browsing and registration.
type TournamentHandler struct {
	tournaments Tournaments
}

// NewTournamentHandler creates a tournament handler.
func NewTournamentHandler(t Tournaments) *TournamentHandler {
	return &TournamentHandler{tournaments: t}
}

// List handles GET /api/tournaments
func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.tournaments.Upcoming(r.Context())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if list == nil {
		list = []domain.Tournament{}
	}

	handler.WriteJSON(w, http.StatusOK, map[string]any{"tournaments": list})
}

// Get handles GET /api/tournaments/{id}
func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathUUID(r, "id", "tournament.get")
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	t, err := h.tournaments.Get(r.Context(), id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.WriteJSON(w, http.StatusOK, t)
}

// Register handles POST /api/tournaments/{id}/registrations
func (h *TournamentHandler) Register(w http.ResponseWriter, r *http.Request) {
	const op = "tournament.register"

	s, ok := requireSession(w, r)
	if !ok {
		return
	}

	id, err := handler.PathUUID(r, "id", op)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	var form tournament.RegistrationForm
	if err := handler.DecodeJSON(r, op, &form); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	reg, err := h.tournaments.Register(r.Context(), s.User(), id, form)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.WriteJSON(w, http.StatusCreated, reg)
}
