// Package tournament lists upcoming tournaments and registers teams.
package tournament

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/arena/internal/domain"
	"github.com/dukerupert/arena/internal/validate"
)

// RegistrationForm is what a captain submits to enter a tournament.
type RegistrationForm struct {
	TeamName   string   `json:"team_name" validate:"required,min=2,max=40"`
	DiscordTag string   `json:"discord_tag" validate:"required,discord"`
	Members    []string `json:"members" validate:"required,min=1,max=10,dive,required,max=40"`
}

// normalize trims every field and drops blank member entries.
func (f RegistrationForm) normalize() RegistrationForm {
	out := RegistrationForm{
		TeamName:   strings.TrimSpace(f.TeamName),
		DiscordTag: strings.TrimSpace(f.DiscordTag),
	}
	for _, m := range f.Members {
		if m = strings.TrimSpace(m); m != "" {
			out.Members = append(out.Members, m)
		}
	}
	return out
}

// Observer is notified with "registered" or "rejected".
type Observer func(outcome string)

// Service wraps the tournament collections.
type Service struct {
	store    domain.TournamentStore
	logger   *slog.Logger
	observer Observer
	now      func() time.Time
}

// NewService creates a tournament service.
func NewService(store domain.TournamentStore, logger *slog.Logger, observer Observer) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		logger:   logger.With("service", "tournament"),
		observer: observer,
		now:      time.Now,
	}
}

// Upcoming returns open tournaments that have not started yet.
func (s *Service) Upcoming(ctx context.Context) ([]domain.Tournament, error) {
	return s.store.ListUpcomingTournaments(ctx, s.now())
}

// Get returns one tournament.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Tournament, error) {
	return s.store.GetTournament(ctx, id)
}

// Register enters user's team into a tournament. The roster must match the
// tournament's team size and list each member once.
func (s *Service) Register(ctx context.Context, user *domain.User, tournamentID uuid.UUID, form RegistrationForm) (*domain.Registration, error) {
	const op = "tournament.register"

	if user == nil {
		return nil, domain.ErrLoginRequired
	}

	form = form.normalize()
	if err := validate.Struct(op, form); err != nil {
		s.observe("rejected")
		return nil, err
	}

	t, err := s.store.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if t.Status != domain.TournamentOpen || !t.StartsAt.After(s.now()) {
		s.observe("rejected")
		return nil, domain.ErrTournamentClosed
	}
	if t.Full() {
		s.observe("rejected")
		return nil, domain.ErrTournamentFull
	}
	if err := checkRoster(op, form.Members, t.TeamSize); err != nil {
		s.observe("rejected")
		return nil, err
	}

	reg, err := s.store.CreateRegistration(ctx, domain.Registration{
		TournamentID: tournamentID,
		UserID:       user.ID,
		TeamName:     form.TeamName,
		DiscordTag:   form.DiscordTag,
		Members:      form.Members,
	})
	if err != nil {
		s.observe("rejected")
		return nil, err
	}

	s.observe("registered")
	s.logger.Info("team registered", "tournament_id", tournamentID, "user_id", user.ID, "team", form.TeamName)
	return reg, nil
}

func checkRoster(op string, members []string, teamSize int) error {
	if teamSize > 0 && len(members) != teamSize {
		return domain.NewValidationError(op, "members", teamSizeMessage(teamSize))
	}
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		key := strings.ToLower(m)
		if seen[key] {
			return domain.NewValidationError(op, "members", "lists "+m+" more than once")
		}
		seen[key] = true
	}
	return nil
}

func teamSizeMessage(n int) string {
	if n == 1 {
		return "must list exactly 1 player"
	}
	return fmt.Sprintf("must list exactly %d players", n)
}

// Registrations lists the teams entered in a tournament.
func (s *Service) Registrations(ctx context.Context, tournamentID uuid.UUID) ([]domain.Registration, error) {
	return s.store.ListRegistrations(ctx, tournamentID)
}

func (s *Service) observe(outcome string) {
	if s.observer != nil {
		s.observer(outcome)
	}
}
