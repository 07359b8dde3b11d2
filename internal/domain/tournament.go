package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTournamentNotFound = &Error{Code: ENOTFOUND, Message: "Tournament not found"}
	ErrTournamentClosed   = &Error{Code: EGONE, Message: "Registration for this tournament is closed"}
	ErrTournamentFull     = &Error{Code: ECONFLICT, Message: "This tournament is full"}
	ErrAlreadyRegistered  = &Error{Code: ECONFLICT, Message: "You are already registered for this tournament"}
)

// TournamentStatus tracks the registration window of a tournament.
type TournamentStatus string

const (
	TournamentOpen     TournamentStatus = "open"
	TournamentClosed   TournamentStatus = "closed"
	TournamentFinished TournamentStatus = "finished"
)

// Tournament is one tournaments row with its live registration count.
type Tournament struct {
	ID            uuid.UUID        `json:"id"`
	Name          string           `json:"name"`
	Game          string           `json:"game"`
	Description   string           `json:"description"`
	Prize         string           `json:"prize"`
	StartsAt      time.Time        `json:"starts_at"`
	MaxTeams      int              `json:"max_teams"`
	TeamSize      int              `json:"team_size"`
	Status        TournamentStatus `json:"status"`
	Registrations int              `json:"registrations"`
}

// Full reports whether no more teams can register.
func (t Tournament) Full() bool {
	return t.MaxTeams > 0 && t.Registrations >= t.MaxTeams
}

// Registration is one tournament_registrations row.
type Registration struct {
	ID           uuid.UUID `json:"id"`
	TournamentID uuid.UUID `json:"tournament_id"`
	UserID       uuid.UUID `json:"user_id"`
	TeamName     string    `json:"team_name"`
	DiscordTag   string    `json:"discord_tag"`
	Members      []string  `json:"members"`
	CreatedAt    time.Time `json:"created_at"`
}

// TournamentInput carries admin-editable tournament fields.
type TournamentInput struct {
	Name        string    `json:"name" validate:"required,max=120"`
	Game        string    `json:"game" validate:"required,max=60"`
	Description string    `json:"description" validate:"max=4000"`
	Prize       string    `json:"prize" validate:"max=120"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	MaxTeams    int       `json:"max_teams" validate:"gte=0"`
	TeamSize    int       `json:"team_size" validate:"gte=1,lte=10"`
}

// TournamentStore is the gateway's tournaments and registrations collections.
type TournamentStore interface {
	ListUpcomingTournaments(ctx context.Context, now time.Time) ([]Tournament, error)
	GetTournament(ctx context.Context, id uuid.UUID) (*Tournament, error)
	CreateTournament(ctx context.Context, in TournamentInput) (*Tournament, error)

	// CreateRegistration yields ErrAlreadyRegistered on a duplicate user.
	CreateRegistration(ctx context.Context, reg Registration) (*Registration, error)
	ListRegistrations(ctx context.Context, tournamentID uuid.UUID) ([]Registration, error)
}
