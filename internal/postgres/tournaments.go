package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dukerupert/arena/internal/domain"
)

const tournamentSelect = `
	SELECT t.id, t.name, t.game, t.description, t.prize, t.starts_at, t.max_teams, t.team_size, t.status,
	       (SELECT count(*) FROM tournament_registrations r WHERE r.tournament_id = t.id)::int
	FROM tournaments t`

// Tournaments is the tournaments and tournament_registrations collections.
type Tournaments struct {
	db DBTX
}

var _ domain.TournamentStore = (*Tournaments)(nil)

func NewTournaments(db DBTX) *Tournaments {
	return &Tournaments{db: db}
}

func scanTournament(row pgx.Row) (domain.Tournament, error) {
	var t domain.Tournament
	err := row.Scan(&t.ID, &t.Name, &t.Game, &t.Description, &t.Prize, &t.StartsAt, &t.MaxTeams, &t.TeamSize,
		&t.Status, &t.Registrations)
	return t, err
}

// ListUpcomingTournaments returns open tournaments starting after now, soonest first.
func (s *Tournaments) ListUpcomingTournaments(ctx context.Context, now time.Time) ([]domain.Tournament, error) {
	rows, err := s.db.Query(ctx,
		tournamentSelect+` WHERE t.starts_at > $1 AND t.status = 'open' ORDER BY t.starts_at`, now)
	if err != nil {
		return nil, mapError(err, "tournaments.upcoming", nil)
	}
	tournaments, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Tournament, error) {
		return scanTournament(r)
	})
	if err != nil {
		return nil, mapError(err, "tournaments.upcoming", nil)
	}
	return tournaments, nil
}

func (s *Tournaments) GetTournament(ctx context.Context, id uuid.UUID) (*domain.Tournament, error) {
	t, err := scanTournament(s.db.QueryRow(ctx, tournamentSelect+` WHERE t.id = $1`, id))
	if err != nil {
		return nil, mapError(err, "tournaments.get", domain.ErrTournamentNotFound)
	}
	return &t, nil
}

func (s *Tournaments) CreateTournament(ctx context.Context, in domain.TournamentInput) (*domain.Tournament, error) {
	var id uuid.UUID
	err := s.db.QueryRow(ctx, `
		INSERT INTO tournaments (name, game, description, prize, starts_at, max_teams, team_size)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		in.Name, in.Game, in.Description, in.Prize, in.StartsAt, in.MaxTeams, in.TeamSize).Scan(&id)
	if err != nil {
		return nil, mapError(err, "tournaments.create", nil)
	}
	return s.GetTournament(ctx, id)
}

// CreateRegistration inserts a team registration. The capacity check and
// insert happen in one statement so concurrent registrations cannot overfill.
func (s *Tournaments) CreateRegistration(ctx context.Context, reg domain.Registration) (*domain.Registration, error) {
	const op = "tournaments.register"

	members := reg.Members
	if members == nil {
		members = []string{}
	}

	out := reg
	err := s.db.QueryRow(ctx, `
		INSERT INTO tournament_registrations (tournament_id, user_id, team_name, discord_tag, members)
		SELECT t.id, $2, $3, $4, $5
		FROM tournaments t
		WHERE t.id = $1
		  AND (t.max_teams = 0 OR (SELECT count(*) FROM tournament_registrations r WHERE r.tournament_id = t.id) < t.max_teams)
		RETURNING id, created_at`,
		reg.TournamentID, reg.UserID, reg.TeamName, reg.DiscordTag, members).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		if pgCode(err) == uniqueViolation {
			return nil, domain.ErrAlreadyRegistered
		}
		return nil, mapError(err, op, domain.ErrTournamentFull)
	}
	out.Members = members
	return &out, nil
}

func (s *Tournaments) ListRegistrations(ctx context.Context, tournamentID uuid.UUID) ([]domain.Registration, error) {
	const op = "tournaments.registrations"

	rows, err := s.db.Query(ctx, `
		SELECT id, tournament_id, user_id, team_name, discord_tag, members, created_at
		FROM tournament_registrations
		WHERE tournament_id = $1
		ORDER BY created_at`, tournamentID)
	if err != nil {
		return nil, mapError(err, op, nil)
	}
	regs, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Registration, error) {
		var reg domain.Registration
		err := r.Scan(&reg.ID, &reg.TournamentID, &reg.UserID, &reg.TeamName, &reg.DiscordTag, &reg.Members, &reg.CreatedAt)
		return reg, err
	})
	if err != nil {
		return nil, mapError(err, op, nil)
	}
	return regs, nil
}
