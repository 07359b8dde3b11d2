package postgres

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dukerupert/arena/internal/domain"
)

const profileColumns = `id, email, username, wallet_balance, discord_points, role, avatar_url, created_at`

// Profiles is the profiles collection and its credentials.
type Profiles struct {
	db DBTX
}

var _ domain.ProfileStore = (*Profiles)(nil)

func NewProfiles(db DBTX) *Profiles {
	return &Profiles{db: db}
}

func scanProfile(row pgx.Row) (domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(&p.ID, &p.Email, &p.Username, &p.WalletBalance, &p.LoyaltyPoints, &p.Role, &p.AvatarURL, &p.CreatedAt)
	return p, err
}

func (s *Profiles) GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	p, err := scanProfile(s.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "profiles.get", domain.ErrProfileNotFound)
	}
	return &p, nil
}

func (s *Profiles) GetProfileByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	p, err := scanProfile(s.db.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE lower(email) = lower($1)`, strings.TrimSpace(email)))
	if err != nil {
		return nil, mapError(err, "profiles.get_by_email", domain.ErrProfileNotFound)
	}
	return &p, nil
}

// ListProfiles returns the newest profiles first.
func (s *Profiles) ListProfiles(ctx context.Context, limit int) ([]domain.Profile, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+profileColumns+` FROM profiles ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, mapError(err, "profiles.list", nil)
	}
	profiles, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Profile, error) {
		return scanProfile(r)
	})
	if err != nil {
		return nil, mapError(err, "profiles.list", nil)
	}
	return profiles, nil
}

// CreateUser inserts a profile with a zero balance.
func (s *Profiles) CreateUser(ctx context.Context, in domain.SignupInput) (*domain.Profile, error) {
	p, err := scanProfile(s.db.QueryRow(ctx, `
		INSERT INTO profiles (email, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING `+profileColumns,
		strings.TrimSpace(in.Email), strings.TrimSpace(in.Username), in.PasswordHash))
	if err != nil {
		if pgCode(err) == uniqueViolation {
			return nil, domain.ErrEmailTaken
		}
		return nil, mapError(err, "profiles.create", nil)
	}
	return &p, nil
}

func (s *Profiles) GetCredentials(ctx context.Context, email string) (*domain.Credentials, error) {
	var c domain.Credentials
	err := s.db.QueryRow(ctx,
		`SELECT id, password_hash FROM profiles WHERE lower(email) = lower($1)`,
		strings.TrimSpace(email)).Scan(&c.UserID, &c.PasswordHash)
	if err != nil {
		return nil, mapError(err, "profiles.credentials", domain.ErrInvalidCredentials)
	}
	return &c, nil
}

func (s *Profiles) SetRole(ctx context.Context, id uuid.UUID, role domain.Role) error {
	tag, err := s.db.Exec(ctx, `UPDATE profiles SET role = $2 WHERE id = $1`, id, role)
	if err != nil {
		return mapError(err, "profiles.set_role", nil)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}
