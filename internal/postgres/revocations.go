package postgres

import (
	"context"
	"time"
)

// Revocations is the revoked_sessions table shared by every instance.
type Revocations struct {
	db DBTX
}

func NewRevocations(db DBTX) *Revocations {
	return &Revocations{db: db}
}

// Revoke records sessionID until its token expires. Revoking twice keeps
// the later expiry.
func (s *Revocations) Revoke(ctx context.Context, sessionID string, until time.Time) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO revoked_sessions (session_id, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (session_id) DO UPDATE
		SET expires_at = GREATEST(revoked_sessions.expires_at, EXCLUDED.expires_at)`,
		sessionID, until)
	return mapError(err, "revocations.revoke", nil)
}

func (s *Revocations) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	var revoked bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_sessions WHERE session_id = $1)`, sessionID).Scan(&revoked)
	if err != nil {
		return false, mapError(err, "revocations.is_revoked", nil)
	}
	return revoked, nil
}

// PurgeRevocations deletes revocations whose tokens have expired.
func (s *Revocations) PurgeRevocations(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM revoked_sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, mapError(err, "revocations.purge", nil)
	}
	return tag.RowsAffected(), nil
}
