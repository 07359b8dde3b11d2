// Package bootstrap handles one-time initialization tasks for the application.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/arena/internal/domain"
)

// Promoter is the part of the profile store that admin promotion needs.
type Promoter interface {
	GetProfileByEmail(ctx context.Context, email string) (*domain.Profile, error)
	SetRole(ctx context.Context, id uuid.UUID, role domain.Role) error
}

// EnsureAdmin grants the admin role to the account registered under email.
// It is idempotent and safe to call on every startup.
//
// An empty email is skipped with a warning. A missing account is not an
// error at startup: the account may sign up later and be promoted on the
// next restart or with `arenactl promote`.
func EnsureAdmin(ctx context.Context, profiles Promoter, email string, logger *slog.Logger) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		logger.Warn("bootstrap: skipping admin promotion - ADMIN_EMAIL not set")
		return nil
	}

	profile, err := Promote(ctx, profiles, email)
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			logger.Warn("bootstrap: admin account not registered yet", "email", email)
			return nil
		}
		return err
	}

	logger.Info("bootstrap: admin account ready", "email", email, "user_id", profile.ID)
	return nil
}

// Promote sets the admin role on the account registered under email.
func Promote(ctx context.Context, profiles Promoter, email string) (*domain.Profile, error) {
	profile, err := profiles.GetProfileByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if profile.Role == domain.RoleAdmin {
		return profile, nil
	}

	if err := profiles.SetRole(ctx, profile.ID, domain.RoleAdmin); err != nil {
		return nil, fmt.Errorf("failed to promote %s: %w", email, err)
	}
	profile.Role = domain.RoleAdmin
	return profile, nil
}
