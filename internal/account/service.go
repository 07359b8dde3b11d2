// Package account creates accounts and checks login credentials.
package account

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/dukerupert/arena/internal/auth"
	"github.com/dukerupert/arena/internal/domain"
	"github.com/dukerupert/arena/internal/validate"
)

// SignupForm is the signup request.
type SignupForm struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Username string `json:"username" validate:"required,min=3,max=24,alphanum"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginForm is the login request.
type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Service provides signup and login.
type Service struct {
	profiles domain.ProfileStore
	hasher   auth.Hasher
	logger   *slog.Logger

	// dummyHash keeps the cost of a login for an unknown email close to
	// the cost for a known one.
	dummyHash string
}

// NewService creates an account service hashing at hasher's cost.
func NewService(profiles domain.ProfileStore, hasher auth.Hasher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	dummy, err := hasher.Hash("arena-dummy-password")
	if err != nil {
		logger.Warn("failed to prepare dummy hash", "error", err)
	}
	return &Service{profiles: profiles, hasher: hasher, logger: logger, dummyHash: dummy}
}

// Signup validates form and creates an account.
func (s *Service) Signup(ctx context.Context, form SignupForm) (*domain.Profile, error) {
	const op = "account.signup"

	form.Email = strings.ToLower(strings.TrimSpace(form.Email))
	form.Username = strings.TrimSpace(form.Username)
	if err := validate.Struct(op, form); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(form.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) {
			return nil, domain.NewValidationError(op, "password", "must be at least 8 characters")
		}
		return nil, domain.Internal(err, op, "failed to hash password")
	}

	profile, err := s.profiles.CreateUser(ctx, domain.SignupInput{
		Email:        form.Email,
		Username:     form.Username,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("account created", "user_id", profile.ID)
	return profile, nil
}

// Authenticate checks form against the stored credentials and returns the
// profile. Unknown emails and wrong passwords fail the same way.
func (s *Service) Authenticate(ctx context.Context, form LoginForm) (*domain.Profile, error) {
	const op = "account.authenticate"

	form.Email = strings.TrimSpace(form.Email)
	if err := validate.Struct(op, form); err != nil {
		return nil, err
	}

	creds, err := s.profiles.GetCredentials(ctx, form.Email)
	if err != nil {
		if domain.ErrorCode(err) == domain.EUNAUTHORIZED || domain.ErrorCode(err) == domain.ENOTFOUND {
			if s.dummyHash != "" {
				_ = s.hasher.Verify(form.Password, s.dummyHash)
			}
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := s.hasher.Verify(form.Password, creds.PasswordHash); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, domain.Internal(err, op, "failed to verify password")
	}

	return s.profiles.GetProfile(ctx, creds.UserID)
}
