package account

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/arena/internal/auth"
	"github.com/dukerupert/arena/internal/domain"
)

type mockProfiles struct {
	domain.ProfileStore

	CreateUserFunc     func(ctx context.Context, in domain.SignupInput) (*domain.Profile, error)
	GetCredentialsFunc func(ctx context.Context, email string) (*domain.Credentials, error)
	GetProfileFunc     func(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
}

func (m *mockProfiles) CreateUser(ctx context.Context, in domain.SignupInput) (*domain.Profile, error) {
	return m.CreateUserFunc(ctx, in)
}

func (m *mockProfiles) GetCredentials(ctx context.Context, email string) (*domain.Credentials, error) {
	return m.GetCredentialsFunc(ctx, email)
}

func (m *mockProfiles) GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	return m.GetProfileFunc(ctx, id)
}

func newService(profiles *mockProfiles) *Service {
	return NewService(profiles, auth.NewHasher(bcrypt.MinCost), nil)
}

func TestSignup(t *testing.T) {
	var got domain.SignupInput
	profiles := &mockProfiles{CreateUserFunc: func(_ context.Context, in domain.SignupInput) (*domain.Profile, error) {
		got = in
		return &domain.Profile{ID: uuid.New(), Email: in.Email, Username: in.Username, Role: domain.RoleUser}, nil
	}}
	svc := newService(profiles)

	p, err := svc.Signup(context.Background(), SignupForm{
		Email:    "  Player@Arena.MA ",
		Username: "player1",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "player@arena.ma", p.Email)
	assert.Equal(t, "player@arena.ma", got.Email)
	assert.NotEqual(t, "correct horse", got.PasswordHash)
	assert.NoError(t, auth.VerifyPassword("correct horse", got.PasswordHash))
}

func TestSignup_Validation(t *testing.T) {
	profiles := &mockProfiles{CreateUserFunc: func(context.Context, domain.SignupInput) (*domain.Profile, error) {
		t.Fatal("store should not be called")
		return nil, nil
	}}
	svc := newService(profiles)

	tests := []struct {
		name  string
		form  SignupForm
		field string
	}{
		{"bad email", SignupForm{Email: "nope", Username: "player1", Password: "correct horse"}, "email"},
		{"short username", SignupForm{Email: "a@b.ma", Username: "ab", Password: "correct horse"}, "username"},
		{"symbols in username", SignupForm{Email: "a@b.ma", Username: "play er", Password: "correct horse"}, "username"},
		{"short password", SignupForm{Email: "a@b.ma", Username: "player1", Password: "short"}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(context.Background(), tt.form)
			require.Error(t, err)
			assert.Contains(t, domain.GetValidationFields(err), tt.field)
		})
	}
}

func TestSignup_EmailTaken(t *testing.T) {
	profiles := &mockProfiles{CreateUserFunc: func(context.Context, domain.SignupInput) (*domain.Profile, error) {
		return nil, domain.ErrEmailTaken
	}}

	_, err := newService(profiles).Signup(context.Background(), SignupForm{
		Email: "a@b.ma", Username: "player1", Password: "correct horse",
	})
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
}

func TestAuthenticate(t *testing.T) {
	hash, err := auth.NewHasher(bcrypt.MinCost).Hash("correct horse")
	require.NoError(t, err)
	userID := uuid.New()

	profiles := &mockProfiles{
		GetCredentialsFunc: func(_ context.Context, email string) (*domain.Credentials, error) {
			if email != "player@arena.ma" {
				return nil, domain.ErrInvalidCredentials
			}
			return &domain.Credentials{UserID: userID, PasswordHash: hash}, nil
		},
		GetProfileFunc: func(_ context.Context, id uuid.UUID) (*domain.Profile, error) {
			return &domain.Profile{ID: id, Email: "player@arena.ma"}, nil
		},
	}
	svc := newService(profiles)

	t.Run("valid", func(t *testing.T) {
		p, err := svc.Authenticate(context.Background(), LoginForm{Email: "player@arena.ma", Password: "correct horse"})
		require.NoError(t, err)
		assert.Equal(t, userID, p.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Authenticate(context.Background(), LoginForm{Email: "player@arena.ma", Password: "wrong horse"})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Authenticate(context.Background(), LoginForm{Email: "ghost@arena.ma", Password: "correct horse"})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})
}
