package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrProfileNotFound    = &Error{Code: ENOTFOUND, Message: "Profile not found"}
	ErrInvalidCredentials = &Error{Code: EUNAUTHORIZED, Message: "Invalid email or password"}
	ErrEmailTaken         = &Error{Code: ECONFLICT, Message: "An account with this email already exists"}
	ErrLoginRequired      = &Error{Code: EUNAUTHORIZED, Message: "Please log in to continue"}
)

// Role is the authorization level of a profile.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Profile is the identity and wallet record of a user.
type Profile struct {
	ID            uuid.UUID       `json:"id"`
	Email         string          `json:"email"`
	Username      string          `json:"username"`
	WalletBalance decimal.Decimal `json:"wallet_balance"`
	LoyaltyPoints int64           `json:"loyalty_points"`
	Role          Role            `json:"role"`
	AvatarURL     string          `json:"avatar_url,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ProfilePatch changes only the wallet fields of a held profile. Every flow
// that moves money or points patches through this type; other profile fields
// are never touched by a patch.
type ProfilePatch struct {
	// WalletBalance, when set, replaces the balance with the gateway's value.
	WalletBalance *decimal.Decimal

	// LoyaltyPoints, when set, replaces the points with the gateway's value.
	LoyaltyPoints *int64

	// PointsDelta is added after LoyaltyPoints is applied.
	PointsDelta int64
}

// Apply returns a copy of p with the patch applied.
func (patch ProfilePatch) Apply(p Profile) Profile {
	if patch.WalletBalance != nil {
		p.WalletBalance = *patch.WalletBalance
	}
	if patch.LoyaltyPoints != nil {
		p.LoyaltyPoints = *patch.LoyaltyPoints
	}
	p.LoyaltyPoints += patch.PointsDelta
	return p
}

// Credentials is the stored login secret of a user.
type Credentials struct {
	UserID       uuid.UUID
	PasswordHash string
}

// SignupInput carries the fields needed to create an account.
type SignupInput struct {
	Email        string
	Username     string
	PasswordHash string
}

// ProfileStore is the gateway's profiles collection plus its auth subsystem.
type ProfileStore interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*Profile, error)
	ListProfiles(ctx context.Context, limit int) ([]Profile, error)
	CreateUser(ctx context.Context, in SignupInput) (*Profile, error)
	GetCredentials(ctx context.Context, email string) (*Credentials, error)
	SetRole(ctx context.Context, id uuid.UUID, role Role) error
}
