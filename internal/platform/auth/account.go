package auth

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrDuplicateEmail     = errors.New("email already registered")
)

// Account is a login record. Role is fixed at creation.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	ProfileID    string    `json:"profile_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (a *Account) Identity() Identity {
	return Identity{AccountID: a.ID, Email: a.Email, Role: a.Role, ProfileID: a.ProfileID}
}

type AccountRepository interface {
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	Count(ctx context.Context) (int, error)
}
