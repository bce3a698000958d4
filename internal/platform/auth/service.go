package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/medcore/hms/internal/platform/db"
)

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Role      Role   `json:"role" validate:"required"`
	ProfileID string `json:"profile_id"`
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Account     *Account  `json:"account"`
}

type Service struct {
	accounts AccountRepository
	tokens   *TokenManager
}

func NewService(accounts AccountRepository, tokens *TokenManager) *Service {
	return &Service{accounts: accounts, tokens: tokens}
}

// Authenticate checks email and password. Unknown email and wrong password
// both yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	acct, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	ok, err := CheckPassword(acct.PasswordHash, password)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}
	return acct, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	acct, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	token, exp, err := s.tokens.Issue(acct.Identity())
	if err != nil {
		return nil, err
	}
	return &TokenResponse{AccessToken: token, TokenType: "Bearer", ExpiresAt: exp, Account: acct}, nil
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Account, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}
	role, ok := ParseRole(string(req.Role))
	if !ok {
		return nil, fmt.Errorf("invalid role: %s", req.Role)
	}

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	acct := &Account{Email: email, PasswordHash: hash, Role: role, ProfileID: req.ProfileID}
	if err := s.accounts.Create(ctx, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

func (s *Service) GetAccount(ctx context.Context, id string) (*Account, error) {
	return s.accounts.GetByID(ctx, id)
}

func (s *Service) HasAccounts(ctx context.Context) (bool, error) {
	n, err := s.accounts.Count(ctx)
	return n > 0, err
}

// Logout revokes the caller's current token.
func (s *Service) Logout(id *Identity) {
	s.tokens.Revoke(id)
}
