package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid or expired token")

type tokenClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	ProfileID string `json:"profile_id,omitempty"`
}

// TokenManager issues and verifies HS256 bearer tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time

	revoked *RevocationList
}

func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// WithRevocations makes Extract reject tokens present in l.
func (m *TokenManager) WithRevocations(l *RevocationList) *TokenManager {
	m.revoked = l
	return m
}

// Revoke invalidates the token carried by id until it expires.
func (m *TokenManager) Revoke(id *Identity) {
	if m.revoked == nil || id == nil || id.TokenID == "" {
		return
	}
	m.revoked.Revoke(id.TokenID, id.ExpiresAt)
}

// Issue signs a token for the identity and returns it with its expiry.
func (m *TokenManager) Issue(id Identity) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.ttl)
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Subject:   id.AccountID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email:     id.Email,
		Role:      id.Role,
		ProfileID: id.ProfileID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Extract verifies the token and returns the identity it carries.
func (m *TokenManager) Extract(token string) (*Identity, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	if m.revoked != nil && m.revoked.IsRevoked(claims.ID) {
		return nil, ErrInvalidToken
	}
	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return &Identity{
		AccountID: claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
		ProfileID: claims.ProfileID,
		TokenID:   claims.ID,
		ExpiresAt: exp,
	}, nil
}

func (m *TokenManager) Validate(token string) bool {
	_, err := m.Extract(token)
	return err == nil
}
