package auth

import (
	"context"
	"strings"
	"time"
)

// Role is the kind of account, fixed when the account is created.
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleDoctor       Role = "DOCTOR"
	RoleReceptionist Role = "RECEPTIONIST"
	RolePharmacist   Role = "PHARMACIST"
	RolePatient      Role = "PATIENT"
)

var validRoles = map[Role]bool{
	RoleAdmin: true, RoleDoctor: true, RoleReceptionist: true, RolePharmacist: true, RolePatient: true,
}

// ParseRole accepts any letter case.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, validRoles[r]
}

func (r Role) Valid() bool { return validRoles[r] }

// Identity is the authenticated caller extracted from a bearer token.
type Identity struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	// ProfileID links to the doctor/patient/staff record for this account.
	ProfileID string `json:"profile_id,omitempty"`

	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

func UserIDFromContext(ctx context.Context) string {
	if id := IdentityFromContext(ctx); id != nil {
		return id.AccountID
	}
	return ""
}

func RoleFromContext(ctx context.Context) Role {
	if id := IdentityFromContext(ctx); id != nil {
		return id.Role
	}
	return ""
}
