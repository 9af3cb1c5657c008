package auth

import (
	"context"
	"strings"
	"time"
)

// Role identifies the capability tier of an account. Roles are immutable
// after registration.
type Role string

const (
	RoleDonor     Role = "donor"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

// Valid reports whether the role is one of the three known tiers.
func (r Role) Valid() bool {
	switch r {
	case RoleDonor, RoleOrganizer, RoleAdmin:
		return true
	}
	return false
}

// ParseRole normalizes and validates a role string.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.TrimSpace(strings.ToLower(raw)))
	return role, role.Valid()
}

// Account is the authentication identity record. Exactly one account may
// exist per email, independent of role.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AccountStore describes the persistence operations the auth subsystem
// needs. Account rows are created through the profile registration path,
// which writes the account and its profile in a single transaction.
type AccountStore interface {
	FindAccount(ctx context.Context, id string) (*Account, error)
	FindAccountsByEmail(ctx context.Context, email string) ([]*Account, error)
	FindAccountByEmailRole(ctx context.Context, email string, role Role) (*Account, error)
}

// NormalizeEmail lower-cases and trims an email address for lookups and
// storage.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
