package auth

import (
	"fmt"
	"strings"
	"time"
)

// Role is the backend-issued role of an authenticated user.
type Role string

const (
	RoleAdmin           Role = "admin"
	RoleClient          Role = "client"
	RoleProvider        Role = "provider"
	RoleReviewer        Role = "reviewer"
	RoleProposalManager Role = "proposal_manager"
	RoleWriter          Role = "writer"
)

// ParseRole normalizes and validates a role string.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.TrimSpace(strings.ToLower(s))); r {
	case RoleAdmin, RoleClient, RoleProvider, RoleReviewer, RoleProposalManager, RoleWriter:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
	}
}

// AccountType tells which side of the marketplace an account operates on.
type AccountType string

const (
	AccountClient   AccountType = "client"
	AccountProvider AccountType = "provider"
	AccountBoth     AccountType = "both"
)

// ParseAccountType normalizes and validates an account type string.
func ParseAccountType(s string) (AccountType, error) {
	switch t := AccountType(strings.TrimSpace(strings.ToLower(s))); t {
	case AccountClient, AccountProvider, AccountBoth:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown account type %q", ErrInvalidInput, s)
	}
}

// Principal is the authenticated identity attached to a session. It is an
// immutable value: re-authentication replaces it wholesale.
type Principal struct {
	UserID      string
	Role        Role
	AccountType AccountType
}

// User is a marketplace account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	AccountType  AccountType
	Status       string
	CreatedAt    time.Time
}

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// Principal derives the immutable principal value for the user.
func (u *User) Principal() Principal {
	return Principal{UserID: u.ID, Role: u.Role, AccountType: u.AccountType}
}

// RefreshToken is a persisted, revocable refresh token record. Only the
// sha256 hash of the secret half is stored.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	Revoked   bool
}
