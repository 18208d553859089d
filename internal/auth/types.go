package auth

import (
	"strings"
	"time"
)

// Role is the closed set of access levels a user can hold.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// ParseRole normalizes raw input into a Role from the closed enumeration.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleMember:
		return RoleMember, true
	}
	return "", false
}

// Valid reports whether the role belongs to the closed enumeration.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// User is the stored account record. PasswordHash is only populated by
// store lookups that feed credential checks.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Age          int // 0 means unset
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RevocationEntry invalidates a token id before its natural expiry.
// Entries past ExpiresAt are logically dead and eligible for purge.
type RevocationEntry struct {
	TokenID   string
	UserID    string
	ExpiresAt time.Time
	RevokedAt time.Time
}
