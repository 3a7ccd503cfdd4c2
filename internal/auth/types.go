package auth

import (
	"strings"
	"time"
)

// Role is the flat access level attached to a user. There is no
// hierarchy: an admin is not implicitly a user for policy purposes.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole normalizes a stored role value. Unknown values are rejected
// so a corrupted record can never satisfy a policy by accident.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.TrimSpace(strings.ToLower(s))) {
	case RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// User is the identity record resolved from the directory. The auth core
// holds it as a transient read-only view per request; ownership stays
// with the directory.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone,omitempty"`
	Age          int       `json:"age,omitempty"`
	Address      string    `json:"address,omitempty"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Redacted returns a copy safe to hand to callers: the stored hash never
// leaves the core.
func (u User) Redacted() User {
	u.PasswordHash = ""
	return u
}

// SessionToken is an issued bearer token together with its expiry.
type SessionToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewUser carries the fields persisted for a fresh account. Role and
// active flag are not caller-controlled: registration always produces
// an active lowest-privilege user.
type NewUser struct {
	Email        string
	Name         string
	PasswordHash string
}

// UserUpdate is a partial mutation applied through the directory. Nil
// fields are left untouched.
type UserUpdate struct {
	Name    *string
	Phone   *string
	Age     *int
	Address *string
	Active  *bool
}
