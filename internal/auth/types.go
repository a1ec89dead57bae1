package auth

import "errors"

// Role represents an authorisation tier on the HTTP surface.
type Role string

const (
	// RoleUser is a household member: reads devices and operates them
	// (params, pairing, UI clicks) but cannot reshape the installation.
	RoleUser Role = "user"

	// RoleAdmin additionally creates and deletes devices, edits abilities,
	// layout and links, and manages locations.
	RoleAdmin Role = "admin"
)

// ValidRoles is the set of roles a token may carry.
var ValidRoles = []Role{RoleUser, RoleAdmin}

// IsValidRole reports whether r is one of ValidRoles.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Sentinel errors for auth operations.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrInvalidRole  = errors.New("invalid role")
	ErrForbidden    = errors.New("insufficient permissions")
)
