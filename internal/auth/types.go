package auth

import "errors"

// Role represents an authorisation tier.
type Role string

const (
	// RoleUser may read binding status and send item commands.
	RoleUser Role = "user"

	// RoleAdmin may additionally change the bridge configuration.
	RoleAdmin Role = "admin"

	// RoleOwner has everything admin can do.
	RoleOwner Role = "owner"
)

// ValidRoles is the set of roles a token may carry.
var ValidRoles = []Role{RoleUser, RoleAdmin, RoleOwner}

// IsValidRole returns true if r is one of ValidRoles.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Domain errors.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrInvalidRole  = errors.New("invalid role")
	ErrForbidden    = errors.New("insufficient permissions")
)
