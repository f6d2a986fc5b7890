package auth

import "errors"

// Role is an authorisation tier carried in the access token.
type Role string

const (
	// RoleViewer may query radio state and read the audit trail.
	RoleViewer Role = "viewer"

	// RoleInstaller may also write NV items, change channel and restart
	// the coprocessor.
	RoleInstaller Role = "installer"

	// RoleOwner may also restore the coprocessor to its factory network
	// state.
	RoleOwner Role = "owner"
)

// ValidRoles lists the roles a token may carry.
var ValidRoles = []Role{RoleViewer, RoleInstaller, RoleOwner}

// IsValidRole reports whether r is one of ValidRoles.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

var (
	// ErrTokenInvalid is returned for malformed, forged or expired tokens.
	ErrTokenInvalid = errors.New("auth: invalid token")

	// ErrForbidden is returned when a valid token lacks a permission.
	ErrForbidden = errors.New("auth: forbidden")
)
