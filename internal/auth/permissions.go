package auth

// Permission is a named capability.
type Permission string

const (
	PermRadioRead      Permission = "radio:read"
	PermRadioConfigure Permission = "radio:configure"
	PermRadioReset     Permission = "radio:reset"
	PermAuditRead      Permission = "audit:read"
)

// rolePermissions is the single source of truth for the role model.
var rolePermissions = map[Role][]Permission{
	RoleViewer: {
		PermRadioRead,
		PermAuditRead,
	},
	RoleInstaller: {
		PermRadioRead,
		PermAuditRead,
		PermRadioConfigure,
	},
	RoleOwner: {
		PermRadioRead,
		PermAuditRead,
		PermRadioConfigure,
		PermRadioReset,
	},
}

// HasPermission reports whether role grants perm.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// PermissionsForRole returns a copy of the permissions granted to role,
// or nil for an unknown role.
func PermissionsForRole(role Role) []Permission {
	perms := rolePermissions[role]
	if perms == nil {
		return nil
	}
	return append([]Permission(nil), perms...)
}
