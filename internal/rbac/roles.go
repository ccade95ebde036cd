package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	// RoleOwner runs the property: all pricing admin, including forced reverts.
	RoleOwner = "owner"
	// RoleStaff may set and clear nightly overrides.
	RoleStaff = "staff"
	// RoleSuperAdmin is the operator account; bypasses role checks.
	RoleSuperAdmin = "super_admin"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

// IsKnownRole reports whether role is one the admin API recognises.
func IsKnownRole(role string) bool {
	switch role {
	case RoleOwner, RoleStaff, RoleSuperAdmin:
		return true
	default:
		return false
	}
}
