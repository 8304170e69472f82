package policy

import "github.com/aussiebroadwan/gatekeeper/internal/auth/domain"

func DefaultRole() Func[*domain.Role] {
	return func(r *domain.Role) bool { return r.IsDefault() }
}

func AdminRole() Func[*domain.Role] {
	return func(r *domain.Role) bool { return r.IsAdminRole() }
}

// CanDeleteRole: default roles are never deleted.
func CanDeleteRole() Func[*domain.Role] {
	return DefaultRole().Not()
}

// CanAssignPermissionToRole: not already present, and critical permissions
// only go to roles that are already admin roles.
func CanAssignPermissionToRole(p domain.Permission) Func[*domain.Role] {
	return func(r *domain.Role) bool {
		if r.PermissionsCollection().Contains(p.ID()) || r.HasPermission(p.Name()) {
			return false
		}
		return !p.IsSystemAdmin() || r.IsAdminRole()
	}
}
