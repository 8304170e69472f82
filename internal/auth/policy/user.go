package policy

import "github.com/aussiebroadwan/gatekeeper/internal/auth/domain"

func ActiveUser() Func[*domain.User] {
	return func(u *domain.User) bool { return u.IsActive() }
}

func TwoFactorEnabled() Func[*domain.User] {
	return func(u *domain.User) bool { return u.OtpEnabled() }
}

// AdminUser holds at least one admin-type role.
func AdminUser() Func[*domain.User] {
	return func(u *domain.User) bool { return u.IsAdmin() }
}

// EligibleForAdminRole: active and already holding admin privileges. A user
// can only be promoted by someone else and only once some admin-granting role
// exists on the account.
func EligibleForAdminRole() Func[*domain.User] {
	return ActiveUser().And(AdminUser())
}

// CompleteAccount has first name, last name and email.
func CompleteAccount() Func[*domain.User] {
	return func(u *domain.User) bool {
		return u.FirstName() != "" && u.LastName() != "" && !u.Email().IsZero()
	}
}

func UserHasPermission(name string) Func[*domain.User] {
	return func(u *domain.User) bool { return u.HasPermission(name) }
}

// CanAssignRole checks the target user: active, not already holding role,
// and admin-eligible if role is an admin role.
func CanAssignRole(role *domain.Role) Func[*domain.User] {
	return func(u *domain.User) bool {
		if !u.IsActive() || u.HasRole(role.ID()) {
			return false
		}
		return !role.IsAdminRole() || EligibleForAdminRole().IsSatisfiedBy(u)
	}
}
