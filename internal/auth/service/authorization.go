package service

import (
	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/policy"
)

// Permissions an assigner needs on top of admin access.
var (
	PermRoleUpdate = domain.MustResourceAction(domain.ResourceRole, domain.ActionUpdate).String()
	PermRoleDelete = domain.MustResourceAction(domain.ResourceRole, domain.ActionDelete).String()
)

// AuthorizationService answers who may do what by composing the policy
// predicates. It holds no state.
type AuthorizationService struct{}

// CanAccessAdminFeatures: active, admin and with a complete profile.
func (AuthorizationService) CanAccessAdminFeatures(u *domain.User) bool {
	return policy.All(policy.ActiveUser(), policy.AdminUser(), policy.CompleteAccount()).IsSatisfiedBy(u)
}

// CanPerformSensitiveOperations: active with two-factor enabled.
func (AuthorizationService) CanPerformSensitiveOperations(u *domain.User) bool {
	return policy.ActiveUser().And(policy.TwoFactorEnabled()).IsSatisfiedBy(u)
}

// CanAssignRole checks both sides. Granting an admin-type role additionally
// requires role:update on the assigner.
func (a AuthorizationService) CanAssignRole(assigner, target *domain.User, role *domain.Role) bool {
	if !a.CanAccessAdminFeatures(assigner) {
		return false
	}
	if !policy.CanAssignRole(role).IsSatisfiedBy(target) {
		return false
	}
	return !role.IsAdminRole() || policy.UserHasPermission(PermRoleUpdate).IsSatisfiedBy(assigner)
}

// CanRemoveRole mirrors CanAssignRole for the assigner.
func (a AuthorizationService) CanRemoveRole(assigner *domain.User, role *domain.Role) bool {
	if !a.CanAccessAdminFeatures(assigner) {
		return false
	}
	return !role.IsAdminRole() || assigner.HasPermission(PermRoleUpdate)
}

func (a AuthorizationService) CanDeleteRole(u *domain.User, role *domain.Role) bool {
	return a.CanAccessAdminFeatures(u) &&
		policy.CanDeleteRole().IsSatisfiedBy(role) &&
		policy.UserHasPermission(PermRoleDelete).IsSatisfiedBy(u)
}

// CanAccessResource: active and holding "resource:action".
func (AuthorizationService) CanAccessResource(u *domain.User, resource string, action domain.Action) bool {
	ra, err := domain.NewResourceAction(resource, string(action))
	if err != nil {
		return false
	}
	return policy.ActiveUser().And(policy.UserHasPermission(ra.String())).IsSatisfiedBy(u)
}
