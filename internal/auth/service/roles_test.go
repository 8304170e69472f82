package service

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestDefaultRoleHandoff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	def, err := f.roles.GetDefaultRole(ctx)
	require.NoError(t, err)
	require.Equal(t, UserRoleName, def.Name())

	guest, err := f.roles.CreateRole(ctx, CreateRoleInput{Name: "guest", Description: "Guests", IsDefault: true})
	require.NoError(t, err)
	require.True(t, guest.IsDefault())

	def, err = f.roles.GetDefaultRole(ctx)
	require.NoError(t, err)
	require.Equal(t, guest.ID(), def.ID())
	require.False(t, f.role(t, UserRoleName).IsDefault())

	_, err = f.roles.UpdateRole(ctx, f.role(t, UserRoleName).ID(), UpdateRoleInput{IsDefault: ptr(true)})
	require.NoError(t, err)
	require.False(t, f.role(t, "guest").IsDefault())

	roles, err := f.roles.ListRoles(ctx)
	require.NoError(t, err)
	defaults := 0
	for _, r := range roles {
		if r.IsDefault() {
			defaults++
		}
	}
	require.Equal(t, 1, defaults)
}

func TestAdminRoleCannotBeDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.roles.UpdateRole(ctx, f.role(t, AdminRoleName).ID(), UpdateRoleInput{IsDefault: ptr(true)})
	require.ErrorIs(t, err, domain.ErrForbiddenAction)

	_, err = f.roles.CreateRoleWithPermissions(ctx, CreateRoleInput{Name: "operators", IsDefault: true},
		[]string{f.permission(t, "role:update").ID()})
	require.ErrorIs(t, err, domain.ErrForbiddenAction)

	_, err = f.roles.UpdateRole(ctx, f.role(t, UserRoleName).ID(), UpdateRoleInput{Name: ptr("site-admins")})
	require.ErrorIs(t, err, domain.ErrForbiddenAction, "renaming the default role into an admin role")

	def, err := f.roles.GetDefaultRole(ctx)
	require.NoError(t, err)
	require.Equal(t, UserRoleName, def.Name())

	// registration keeps working with the default role untouched
	u := f.member(t, "una@example.com")
	require.Equal(t, []string{UserRoleName}, u.Roles().Names())
}

func TestCreateAndUpdateRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.roles.CreateRole(ctx, CreateRoleInput{Name: UserRoleName})
	require.ErrorIs(t, err, domain.ErrEntityAlreadyExists)

	_, err = f.roles.CreateRoleWithPermissions(ctx, CreateRoleInput{Name: "broken"}, []string{"missing"})
	require.ErrorIs(t, err, domain.ErrEntityNotFound)

	// construction time may hand out critical permissions
	ops, err := f.roles.CreateRoleWithPermissions(ctx, CreateRoleInput{Name: "ops"},
		[]string{f.permission(t, "user:delete").ID(), f.permission(t, "audit:read").ID()})
	require.NoError(t, err)
	require.True(t, ops.IsAdminRole())
	require.Equal(t, []string{"user:delete", "audit:read"}, ops.PermissionsCollection().Names())

	_, err = f.roles.UpdateRole(ctx, ops.ID(), UpdateRoleInput{Name: ptr(UserRoleName)})
	require.ErrorIs(t, err, domain.ErrEntityAlreadyExists)

	got, err := f.roles.UpdateRole(ctx, ops.ID(), UpdateRoleInput{Name: ptr("operations"), Description: ptr("Runs things")})
	require.NoError(t, err)
	require.Equal(t, "operations", got.Name())
	require.Equal(t, "Runs things", got.Description())

	_, err = f.roles.GetRoleByName(ctx, "ops")
	require.ErrorIs(t, err, domain.ErrEntityNotFound)
}

func TestRolePermissionAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	viewer, err := f.roles.CreateRole(ctx, CreateRoleInput{Name: "viewer"})
	require.NoError(t, err)

	got, err := f.roles.AssignPermissionToRole(ctx, viewer.ID(), f.permission(t, "audit:read").ID())
	require.NoError(t, err)
	require.True(t, got.HasPermission("audit:read"))

	_, err = f.roles.AssignPermissionToRole(ctx, viewer.ID(), f.permission(t, "audit:read").ID())
	require.ErrorIs(t, err, domain.ErrPermissionAlreadyAssigned)

	// critical permissions only go to roles that are already admin roles
	_, err = f.roles.AssignPermissionToRole(ctx, viewer.ID(), f.permission(t, "role:delete").ID())
	require.ErrorIs(t, err, domain.ErrForbiddenAction)

	_, err = f.roles.AssignPermissionToRole(ctx, f.role(t, AdminRoleName).ID(), f.permission(t, "audit:read").ID())
	require.ErrorIs(t, err, domain.ErrPermissionAlreadyAssigned)

	got, err = f.roles.RemovePermissionFromRole(ctx, viewer.ID(), f.permission(t, "audit:read").ID())
	require.NoError(t, err)
	require.False(t, got.HasPermission("audit:read"))

	// removing again is a no-op
	_, err = f.roles.RemovePermissionFromRole(ctx, viewer.ID(), f.permission(t, "audit:read").ID())
	require.NoError(t, err)
}

func TestDeleteRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	member := f.member(t, "ivy@example.com")
	temp, err := f.roles.CreateRole(ctx, CreateRoleInput{Name: "temp"})
	require.NoError(t, err)
	_, err = f.users.AssignRoleToUser(ctx, member.ID(), temp.ID(), f.admin)
	require.NoError(t, err)

	t.Run("default role", func(t *testing.T) {
		err := f.roles.DeleteRole(ctx, f.role(t, UserRoleName).ID(), f.admin)
		require.ErrorIs(t, err, domain.ErrCannotDeleteDefaultRole)
	})

	t.Run("actor without role:delete", func(t *testing.T) {
		err := f.roles.DeleteRole(ctx, temp.ID(), member.ID())
		require.ErrorIs(t, err, domain.ErrForbiddenAction)
	})

	t.Run("role still assigned", func(t *testing.T) {
		err := f.roles.DeleteRole(ctx, temp.ID(), f.admin)
		require.ErrorIs(t, err, domain.ErrRoleHasAssignedUsers)
	})

	t.Run("unassigned role", func(t *testing.T) {
		_, err := f.users.RemoveRoleFromUser(ctx, member.ID(), temp.ID(), f.admin)
		require.NoError(t, err)
		require.NoError(t, f.roles.DeleteRole(ctx, temp.ID(), f.admin))

		_, err = f.roles.GetRole(ctx, temp.ID())
		require.ErrorIs(t, err, domain.ErrEntityNotFound)
	})

	t.Run("missing role", func(t *testing.T) {
		require.ErrorIs(t, f.roles.DeleteRole(ctx, "missing", ""), domain.ErrEntityNotFound)
	})
}

func TestPermissionService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.perms.CreatePermission(ctx, "billing", "read", "Read invoices")
	require.NoError(t, err)
	require.Equal(t, "billing:read", p.Name())

	_, err = f.perms.CreatePermission(ctx, "billing", "read", "again")
	require.ErrorIs(t, err, domain.ErrEntityAlreadyExists)

	_, err = f.perms.CreatePermission(ctx, "Billing!", "read", "bad resource")
	require.ErrorIs(t, err, domain.ErrInvalidValue)

	_, err = f.perms.CreatePermission(ctx, "billing", "approve", "bad action")
	require.ErrorIs(t, err, domain.ErrInvalidValue)

	p, err = f.perms.UpdatePermissionDescription(ctx, p.ID(), "Read all invoices")
	require.NoError(t, err)
	require.Equal(t, "Read all invoices", p.Description())

	role, err := f.roles.CreateRoleWithPermissions(ctx, CreateRoleInput{Name: "accountant"}, []string{p.ID()})
	require.NoError(t, err)
	require.True(t, role.HasPermission("billing:read"))

	require.NoError(t, f.perms.DeletePermission(ctx, p.ID()))
	require.False(t, f.role(t, "accountant").HasPermission("billing:read"))
	require.ErrorIs(t, f.perms.DeletePermission(ctx, p.ID()), domain.ErrEntityNotFound)

	all, err := f.perms.ListPermissions(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(domain.KnownResources)*len(domain.Actions))
}

func TestAuthorizationService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	admin, err := f.users.GetUser(ctx, f.admin)
	require.NoError(t, err)
	member := f.member(t, "jack@example.com")
	authz := AuthorizationService{}

	require.True(t, authz.CanAccessAdminFeatures(admin))
	require.False(t, authz.CanAccessAdminFeatures(member))

	require.True(t, authz.CanAccessResource(member, domain.ResourceStorage, domain.ActionCreate))
	require.False(t, authz.CanAccessResource(member, domain.ResourceStorage, domain.ActionDelete))
	require.False(t, authz.CanAccessResource(member, "Not Valid", domain.ActionRead))

	require.False(t, authz.CanPerformSensitiveOperations(admin))

	temp, err := f.roles.CreateRole(ctx, CreateRoleInput{Name: "temp"})
	require.NoError(t, err)
	require.True(t, authz.CanDeleteRole(admin, temp))
	require.False(t, authz.CanDeleteRole(member, temp))
	require.False(t, authz.CanDeleteRole(admin, f.role(t, UserRoleName)))

	require.True(t, authz.CanAssignRole(admin, member, temp))
	require.False(t, authz.CanAssignRole(admin, member, f.role(t, AdminRoleName)))
	require.False(t, authz.CanAssignRole(member, admin, temp))

	deactivated, err := f.users.DeactivateUser(ctx, f.admin)
	require.NoError(t, err)
	require.False(t, authz.CanAccessAdminFeatures(deactivated))
	require.False(t, authz.CanAccessResource(deactivated, domain.ResourceUser, domain.ActionRead))
}
