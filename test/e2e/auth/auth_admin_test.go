package auth_test

import (
	"testing"

	"github.com/aussiebroadwan/gatekeeper/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestAdminManagesRolesAndUsers covers the admin surface end to end: a custom
// permission and role, a managed user, and what that user can then do.
func TestAdminManagesRolesAndUsers(t *testing.T) {
	baseURL := startGatekeeper(t)
	client := authsdk.NewSDKClient(baseURL)
	ctx := t.Context()

	admin := loginAdmin(t, client)

	perm, err := admin.CreatePermission(ctx, authsdk.CreatePermissionRequest{
		Resource:    "reports",
		Action:      "read",
		Description: "Read reports",
	})
	require.NoError(t, err)
	require.Equal(t, "reports:read", perm.Name)

	role, err := admin.CreateRole(ctx, authsdk.CreateRoleRequest{
		Name:          "analyst",
		Description:   "Reads reports and audit logs",
		PermissionIDs: []string{perm.ID, findPermissionByName(t, admin, "audit:read")},
	})
	require.NoError(t, err)
	require.Len(t, role.Permissions, 2)
	require.False(t, role.IsDefault)

	email := uniqueEmail(t)
	user, err := admin.CreateUser(ctx, authsdk.CreateUserRequest{
		Email:     email,
		Password:  userPassword,
		FirstName: "Ana",
		LastName:  "Lyst",
	})
	require.NoError(t, err)
	require.Contains(t, user.Roles, "user")

	user, err = admin.AssignRole(ctx, user.ID, role.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"user", "analyst"}, user.Roles)
	require.Contains(t, user.Permissions, "reports:read")

	_, err = admin.AssignRole(ctx, user.ID, role.ID)
	assertAPIError(t, err, authsdk.ErrUserAlreadyHasRole, "assigning a role twice")

	session, err := client.Login(ctx, email, userPassword, "")
	require.NoError(t, err)
	require.True(t, session.HasPermission("reports:read"))
	require.True(t, session.HasRole("analyst"))

	// A role in use cannot be deleted.
	err = admin.DeleteRole(ctx, role.ID)
	assertAPIError(t, err, authsdk.ErrRoleHasAssignedUsers, "deleting an assigned role")

	_, err = admin.RemoveRole(ctx, user.ID, role.ID)
	require.NoError(t, err)
	require.NoError(t, admin.DeleteRole(ctx, role.ID))

	_, err = admin.GetRole(ctx, role.ID)
	assertAPIError(t, err, authsdk.ErrNotFound, "deleted role")
}

// TestRegularUserCannotAdminister checks both the client-side permission
// check and the server's answer.
func TestRegularUserCannotAdminister(t *testing.T) {
	baseURL := startGatekeeper(t)
	client := authsdk.NewSDKClient(baseURL)
	ctx := t.Context()

	_, session := registerAndLogin(t, client, uniqueEmail(t))

	_, err := session.ListUsers(ctx, 10, 0)
	assertAPIError(t, err, authsdk.ErrForbidden, "client-side check")

	client.CheckPermissions = false
	_, unchecked := registerAndLogin(t, client, "unchecked-"+uniqueEmail(t))

	_, err = unchecked.ListUsers(ctx, 10, 0)
	assertAPIError(t, err, authsdk.ErrForbidden, "server-side check")

	_, err = unchecked.CreateRole(ctx, authsdk.CreateRoleRequest{Name: "sneaky"})
	assertAPIError(t, err, authsdk.ErrForbidden, "create role")
}

// TestDeactivatedUserIsLockedOut verifies deactivation blocks login and the
// live admin check.
func TestDeactivatedUserIsLockedOut(t *testing.T) {
	baseURL := startGatekeeper(t)
	client := authsdk.NewSDKClient(baseURL)
	ctx := t.Context()

	admin := loginAdmin(t, client)
	email := uniqueEmail(t)
	user, session := registerAndLogin(t, client, email)

	deactivated, err := admin.DeactivateUser(ctx, user.ID)
	require.NoError(t, err)
	require.False(t, deactivated.IsActive)

	_, err = client.Login(ctx, email, userPassword, "")
	assertAPIError(t, err, authsdk.ErrAuthenticationFailed, "login while inactive")

	_, err = session.GetMe(ctx)
	assertAPIError(t, err, authsdk.ErrInactiveUser, "existing token while inactive")

	_, err = admin.ActivateUser(ctx, user.ID)
	require.NoError(t, err)
	_, err = client.Login(ctx, email, userPassword, "")
	require.NoError(t, err)
}

// TestDefaultRoleIsProtected checks the seeded default role survives deletion
// attempts and that only one default exists at a time.
func TestDefaultRoleIsProtected(t *testing.T) {
	baseURL := startGatekeeper(t)
	client := authsdk.NewSDKClient(baseURL)
	ctx := t.Context()

	admin := loginAdmin(t, client)
	userRoleID := findRoleByName(t, admin, "user")

	err := admin.DeleteRole(ctx, userRoleID)
	assertAPIError(t, err, authsdk.ErrCannotDeleteDefaultRole, "deleting the default role")

	newDefault, err := admin.CreateRole(ctx, authsdk.CreateRoleRequest{Name: "member", IsDefault: true})
	require.NoError(t, err)
	require.True(t, newDefault.IsDefault)

	old, err := admin.GetRole(ctx, userRoleID)
	require.NoError(t, err)
	require.False(t, old.IsDefault, "previous default should be cleared")

	roles, err := admin.ListRoles(ctx)
	require.NoError(t, err)
	defaults := 0
	for _, r := range roles.Roles {
		if r.IsDefault {
			defaults++
		}
	}
	require.Equal(t, 1, defaults)
}

// TestAdminListsUsersWithPaging checks totals and page sizes.
func TestAdminListsUsersWithPaging(t *testing.T) {
	baseURL := startGatekeeper(t)
	client := authsdk.NewSDKClient(baseURL)
	ctx := t.Context()

	admin := loginAdmin(t, client)
	for _, prefix := range []string{"a", "b", "c"} {
		registerAndLogin(t, client, prefix+"-"+uniqueEmail(t))
	}

	page, err := admin.ListUsers(ctx, 2, 0)
	require.NoError(t, err)
	require.Equal(t, 4, page.Total, "three users plus the seeded admin")
	require.Len(t, page.Users, 2)

	rest, err := admin.ListUsers(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest.Users, 2)
	require.NotEqual(t, page.Users[0].ID, rest.Users[0].ID)
}
