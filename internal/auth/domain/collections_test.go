package domain_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestPermissionsCollectionDuplicates(t *testing.T) {
	a := perm(t, "user", domain.ActionRead)
	sameName := perm(t, "user", domain.ActionRead)

	_, err := domain.NewPermissionsCollection(a, a)
	require.ErrorIs(t, err, domain.ErrDuplicateEntry)

	_, err = domain.NewPermissionsCollection(a, sameName)
	require.ErrorIs(t, err, domain.ErrDuplicateEntry)

	c, err := domain.NewPermissionsCollection(a)
	require.NoError(t, err)
	_, err = c.Add(sameName)
	require.ErrorIs(t, err, domain.ErrDuplicateEntry)
}

func TestPermissionsCollectionImmutable(t *testing.T) {
	read := perm(t, "user", domain.ActionRead)
	del := perm(t, "user", domain.ActionDelete)
	store := perm(t, "storage", domain.ActionRead)

	c, err := domain.NewPermissionsCollection(read)
	require.NoError(t, err)

	bigger, err := c.Add(del)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())
	require.Equal(t, 2, bigger.Len())

	smaller := bigger.Remove(read.ID())
	require.Equal(t, 2, bigger.Len())
	require.Equal(t, 1, smaller.Len())

	other, err := domain.NewPermissionsCollection(del, store)
	require.NoError(t, err)

	merged, err := c.Merge(other)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"user:read", "user:delete", "storage:read"}, merged.Names())

	both := merged.Intersect(other)
	require.ElementsMatch(t, []string{"user:delete", "storage:read"}, both.Names())

	require.Equal(t, []string{"user:read", "user:delete"}, merged.FilterByResource("user").Names())
	require.Equal(t, []string{"user:read", "storage:read"}, merged.FilterByAction(domain.ActionRead).Names())

	require.False(t, c.HasAdminPermissions())
	require.True(t, merged.HasAdminPermissions())
	require.True(t, merged.HasPermission("storage:read"))
	require.False(t, c.HasPermission("storage:read"))

	items := c.Items()
	items[0] = store
	require.True(t, c.HasPermission("user:read"))
}

func TestRolesCollection(t *testing.T) {
	reader := role(t, "reader", perm(t, "user", domain.ActionRead))
	writer := role(t, "writer", perm(t, "storage", domain.ActionCreate), perm(t, "user", domain.ActionRead))
	admin := role(t, "admin")

	t.Run("duplicate id", func(t *testing.T) {
		_, err := domain.NewRolesCollection(reader, reader)
		require.ErrorIs(t, err, domain.ErrDuplicateEntry)
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := domain.NewRolesCollection(reader, role(t, "reader"))
		require.ErrorIs(t, err, domain.ErrDuplicateEntry)
	})

	t.Run("two defaults", func(t *testing.T) {
		d1, err := domain.NewRole("d1", "first", true)
		require.NoError(t, err)
		d2, err := domain.NewRole("d2", "second", true)
		require.NoError(t, err)
		_, err = domain.NewRolesCollection(d1, d2)
		require.ErrorIs(t, err, domain.ErrDuplicateEntry)
	})

	t.Run("queries", func(t *testing.T) {
		c, err := domain.NewRolesCollection(reader, writer)
		require.NoError(t, err)

		require.True(t, c.Contains(reader.ID()))
		require.True(t, c.ContainsName("writer"))
		require.False(t, c.HasAdminPrivileges())
		require.Equal(t, []string{"storage:create", "user:read"}, c.PermissionNames())
		require.True(t, c.HasPermission("storage:create"))

		withAdmin, err := c.Add(admin)
		require.NoError(t, err)
		require.True(t, withAdmin.HasAdminPrivileges())
		require.False(t, c.HasAdminPrivileges(), "original untouched")
		require.Equal(t, []string{"admin"}, withAdmin.AdminRoles().Names())

		require.Equal(t, 1, c.Remove(writer.ID()).Len())
		require.Equal(t, 2, c.Len())
	})

	t.Run("items are clones", func(t *testing.T) {
		c, err := domain.NewRolesCollection(reader)
		require.NoError(t, err)

		got, ok := c.Get(reader.ID())
		require.True(t, ok)
		require.NoError(t, got.Rename("changed"))
		require.True(t, c.ContainsName("reader"))
	})
}

func TestPermissionFromData(t *testing.T) {
	p, err := domain.PermissionFromData(domain.PermissionData{
		ID:          "01J00000000000000000000PRM",
		Resource:    "audit",
		Action:      "read",
		Description: "read audit log",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	})
	require.NoError(t, err)
	require.Equal(t, "audit:read", p.Name())
	require.Equal(t, "audit", p.Data().Resource)

	require.NoError(t, p.UpdateDescription("new"))
	require.Equal(t, "new", p.Description())

	_, err = domain.PermissionFromData(domain.PermissionData{ID: "x", Resource: "audit", Action: "write", Description: "d"})
	require.ErrorIs(t, err, domain.ErrInvalidValue)
}
