package policy_test

import (
	"testing"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/policy"
	"github.com/stretchr/testify/require"
)

func newPerm(t *testing.T, name string) domain.Permission {
	t.Helper()
	ra, err := domain.ParseResourceAction(name)
	require.NoError(t, err)
	p, err := domain.NewPermission(ra, name)
	require.NoError(t, err)
	return p
}

func newRole(t *testing.T, name string, perms ...string) *domain.Role {
	t.Helper()
	r, err := domain.NewRole(name, name, false)
	require.NoError(t, err)
	for _, p := range perms {
		require.NoError(t, r.AddPermissionsOnCreation(newPerm(t, p)))
	}
	return r
}

func newUser(t *testing.T, roles ...*domain.Role) *domain.User {
	t.Helper()
	u, err := domain.NewUser(domain.MustEmail("a@b.com"), "hash", "Jane", "Doe")
	require.NoError(t, err)
	for _, r := range roles {
		require.NoError(t, u.AddRoleOnCreation(r))
	}
	return u
}

func TestCombinators(t *testing.T) {
	even := policy.Func[int](func(n int) bool { return n%2 == 0 })
	positive := policy.Func[int](func(n int) bool { return n > 0 })

	tests := []struct {
		name string
		spec policy.Specification[int]
		in   int
		want bool
	}{
		{"and true", even.And(positive), 4, true},
		{"and false", even.And(positive), -4, false},
		{"or", even.Or(positive), 3, true},
		{"or false", even.Or(positive), -3, false},
		{"not", even.Not(), 3, true},
		{"all", policy.All[int](even, positive), 2, true},
		{"all empty", policy.All[int](), -1, true},
		{"any", policy.Any[int](even, positive), -2, true},
		{"any empty", policy.Any[int](), 1, false},
		{"Not", policy.Not[int](positive), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.spec.IsSatisfiedBy(tt.in))
		})
	}
}

func TestUserSpecifications(t *testing.T) {
	member := newRole(t, "member", "user:read")
	admin := newRole(t, "admin", "user:update", "role:update")

	plain := newUser(t, member)
	boss := newUser(t, admin)

	require.True(t, policy.ActiveUser().IsSatisfiedBy(plain))
	require.False(t, policy.AdminUser().IsSatisfiedBy(plain))
	require.True(t, policy.AdminUser().IsSatisfiedBy(boss))
	require.True(t, policy.EligibleForAdminRole().IsSatisfiedBy(boss))
	require.False(t, policy.EligibleForAdminRole().IsSatisfiedBy(plain))
	require.True(t, policy.CompleteAccount().IsSatisfiedBy(plain))
	require.True(t, policy.UserHasPermission("role:update").IsSatisfiedBy(boss))
	require.False(t, policy.UserHasPermission("role:update").IsSatisfiedBy(plain))
	require.False(t, policy.TwoFactorEnabled().IsSatisfiedBy(plain))

	require.NoError(t, plain.EnableTwoFactor("SECRET"))
	require.True(t, policy.TwoFactorEnabled().IsSatisfiedBy(plain))

	boss.Deactivate()
	require.False(t, policy.EligibleForAdminRole().IsSatisfiedBy(boss))
}

func TestCanAssignRole(t *testing.T) {
	member := newRole(t, "member", "user:read")
	uploader := newRole(t, "uploader", "storage:create")
	admin := newRole(t, "admin", "role:update")

	plain := newUser(t, member)

	require.True(t, policy.CanAssignRole(uploader).IsSatisfiedBy(plain))
	require.False(t, policy.CanAssignRole(member).IsSatisfiedBy(plain), "already held")
	require.False(t, policy.CanAssignRole(admin).IsSatisfiedBy(plain), "not admin-eligible")

	// once an admin role arrives through the seed path, promotion is allowed
	other := newRole(t, "ops", "system:update")
	require.NoError(t, plain.AddRoleOnCreation(other))
	require.True(t, policy.CanAssignRole(admin).IsSatisfiedBy(plain))

	plain.Deactivate()
	require.False(t, policy.CanAssignRole(uploader).IsSatisfiedBy(plain))
}

func TestRoleSpecifications(t *testing.T) {
	def, err := domain.NewRole("user", "default", true)
	require.NoError(t, err)
	member := newRole(t, "member", "user:read")
	admin := newRole(t, "admin")

	require.False(t, policy.CanDeleteRole().IsSatisfiedBy(def))
	require.True(t, policy.CanDeleteRole().IsSatisfiedBy(member))
	require.True(t, policy.AdminRole().IsSatisfiedBy(admin))

	read := member.Permissions()[0]
	del := newPerm(t, "user:delete")
	audit := newPerm(t, "audit:read")

	require.False(t, policy.CanAssignPermissionToRole(read).IsSatisfiedBy(member))
	require.False(t, policy.CanAssignPermissionToRole(del).IsSatisfiedBy(member))
	require.True(t, policy.CanAssignPermissionToRole(del).IsSatisfiedBy(admin))
	require.True(t, policy.CanAssignPermissionToRole(audit).IsSatisfiedBy(member))
}
