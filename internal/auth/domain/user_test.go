package domain_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	tickingClock(t)

	u := user(t, "a@b.com")
	require.True(t, u.IsActive())
	require.True(t, u.Roles().IsEmpty())
	require.False(t, u.OtpEnabled())
	require.Nil(t, u.LastLoginAt())
	require.False(t, u.UpdatedAt().Before(u.CreatedAt()))

	_, err := domain.NewUser(domain.MustEmail("a@b.com"), "", "Jane", "Doe")
	require.ErrorIs(t, err, domain.ErrInvalidValue)

	_, err = domain.NewUser(domain.MustEmail("a@b.com"), "hash", "  ", "Doe")
	require.ErrorIs(t, err, domain.ErrInvalidValue)
}

func TestUserRemoveRole(t *testing.T) {
	tickingClock(t)

	reader := role(t, "reader", perm(t, "user", domain.ActionRead))
	writer := role(t, "writer", perm(t, "storage", domain.ActionCreate))

	u := user(t, "a@b.com")
	require.NoError(t, u.AddRole(reader))

	t.Run("last role cannot be removed", func(t *testing.T) {
		require.ErrorIs(t, u.RemoveRole(reader.ID()), domain.ErrUserCannotRemoveLastRole)
		require.Equal(t, 1, u.Roles().Len())
	})

	t.Run("non-last role shrinks the set by one", func(t *testing.T) {
		require.NoError(t, u.AddRole(writer))
		require.Equal(t, 2, u.Roles().Len())

		require.NoError(t, u.RemoveRole(writer.ID()))
		require.Equal(t, 1, u.Roles().Len())
		require.True(t, u.HasRole(reader.ID()))
	})

	t.Run("absent role is a no-op", func(t *testing.T) {
		before := u.UpdatedAt()
		require.NoError(t, u.RemoveRole("missing"))
		require.Equal(t, before, u.UpdatedAt())
	})
}

func TestInactiveUserIsFrozen(t *testing.T) {
	tickingClock(t)

	extra := role(t, "extra")
	base := role(t, "base")

	u := user(t, "a@b.com")
	require.NoError(t, u.AddRole(base))
	require.NoError(t, u.AddRole(extra))
	u.Deactivate()

	mutations := map[string]func() error{
		"changeEmail":    func() error { return u.ChangeEmail(domain.MustEmail("new@b.com")) },
		"changePassword": func() error { return u.ChangePassword("new-hash") },
		"updateProfile":  func() error { return u.UpdateProfile("John", "Smith") },
		"addRole":        func() error { return u.AddRole(role(t, "another")) },
		"removeRole":     func() error { return u.RemoveRole(extra.ID()) },
		"enable2fa":      func() error { return u.EnableTwoFactor("SECRET") },
	}

	for name, fn := range mutations {
		require.ErrorIs(t, fn(), domain.ErrInactiveUser, name)
	}

	u.Activate()
	for name, fn := range mutations {
		require.NoError(t, fn(), name)
	}
	require.Equal(t, "new@b.com", u.Email().String())
	require.Equal(t, "John Smith", u.FullName())
	require.Equal(t, "new-hash", u.PasswordHash())
}

func TestUserIdempotentToggles(t *testing.T) {
	tickingClock(t)

	u := user(t, "a@b.com")
	before := u.UpdatedAt()

	u.Activate()
	u.DisableTwoFactor()
	require.NoError(t, u.UpdateProfile("Jane", "Doe"))
	require.NoError(t, u.ChangeEmail(domain.MustEmail("a@b.com")))
	require.Equal(t, before, u.UpdatedAt())

	u.Deactivate()
	deactivated := u.UpdatedAt()
	require.True(t, deactivated.After(before))

	u.Deactivate()
	require.Equal(t, deactivated, u.UpdatedAt())
}

func TestUserTwoFactor(t *testing.T) {
	tickingClock(t)

	u := user(t, "a@b.com")
	require.ErrorIs(t, u.EnableTwoFactor(""), domain.ErrInvalidValue)

	require.NoError(t, u.EnableTwoFactor("JBSWY3DPEHPK3PXP"))
	require.True(t, u.OtpEnabled())
	require.Equal(t, "JBSWY3DPEHPK3PXP", u.OtpSecret())

	u.DisableTwoFactor()
	require.False(t, u.OtpEnabled())
	require.Empty(t, u.OtpSecret())
}

func TestAdminEscalation(t *testing.T) {
	tickingClock(t)

	admin := role(t, "superuser", perm(t, "role", domain.ActionUpdate))
	require.True(t, admin.IsAdminRole())
	plain := role(t, "member", perm(t, "user", domain.ActionRead))

	u := user(t, "a@b.com")
	require.NoError(t, u.AddRole(plain))
	require.False(t, u.IsEligibleForAdminRole())

	require.ErrorIs(t, u.AddRole(admin), domain.ErrUserNotEligibleForRole)
	require.False(t, u.HasRole(admin.ID()))

	// seed path bypasses eligibility
	require.NoError(t, u.AddRoleOnCreation(admin))
	require.True(t, u.IsEligibleForAdminRole())

	another := role(t, "ops-admin")
	require.NoError(t, u.AddRole(another))

	require.ErrorIs(t, u.AddRole(another), domain.ErrUserAlreadyHasRole)

	u.Deactivate()
	require.False(t, u.IsEligibleForAdminRole())
}

func TestUserRolesAreCopies(t *testing.T) {
	tickingClock(t)

	r := role(t, "reader", perm(t, "user", domain.ActionRead))
	u := user(t, "a@b.com")
	require.NoError(t, u.AddRole(r))

	// mutating the caller's role does not leak into the user
	r.RemovePermission(r.Permissions()[0].ID())
	require.True(t, u.HasPermission("user:read"))

	got := u.Roles().Items()[0]
	got.RemovePermission(got.Permissions()[0].ID())
	require.True(t, u.HasPermission("user:read"))
	require.Equal(t, []string{"user:read"}, u.PermissionNames())
}

func TestUserFromData(t *testing.T) {
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	r := role(t, "reader")

	u, err := domain.UserFromData(domain.UserData{
		ID:           "01J000000000000000000000AA",
		Email:        "a@b.com",
		PasswordHash: "hash",
		FirstName:    "Jane",
		LastName:     "Doe",
		IsActive:     true,
		OtpEnabled:   true,
		OtpSecret:    "SECRET",
		Roles:        []*domain.Role{r},
		CreatedAt:    created,
		UpdatedAt:    created.Add(-time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, created, u.UpdatedAt(), "updatedAt is never behind createdAt")
	require.True(t, u.HasRole(r.ID()))

	d := u.Data()
	require.Equal(t, "a@b.com", d.Email)
	require.Len(t, d.Roles, 1)

	_, err = domain.UserFromData(domain.UserData{ID: "x", Email: "a@b.com", OtpEnabled: true})
	require.ErrorIs(t, err, domain.ErrInvalidValue)
}

func TestRecordLogin(t *testing.T) {
	tickingClock(t)

	u := user(t, "a@b.com")
	at := time.Date(2025, 2, 2, 10, 0, 0, 0, time.UTC)
	u.RecordLogin(at)
	require.Equal(t, at, *u.LastLoginAt())

	// returned pointer is a copy
	*u.LastLoginAt() = time.Time{}
	require.Equal(t, at, *u.LastLoginAt())
}
