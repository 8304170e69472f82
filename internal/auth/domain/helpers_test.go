package domain_test

import (
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

// tickingClock advances by one second on every read so a bump is always visible.
func tickingClock(t *testing.T) {
	t.Helper()
	var mu sync.Mutex
	cur := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	restore := domain.SetNow(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Second)
		return cur
	})
	t.Cleanup(restore)
}

// frozenClock returns a setter for a fixed clock.
func frozenClock(t *testing.T, at time.Time) func(time.Time) {
	t.Helper()
	var mu sync.Mutex
	cur := at
	restore := domain.SetNow(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return cur
	})
	t.Cleanup(restore)
	return func(next time.Time) {
		mu.Lock()
		cur = next
		mu.Unlock()
	}
}

func perm(t *testing.T, resource string, action domain.Action) domain.Permission {
	t.Helper()
	p, err := domain.NewPermission(domain.MustResourceAction(resource, action), resource+" "+string(action))
	require.NoError(t, err)
	return p
}

func role(t *testing.T, name string, perms ...domain.Permission) *domain.Role {
	t.Helper()
	r, err := domain.NewRole(name, name+" role", false)
	require.NoError(t, err)
	require.NoError(t, r.AddPermissionsOnCreation(perms...))
	return r
}

func user(t *testing.T, email string) *domain.User {
	t.Helper()
	u, err := domain.NewUser(domain.MustEmail(email), "$argon2id$hash", "Jane", "Doe")
	require.NoError(t, err)
	return u
}
