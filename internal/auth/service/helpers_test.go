package service

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/blob"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/mail"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeeper/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const (
	testSecret     = "0123456789abcdef0123456789abcdef"
	testIssuer     = "gatekeeper-test"
	adminEmail     = "admin@example.com"
	adminPassword  = "AdminPass123!"
	memberPassword = "Password123!"
)

type fixture struct {
	store    *sqlite.Store
	outbox   *mail.Outbox
	blobs    *blob.MemoryStorage
	authz    *AuthorizationService
	users    *UserService
	roles    *RolesService
	perms    *PermissionService
	auth     *AuthService
	sessions *SessionService
	files    *FileService
	verifier *jwtx.HS256Verifier
	admin    string
}

// cheap argon2 parameters; the real ones make the suite slow
func testHasher() *cryptox.Hasher {
	h := cryptox.NewHasher("test-pepper")
	h.Params = cryptox.Params{Memory: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	return h
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	hasher := testHasher()
	outbox := &mail.Outbox{}
	mailer := mail.NewMailer(outbox, "Gatekeeper")
	blobs := blob.NewMemoryStorage()
	authz := &AuthorizationService{}

	signer, err := jwtx.NewSignerHS256([]byte(testSecret))
	require.NoError(t, err)

	f := &fixture{
		store:    st,
		outbox:   outbox,
		blobs:    blobs,
		authz:    authz,
		verifier: jwtx.NewVerifierHS256([]byte(testSecret), testIssuer),
	}
	f.files = &FileService{Store: st, Blob: blobs, Authz: authz, SignedURLTTL: time.Minute}
	f.users = &UserService{Store: st, Hasher: hasher, Authz: authz, Mailer: mailer, Files: f.files}
	f.roles = &RolesService{Store: st, Authz: authz}
	f.perms = &PermissionService{Store: st}
	f.auth = &AuthService{
		Store:  st,
		Hasher: hasher,
		Mailer: mailer,
		Config: AuthConfig{PasswordResetURL: "https://app.example.com/reset"},
	}
	f.sessions = &SessionService{Users: f.users, Auth: f.auth, Signer: signer, Issuer: testIssuer, AccessTTL: time.Minute}

	seed := &SeedService{Store: st, Hasher: hasher, Admin: AdminSeed{Email: adminEmail, Password: adminPassword}}
	require.NoError(t, seed.Seed(ctx))

	admin, err := st.Users().GetUserByEmail(ctx, adminEmail)
	require.NoError(t, err)
	f.admin = admin.ID()
	return f
}

func (f *fixture) member(t *testing.T, email string) *domain.User {
	t.Helper()
	u, err := f.users.CreateUser(context.Background(), CreateUserInput{
		Email:     email,
		Password:  memberPassword,
		FirstName: "Test",
		LastName:  "Member",
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) permission(t *testing.T, name string) domain.Permission {
	t.Helper()
	p, err := f.store.Permissions().GetPermissionByName(context.Background(), name)
	require.NoError(t, err)
	return p
}

func (f *fixture) role(t *testing.T, name string) *domain.Role {
	t.Helper()
	r, err := f.roles.GetRoleByName(context.Background(), name)
	require.NoError(t, err)
	return r
}

// shiftClock moves the domain clock forward by d for the rest of the test.
func shiftClock(t *testing.T, d time.Duration) {
	t.Helper()
	t.Cleanup(domain.SetNow(func() time.Time { return time.Now().UTC().Add(d) }))
}

func ptr[T any](v T) *T { return &v }
