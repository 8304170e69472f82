package auth_test

import (
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/app"
	"github.com/aussiebroadwan/gatekeeper/internal/testutil"
	"github.com/aussiebroadwan/gatekeeper/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

/*
 * Common constants and helper functions for auth service end-to-end tests.
 * The whole application is wired from a Config exactly as cmd/auth does it
 * and served over a real listener; Redis and MinIO come from containers.
 */

const (
	adminEmail    = "admin@example.com"
	adminPassword = "Admin123!pass"
	userPassword  = "User123!pass"
	testSecret    = "e2e-secret-that-is-long-enough-for-hs256"
)

type options struct {
	redis        bool
	storage      bool
	strictLimit  int
	generalLimit int
	accessTTL    time.Duration
	configure    func(*app.Config)
}

type option func(*options)

func withRedis() option   { return func(o *options) { o.redis = true } }
func withStorage() option { return func(o *options) { o.storage = true } }

// withDefaultRateLimits keeps production throttle limits; most tests raise
// them so rapid requests are not rejected.
func withDefaultRateLimits() option {
	return func(o *options) { o.strictLimit, o.generalLimit = 5, 10 }
}

func withAccessTTL(d time.Duration) option { return func(o *options) { o.accessTTL = d } }

// startGatekeeper runs the service and returns its base URL.
func startGatekeeper(t *testing.T, opts ...option) string {
	t.Helper()

	o := options{strictLimit: 1000, generalLimit: 1000, accessTTL: 15 * time.Minute}
	for _, fn := range opts {
		fn(&o)
	}

	dir := t.TempDir()
	cfg := app.Config{
		DatabaseFile:         filepath.Join(dir, "auth.db"),
		PepperFile:           filepath.Join(dir, "pepper"),
		Env:                  "test",
		LogLevel:             "error",
		LogFormat:            "json",
		ShutdownGracePeriod:  time.Second,
		HousekeepingInterval: time.Hour,

		JWTSecret:        testSecret,
		JWTIssuer:        "gatekeeper-e2e",
		AccessTokenTTL:   o.accessTTL,
		RefreshTokenDays: 7,
		OTPIssuer:        "gatekeeper-e2e",
		OTPStep:          30,
		OTPDigits:        6,
		OTPExpiration:    5 * time.Minute,
		EmailVerifyTTL:   15 * time.Minute,
		PasswordResetTTL: time.Hour,

		ThrottleTTL:    time.Minute,
		ThrottleLimit:  o.generalLimit,
		ThrottleStrict: o.strictLimit,

		StorageBucket:       "gatekeeper-e2e",
		StorageSignedURLTTL: 5 * time.Minute,
		MaxUploadBytes:      1 << 20,

		AdminEmail:     adminEmail,
		AdminPassword:  adminPassword,
		AdminFirstName: "System",
		AdminLastName:  "Administrator",
	}
	if o.redis {
		cfg.RedisAddr = testutil.StartRedis(t)
	}
	if o.storage {
		cfg.StorageEndpoint = testutil.StartMinio(t)
		cfg.StorageAccessKey = testutil.MinioAccessKey
		cfg.StorageSecretKey = testutil.MinioSecretKey
	}
	if o.configure != nil {
		o.configure(&cfg)
	}
	require.NoError(t, cfg.Validate())

	application, err := app.New(cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(func() {
		srv.Close()
		if err := application.Close(); err != nil {
			t.Logf("failed to close application: %v", err)
		}
	})

	return srv.URL
}

// loginAdmin logs in as the seeded administrator.
func loginAdmin(t *testing.T, client *authsdk.SDKClient) *authsdk.Session {
	t.Helper()

	session, err := client.Login(t.Context(), adminEmail, adminPassword, "")
	require.NoError(t, err, "admin login should succeed")
	require.True(t, session.HasRole("admin"))
	return session
}

// registerAndLogin creates a self-registered account and logs it in.
func registerAndLogin(t *testing.T, client *authsdk.SDKClient, email string) (*authsdk.UserResponse, *authsdk.Session) {
	t.Helper()

	user, err := client.Register(t.Context(), authsdk.RegisterRequest{
		Email:     email,
		Password:  userPassword,
		FirstName: "Test",
		LastName:  "User",
	})
	require.NoError(t, err, "register should succeed")

	session, err := client.Login(t.Context(), email, userPassword, "")
	require.NoError(t, err, "login should succeed")
	return user, session
}

// findRoleByName searches for a role by name and returns its ID.
func findRoleByName(t *testing.T, session *authsdk.Session, roleName string) string {
	t.Helper()

	rolesResp, err := session.ListRoles(t.Context())
	require.NoError(t, err)
	require.NotEmpty(t, rolesResp.Roles, "Should have at least one role")

	for _, role := range rolesResp.Roles {
		if role.Name == roleName {
			return role.ID
		}
	}

	t.Fatalf("Role '%s' not found", roleName)
	return ""
}

// findPermissionByName returns the ID of a "resource:action" permission.
func findPermissionByName(t *testing.T, session *authsdk.Session, name string) string {
	t.Helper()

	resp, err := session.ListPermissions(t.Context())
	require.NoError(t, err)
	for _, p := range resp.Permissions {
		if p.Name == name {
			return p.ID
		}
	}

	t.Fatalf("Permission '%s' not found", name)
	return ""
}

// assertTokenResponse verifies a token response has all required fields.
func assertTokenResponse(t *testing.T, resp *authsdk.TokenResponse) {
	t.Helper()
	require.NotNil(t, resp)
	require.NotEmpty(t, resp.AccessToken, "Access token should not be empty")
	require.NotEmpty(t, resp.RefreshToken, "Refresh token should not be empty")
	require.Equal(t, "Bearer", resp.TokenType, "Token type should be Bearer")
	require.Positive(t, resp.ExpiresIn)
}

// assertHealthy verifies a health check response is OK.
func assertHealthy(t *testing.T, health *authsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}

// assertAPIError checks err carries the expected API error code.
func assertAPIError(t *testing.T, err error, want *authsdk.APIError, context string) {
	t.Helper()
	require.Error(t, err, context)
	require.ErrorIs(t, err, want, "%s: got %v", context, err)
}

func uniqueEmail(t *testing.T) string {
	name := strings.ToLower(strings.NewReplacer("/", "-", "_", "-").Replace(t.Name()))
	return name + "@example.com"
}
