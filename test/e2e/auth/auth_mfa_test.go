package auth_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeeper/pkg/authsdk"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

// TestTwoFactorEnrollmentAndLogin tests the complete two-factor enrolment and
// authentication flow.
func TestTwoFactorEnrollmentAndLogin(t *testing.T) {
	baseURL := startGatekeeper(t)
	client := authsdk.NewSDKClient(baseURL)
	ctx := t.Context()

	email := uniqueEmail(t)
	_, session := registerAndLogin(t, client, email)

	setup, err := session.SetupTwoFactor(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, setup.Secret)
	require.Contains(t, setup.OtpauthURL, "otpauth://totp/")

	require.Error(t, session.ConfirmTwoFactor(ctx, "000000"), "wrong confirmation code")

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, session.ConfirmTwoFactor(ctx, code))

	me, err := session.GetMe(ctx)
	require.NoError(t, err)
	require.True(t, me.TwoFactorEnabled)

	_, err = client.Login(ctx, email, userPassword, "")
	assertAPIError(t, err, authsdk.ErrTwoFactorRequired, "login without code")

	_, err = client.Login(ctx, email, userPassword, "123456")
	assertAPIError(t, err, authsdk.ErrAuthenticationFailed, "login with wrong code")

	code, err = totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	mfaSession, err := client.Login(ctx, email, userPassword, code)
	require.NoError(t, err)
	require.Equal(t, session.UserID(), mfaSession.UserID())

	code, err = totp.GenerateCode(setup.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, mfaSession.DisableTwoFactor(ctx, code))

	_, err = client.Login(ctx, email, userPassword, "")
	require.NoError(t, err, "login without code after disabling")
}
