package service

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestOTP(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.member(t, "kim@example.com")

	require.ErrorIs(t, f.auth.VerifyOTP(ctx, u.ID(), "123456"), domain.ErrOtpInvalid, "no code issued yet")

	code, err := f.auth.GenerateOTP(ctx, u.ID())
	require.NoError(t, err)
	require.Len(t, code, 6)

	msg, ok := f.outbox.Last("kim@example.com")
	require.True(t, ok)
	require.Contains(t, msg.Text, code)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	require.ErrorIs(t, f.auth.VerifyOTP(ctx, u.ID(), wrong), domain.ErrOtpInvalid)
	require.NoError(t, f.auth.VerifyOTP(ctx, u.ID(), code))
	require.ErrorIs(t, f.auth.VerifyOTP(ctx, u.ID(), code), domain.ErrOtpInvalid, "codes are single use")

	t.Run("new code replaces the old one", func(t *testing.T) {
		first, err := f.auth.GenerateOTP(ctx, u.ID())
		require.NoError(t, err)
		second, err := f.auth.GenerateOTP(ctx, u.ID())
		require.NoError(t, err)
		if first != second {
			require.ErrorIs(t, f.auth.VerifyOTP(ctx, u.ID(), first), domain.ErrOtpInvalid)
		}
		require.NoError(t, f.auth.VerifyOTP(ctx, u.ID(), second))
	})

	t.Run("expired", func(t *testing.T) {
		code, err := f.auth.GenerateOTP(ctx, u.ID())
		require.NoError(t, err)
		shiftClock(t, 6*time.Minute)
		require.ErrorIs(t, f.auth.VerifyOTP(ctx, u.ID(), code), domain.ErrOtpExpired)
	})

	t.Run("inactive user", func(t *testing.T) {
		_, err := f.users.DeactivateUser(ctx, u.ID())
		require.NoError(t, err)
		_, err = f.auth.GenerateOTP(ctx, u.ID())
		require.ErrorIs(t, err, domain.ErrInactiveUser)
	})
}

func TestVerifyOTPOnlyAcceptsIssuedStep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.member(t, "ola@example.com")

	code, err := f.auth.GenerateOTP(ctx, u.ID())
	require.NoError(t, err)

	rec, err := f.store.OTPs().GetLatestOtp(ctx, u.ID(), domain.OtpPurposeLogin)
	require.NoError(t, err)

	step := 30 * time.Second
	for _, offset := range []time.Duration{-step, step, 2 * step, 4 * time.Minute} {
		other, err := totp.GenerateCodeCustom(rec.Secret, rec.CreatedAt.Add(offset), f.auth.totpOpts(0))
		require.NoError(t, err)
		if other == code {
			continue
		}
		require.ErrorIs(t, f.auth.VerifyOTP(ctx, u.ID(), other), domain.ErrOtpInvalid, "offset %s", offset)
	}

	require.NoError(t, f.auth.VerifyOTP(ctx, u.ID(), code))
}

func TestLoginCodeDoesNotDisturbEnrolment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.member(t, "pat@example.com")

	setup, err := f.auth.SetupTwoFactor(ctx, u.ID())
	require.NoError(t, err)

	mailed, err := f.auth.GenerateOTP(ctx, u.ID())
	require.NoError(t, err)

	app, err := totp.GenerateCodeCustom(setup.Secret, domain.Now(), f.auth.totpOpts(0))
	require.NoError(t, err)
	if mailed != app {
		require.ErrorIs(t, f.auth.ConfirmTwoFactor(ctx, u.ID(), mailed), domain.ErrOtpInvalid,
			"the mailed login code must not confirm enrolment")
	}
	require.NoError(t, f.auth.ConfirmTwoFactor(ctx, u.ID(), app))

	u, err = f.users.GetUser(ctx, u.ID())
	require.NoError(t, err)
	require.True(t, u.OtpEnabled())
	require.Equal(t, setup.Secret, u.OtpSecret())

	// the login code is still live after enrolment completes
	require.NoError(t, f.auth.VerifyOTP(ctx, u.ID(), mailed))
}

func TestTwoFactorEnrolment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.member(t, "lee@example.com")

	setup, err := f.auth.SetupTwoFactor(ctx, u.ID())
	require.NoError(t, err)
	require.NotEmpty(t, setup.Secret)

	link, err := url.Parse(setup.URL)
	require.NoError(t, err)
	require.Equal(t, "otpauth", link.Scheme)
	require.Equal(t, setup.Secret, link.Query().Get("secret"))

	require.ErrorIs(t, f.auth.ConfirmTwoFactor(ctx, u.ID(), "000000x"), domain.ErrOtpInvalid)

	code, err := totp.GenerateCodeCustom(setup.Secret, domain.Now(), f.auth.totpOpts(0))
	require.NoError(t, err)
	require.NoError(t, f.auth.ConfirmTwoFactor(ctx, u.ID(), code))

	u, err = f.users.GetUser(ctx, u.ID())
	require.NoError(t, err)
	require.True(t, u.OtpEnabled())
	require.True(t, f.authz.CanPerformSensitiveOperations(u))

	_, err = f.auth.SetupTwoFactor(ctx, u.ID())
	require.ErrorIs(t, err, domain.ErrForbiddenAction)

	require.NoError(t, f.auth.VerifyTwoFactor(u, code))
	require.ErrorIs(t, f.auth.VerifyTwoFactor(u, "abc"), domain.ErrOtpInvalid)

	require.ErrorIs(t, f.auth.DisableTwoFactor(ctx, u.ID(), "abc"), domain.ErrOtpInvalid)
	require.NoError(t, f.auth.DisableTwoFactor(ctx, u.ID(), code))

	u, err = f.users.GetUser(ctx, u.ID())
	require.NoError(t, err)
	require.False(t, u.OtpEnabled())
	require.ErrorIs(t, f.auth.VerifyTwoFactor(u, code), domain.ErrForbiddenAction)

	// already disabled
	require.NoError(t, f.auth.DisableTwoFactor(ctx, u.ID(), ""))
}

func TestRefreshTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.member(t, "max@example.com")

	first, err := f.auth.IssueRefreshToken(ctx, u.ID())
	require.NoError(t, err)

	rt, err := f.auth.ValidateRefreshToken(ctx, first.String())
	require.NoError(t, err)
	require.Equal(t, u.ID(), rt.UserID)

	second, err := f.auth.IssueRefreshToken(ctx, u.ID())
	require.NoError(t, err)
	_, err = f.auth.ValidateRefreshToken(ctx, first.String())
	require.ErrorIs(t, err, domain.ErrAuthenticationFailed, "one live token per user")

	require.NoError(t, f.auth.RevokeRefreshToken(ctx, second.String()))
	require.NoError(t, f.auth.RevokeRefreshToken(ctx, second.String()))
	require.NoError(t, f.auth.RevokeRefreshToken(ctx, "garbage"))
	_, err = f.auth.ValidateRefreshToken(ctx, second.String())
	require.ErrorIs(t, err, domain.ErrAuthenticationFailed)

	_, err = f.auth.ValidateRefreshToken(ctx, "not-a-token")
	require.ErrorIs(t, err, domain.ErrAuthenticationFailed)

	third, err := f.auth.IssueRefreshToken(ctx, u.ID())
	require.NoError(t, err)
	require.NoError(t, f.auth.RevokeAllRefreshTokens(ctx, u.ID()))
	_, err = f.auth.ValidateRefreshToken(ctx, third.String())
	require.ErrorIs(t, err, domain.ErrAuthenticationFailed)

	t.Run("expired", func(t *testing.T) {
		tok, err := f.auth.IssueRefreshToken(ctx, u.ID())
		require.NoError(t, err)
		shiftClock(t, 8*24*time.Hour)
		_, err = f.auth.ValidateRefreshToken(ctx, tok.String())
		require.ErrorIs(t, err, domain.ErrAuthenticationFailed)
	})
}

func TestEmailVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	verified, err := f.auth.IsEmailVerified(ctx, adminEmail)
	require.NoError(t, err)
	require.True(t, verified, "seeded admin address is trusted")

	stale, err := f.auth.SendEmailVerification(ctx, "nia@example.com")
	require.NoError(t, err)
	v, err := f.auth.SendEmailVerification(ctx, "nia@example.com")
	require.NoError(t, err)

	msg, ok := f.outbox.Last("nia@example.com")
	require.True(t, ok)
	require.Contains(t, msg.Text, v.Code.String())

	if stale.Code.String() != v.Code.String() {
		require.ErrorIs(t, f.auth.VerifyEmail(ctx, "nia@example.com", stale.Code.String()), domain.ErrOtpInvalid)
	}
	require.ErrorIs(t, f.auth.VerifyEmail(ctx, "nia@example.com", "12"), domain.ErrInvalidValue)

	verified, err = f.auth.IsEmailVerified(ctx, "nia@example.com")
	require.NoError(t, err)
	require.False(t, verified)

	require.NoError(t, f.auth.VerifyEmail(ctx, "nia@example.com", v.Code.String()))
	require.ErrorIs(t, f.auth.VerifyEmail(ctx, "nia@example.com", v.Code.String()), domain.ErrOtpInvalid)

	verified, err = f.auth.IsEmailVerified(ctx, "nia@example.com")
	require.NoError(t, err)
	require.True(t, verified)

	t.Run("expired", func(t *testing.T) {
		v, err := f.auth.SendEmailVerification(ctx, "oli@example.com")
		require.NoError(t, err)
		shiftClock(t, 16*time.Minute)
		require.ErrorIs(t, f.auth.VerifyEmail(ctx, "oli@example.com", v.Code.String()), domain.ErrOtpExpired)
	})
}

func TestPasswordReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.member(t, "a@b.com")

	_, _, err := f.auth.RequestPasswordReset(ctx, "nobody@b.com")
	require.ErrorIs(t, err, domain.ErrEntityNotFound)

	refresh, err := f.auth.IssueRefreshToken(ctx, u.ID())
	require.NoError(t, err)

	pr, tok, err := f.auth.RequestPasswordReset(ctx, "a@b.com")
	require.NoError(t, err)
	require.Equal(t, u.ID(), pr.UserID)
	require.WithinDuration(t, domain.Now().Add(time.Hour), pr.ExpiresAt, time.Minute)

	msg, ok := f.outbox.Last("a@b.com")
	require.True(t, ok)
	require.Contains(t, msg.Text, "https://app.example.com/reset?token="+url.QueryEscape(tok.String()))

	require.ErrorIs(t, f.auth.ResetPassword(ctx, tok.String(), "weak"), domain.ErrInvalidValue)
	require.ErrorIs(t, f.auth.ResetPassword(ctx, "not-a-token", "NewPassword1!"), domain.ErrOtpInvalid)

	require.NoError(t, f.auth.ResetPassword(ctx, tok.String(), "NewPassword1!"))

	got, err := f.users.ValidateCredentials(ctx, "a@b.com", "NewPassword1!")
	require.NoError(t, err)
	require.NotNil(t, got)
	_, err = f.auth.ValidateRefreshToken(ctx, refresh.String())
	require.ErrorIs(t, err, domain.ErrAuthenticationFailed, "sessions end with a reset")

	require.ErrorIs(t, f.auth.ResetPassword(ctx, tok.String(), "Another123!"), domain.ErrOtpInvalid, "tokens are single use")

	t.Run("expired", func(t *testing.T) {
		_, tok, err := f.auth.RequestPasswordReset(ctx, "a@b.com")
		require.NoError(t, err)

		shiftClock(t, 2*time.Hour)
		require.ErrorIs(t, f.auth.ResetPassword(ctx, tok.String(), "Another123!"), domain.ErrOtpExpired)

		got, err := f.users.ValidateCredentials(ctx, "a@b.com", "NewPassword1!")
		require.NoError(t, err)
		require.NotNil(t, got, "password unchanged")
	})

	t.Run("newer request supersedes", func(t *testing.T) {
		_, old, err := f.auth.RequestPasswordReset(ctx, "a@b.com")
		require.NoError(t, err)
		_, _, err = f.auth.RequestPasswordReset(ctx, "a@b.com")
		require.NoError(t, err)
		require.ErrorIs(t, f.auth.ResetPassword(ctx, old.String(), "Another123!"), domain.ErrOtpInvalid)
	})

	t.Run("inactive user", func(t *testing.T) {
		_, err := f.users.DeactivateUser(ctx, u.ID())
		require.NoError(t, err)
		_, _, err = f.auth.RequestPasswordReset(ctx, "a@b.com")
		require.ErrorIs(t, err, domain.ErrInactiveUser)
	})
}

func TestResetLink(t *testing.T) {
	tok := domain.GenerateToken()
	require.Equal(t, tok.String(), resetLink("", tok))

	link := resetLink("https://app.example.com/reset?lang=en", tok)
	require.True(t, strings.HasPrefix(link, "https://app.example.com/reset?"))
	u, err := url.Parse(link)
	require.NoError(t, err)
	require.Equal(t, "en", u.Query().Get("lang"))
	require.Equal(t, tok.String(), u.Query().Get("token"))
}
