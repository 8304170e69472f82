package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/mail"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store"
	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// twoFactorSetupTTL bounds how long an enrolment secret waits for its first
// confirming code.
const twoFactorSetupTTL = 10 * time.Minute

// authenticatorSkew tolerates one step of clock drift on codes read from an
// authenticator app.
const authenticatorSkew = 1

type AuthConfig struct {
	OTPIssuer  string
	OTPStep    uint // seconds
	OTPDigits  int
	OTPTTL     time.Duration
	RefreshTTL time.Duration

	EmailVerificationTTL time.Duration
	PasswordResetTTL     time.Duration

	// PasswordResetURL is the page the reset mail links to; the token is
	// added as the "token" query parameter.
	PasswordResetURL string
}

func (c AuthConfig) withDefaults() AuthConfig {
	if c.OTPIssuer == "" {
		c.OTPIssuer = "gatekeeper"
	}
	if c.OTPStep == 0 {
		c.OTPStep = 30
	}
	if c.OTPDigits == 0 {
		c.OTPDigits = 6
	}
	if c.OTPTTL <= 0 {
		c.OTPTTL = 5 * time.Minute
	}
	if c.RefreshTTL <= 0 {
		c.RefreshTTL = 7 * 24 * time.Hour
	}
	if c.EmailVerificationTTL <= 0 {
		c.EmailVerificationTTL = 15 * time.Minute
	}
	if c.PasswordResetTTL <= 0 {
		c.PasswordResetTTL = domain.DefaultPasswordResetTTL
	}
	return c
}

// AuthService covers one-time codes, two-factor enrolment, refresh tokens,
// email verification and password resets.
type AuthService struct {
	Store  store.Store
	Hasher *cryptox.Hasher
	Config AuthConfig

	// Mailer delivers codes and links. Optional; without it codes are only
	// returned to the caller.
	Mailer mail.Sender
}

// TwoFactorSetup is what a user needs to add the account to an
// authenticator app.
type TwoFactorSetup struct {
	Secret string
	URL    string
}

func (s *AuthService) cfg() AuthConfig { return s.Config.withDefaults() }

// totpOpts allows skew steps either side of the validation time.
func (s *AuthService) totpOpts(skew uint) totp.ValidateOpts {
	c := s.cfg()
	return totp.ValidateOpts{
		Period:    c.OTPStep,
		Skew:      skew,
		Digits:    otp.Digits(c.OTPDigits),
		Algorithm: otp.AlgorithmSHA1,
	}
}

func (s *AuthService) newKey(account string) (*otp.Key, error) {
	c := s.cfg()
	return totp.Generate(totp.GenerateOpts{
		Issuer:      c.OTPIssuer,
		AccountName: account,
		Period:      c.OTPStep,
		Digits:      otp.Digits(c.OTPDigits),
		Algorithm:   otp.AlgorithmSHA1,
	})
}

func (s *AuthService) activeUser(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "user", userID)
	}
	if !u.IsActive() {
		return nil, domain.ErrInactiveUser
	}
	return u, nil
}

// GenerateOTP starts a one-time login code for the user, replacing any
// earlier one, and mails it when a Mailer is set. The code is returned.
func (s *AuthService) GenerateOTP(ctx context.Context, userID string) (string, error) {
	c := s.cfg()

	u, err := s.activeUser(ctx, userID)
	if err != nil {
		return "", err
	}

	key, err := s.newKey(u.Email().String())
	if err != nil {
		return "", fmt.Errorf("generate otp secret: %w", err)
	}
	rec, err := domain.NewOtp(u.ID(), domain.OtpPurposeLogin, key.Secret(), c.OTPTTL)
	if err != nil {
		return "", err
	}
	// The code belongs to the step the record was issued in; ExpiresAt
	// bounds its lifetime.
	code, err := totp.GenerateCodeCustom(key.Secret(), rec.CreatedAt, s.totpOpts(0))
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.OTPs().DeleteUserOtps(ctx, u.ID(), domain.OtpPurposeLogin); err != nil {
			return err
		}
		return tx.OTPs().CreateOtp(ctx, rec)
	})
	if err != nil {
		return "", err
	}

	if s.Mailer != nil {
		if err := s.Mailer.SendOTP(ctx, u.Email().String(), code, c.OTPTTL); err != nil {
			return "", fmt.Errorf("send otp: %w", err)
		}
	}
	return code, nil
}

// VerifyOTP consumes the user's live one-time login code. Only the code of
// the step the record was issued in matches.
func (s *AuthService) VerifyOTP(ctx context.Context, userID, code string) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		rec, err := tx.OTPs().GetLatestOtp(ctx, userID, domain.OtpPurposeLogin)
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrOtpInvalid
		}
		if err != nil {
			return err
		}
		if rec.IsVerified() {
			return domain.ErrOtpInvalid
		}
		if rec.IsExpired() {
			return domain.ErrOtpExpired
		}

		ok, err := totp.ValidateCustom(code, rec.Secret, rec.CreatedAt, s.totpOpts(0))
		if err != nil || !ok {
			slogx.FromContext(ctx).Warn("otp verification failed", slog.String("user_id", userID))
			return domain.ErrOtpInvalid
		}

		if err := rec.MarkAsVerified(); err != nil {
			return err
		}
		err = tx.OTPs().MarkOtpVerified(ctx, rec.ID, *rec.VerifiedAt)
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrOtpInvalid
		}
		return err
	})
}

// SetupTwoFactor issues a new secret. It is only stored on the user once
// ConfirmTwoFactor sees a valid code from it.
func (s *AuthService) SetupTwoFactor(ctx context.Context, userID string) (TwoFactorSetup, error) {
	u, err := s.activeUser(ctx, userID)
	if err != nil {
		return TwoFactorSetup{}, err
	}
	if u.OtpEnabled() {
		return TwoFactorSetup{}, forbidden("two-factor already enabled")
	}

	key, err := s.newKey(u.Email().String())
	if err != nil {
		return TwoFactorSetup{}, fmt.Errorf("generate two-factor secret: %w", err)
	}
	rec, err := domain.NewOtp(u.ID(), domain.OtpPurposeEnrolment, key.Secret(), twoFactorSetupTTL)
	if err != nil {
		return TwoFactorSetup{}, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.OTPs().DeleteUserOtps(ctx, u.ID(), domain.OtpPurposeEnrolment); err != nil {
			return err
		}
		return tx.OTPs().CreateOtp(ctx, rec)
	})
	if err != nil {
		return TwoFactorSetup{}, err
	}
	return TwoFactorSetup{Secret: key.Secret(), URL: key.URL()}, nil
}

func (s *AuthService) ConfirmTwoFactor(ctx context.Context, userID, code string) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		u, err := tx.Users().GetUserByID(ctx, userID)
		if err != nil {
			return storeErr(err, "user", userID)
		}

		rec, err := tx.OTPs().GetLatestOtp(ctx, userID, domain.OtpPurposeEnrolment)
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrOtpInvalid
		}
		if err != nil {
			return err
		}
		if rec.IsVerified() {
			return domain.ErrOtpInvalid
		}
		if rec.IsExpired() {
			return domain.ErrOtpExpired
		}
		if ok, _ := totp.ValidateCustom(code, rec.Secret, domain.Now(), s.totpOpts(authenticatorSkew)); !ok {
			return domain.ErrOtpInvalid
		}

		if err := u.EnableTwoFactor(rec.Secret); err != nil {
			return err
		}
		if err := tx.Users().UpdateUser(ctx, u); err != nil {
			return err
		}
		if err := tx.OTPs().DeleteUserOtps(ctx, userID, domain.OtpPurposeEnrolment); err != nil {
			return err
		}
		slogx.FromContext(ctx).Info("two-factor enabled", slog.String("user_id", userID))
		return nil
	})
}

// VerifyTwoFactor checks code against the user's enrolled secret.
func (s *AuthService) VerifyTwoFactor(u *domain.User, code string) error {
	if !u.OtpEnabled() {
		return forbidden("two-factor not enabled")
	}
	ok, err := totp.ValidateCustom(code, u.OtpSecret(), domain.Now(), s.totpOpts(authenticatorSkew))
	if err != nil || !ok {
		return domain.ErrOtpInvalid
	}
	return nil
}

// DisableTwoFactor needs a current code. Already disabled is a no-op.
func (s *AuthService) DisableTwoFactor(ctx context.Context, userID, code string) error {
	u, err := s.activeUser(ctx, userID)
	if err != nil {
		return err
	}
	if !u.OtpEnabled() {
		return nil
	}
	if err := s.VerifyTwoFactor(u, code); err != nil {
		return err
	}
	u.DisableTwoFactor()
	if err := s.Store.Users().UpdateUser(ctx, u); err != nil {
		return err
	}
	slogx.FromContext(ctx).Info("two-factor disabled", slog.String("user_id", userID))
	return nil
}

// IssueRefreshToken drops every earlier token of the user; one live refresh
// token per user.
func (s *AuthService) IssueRefreshToken(ctx context.Context, userID string) (domain.Token, error) {
	rt, tok, err := domain.NewRefreshToken(userID, s.cfg().RefreshTTL)
	if err != nil {
		return domain.Token{}, err
	}
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.RefreshTokens().DeleteUserRefreshTokens(ctx, userID); err != nil {
			return err
		}
		return tx.RefreshTokens().CreateRefreshToken(ctx, rt)
	})
	if err != nil {
		return domain.Token{}, err
	}
	return tok, nil
}

// ValidateRefreshToken returns ErrAuthenticationFailed for malformed,
// unknown, expired or revoked tokens.
func (s *AuthService) ValidateRefreshToken(ctx context.Context, raw string) (*domain.RefreshToken, error) {
	tok, err := domain.NewToken(raw)
	if err != nil {
		return nil, domain.ErrAuthenticationFailed
	}
	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, tok.Fingerprint())
	if errors.Is(err, store.ErrNotFound) {
		return nil, domain.ErrAuthenticationFailed
	}
	if err != nil {
		return nil, err
	}
	if !rt.Matches(tok) || !rt.IsValid() {
		return nil, domain.ErrAuthenticationFailed
	}
	return rt, nil
}

// RevokeRefreshToken is idempotent; unknown tokens are ignored.
func (s *AuthService) RevokeRefreshToken(ctx context.Context, raw string) error {
	tok, err := domain.NewToken(raw)
	if err != nil {
		return nil
	}
	rt, err := s.Store.RefreshTokens().GetRefreshTokenByHash(ctx, tok.Fingerprint())
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if rt.IsRevoked() {
		return nil
	}
	rt.Revoke()
	return s.Store.RefreshTokens().RevokeRefreshToken(ctx, rt.ID, *rt.RevokedAt)
}

func (s *AuthService) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	return s.Store.RefreshTokens().DeleteUserRefreshTokens(ctx, userID)
}

// SendEmailVerification replaces any pending code for the address with a
// new one.
func (s *AuthService) SendEmailVerification(ctx context.Context, email string) (*domain.EmailVerification, error) {
	c := s.cfg()

	addr, err := domain.NewEmail(email)
	if err != nil {
		return nil, err
	}
	v, err := domain.NewEmailVerification(addr, c.EmailVerificationTTL)
	if err != nil {
		return nil, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.EmailVerifications().DeletePendingEmailVerifications(ctx, addr.String()); err != nil {
			return err
		}
		return tx.EmailVerifications().CreateEmailVerification(ctx, v)
	})
	if err != nil {
		return nil, err
	}

	if s.Mailer != nil {
		if err := s.Mailer.SendVerificationCode(ctx, addr.String(), v.Code.String(), c.EmailVerificationTTL); err != nil {
			return nil, fmt.Errorf("send verification code: %w", err)
		}
	}
	return v, nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	addr, err := domain.NewEmail(email)
	if err != nil {
		return err
	}
	vc, err := domain.NewVerificationCode(code)
	if err != nil {
		return err
	}

	v, err := s.Store.EmailVerifications().GetEmailVerification(ctx, addr.String(), vc.String())
	if errors.Is(err, store.ErrNotFound) {
		slogx.FromContext(ctx).Warn("email verification with unknown code")
		return domain.ErrOtpInvalid
	}
	if err != nil {
		return err
	}
	if v.IsVerified() {
		return domain.ErrOtpInvalid
	}
	if v.IsExpired() {
		return domain.ErrOtpExpired
	}
	if err := v.MarkAsVerified(); err != nil {
		return err
	}
	return s.Store.EmailVerifications().MarkEmailVerified(ctx, v.ID, *v.VerifiedAt)
}

func (s *AuthService) IsEmailVerified(ctx context.Context, email string) (bool, error) {
	return s.Store.EmailVerifications().IsEmailVerified(ctx, email)
}

// RequestPasswordReset returns EntityNotFound for unknown addresses; the
// caller decides whether to reveal that. Earlier unused resets are dropped.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*domain.PasswordReset, domain.Token, error) {
	c := s.cfg()

	addr, err := domain.NewEmail(email)
	if err != nil {
		return nil, domain.Token{}, err
	}
	u, err := s.Store.Users().GetUserByEmail(ctx, addr.String())
	if err != nil {
		return nil, domain.Token{}, storeErr(err, "user", addr.String())
	}
	if !u.IsActive() {
		return nil, domain.Token{}, domain.ErrInactiveUser
	}

	pr, tok, err := domain.NewPasswordReset(u.ID(), addr, c.PasswordResetTTL)
	if err != nil {
		return nil, domain.Token{}, err
	}
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.PasswordResets().DeletePendingPasswordResets(ctx, u.ID()); err != nil {
			return err
		}
		return tx.PasswordResets().CreatePasswordReset(ctx, pr)
	})
	if err != nil {
		return nil, domain.Token{}, err
	}

	if s.Mailer != nil {
		link := resetLink(c.PasswordResetURL, tok)
		if err := s.Mailer.SendPasswordReset(ctx, addr.String(), u.FirstName(), link, c.PasswordResetTTL); err != nil {
			return nil, domain.Token{}, fmt.Errorf("send password reset: %w", err)
		}
	}
	slogx.FromContext(ctx).Info("password reset requested", slog.String("user_id", u.ID()))
	return pr, tok, nil
}

func resetLink(base string, tok domain.Token) string {
	u, err := url.Parse(base)
	if err != nil || base == "" {
		return tok.String()
	}
	q := u.Query()
	q.Set("token", tok.String())
	u.RawQuery = q.Encode()
	return u.String()
}

// ResetPassword consumes a reset token and sets the new password. Used or
// unknown tokens give ErrOtpInvalid, expired ones ErrOtpExpired; in both
// cases the password is untouched. On success every refresh token of the
// user is revoked.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	password, err := domain.NewPassword(newPassword)
	if err != nil {
		return err
	}
	tok, err := domain.NewToken(rawToken)
	if err != nil {
		return domain.ErrOtpInvalid
	}

	hash, err := s.Hasher.Hash(password.String())
	if err != nil {
		return err
	}

	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		pr, err := tx.PasswordResets().GetPasswordResetByHash(ctx, tok.Fingerprint())
		if errors.Is(err, store.ErrNotFound) {
			return domain.ErrOtpInvalid
		}
		if err != nil {
			return err
		}
		if pr.IsUsed() || !pr.Matches(tok) {
			return domain.ErrOtpInvalid
		}
		if pr.IsExpired() {
			return domain.ErrOtpExpired
		}

		u, err := tx.Users().GetUserByID(ctx, pr.UserID)
		if err != nil {
			return storeErr(err, "user", pr.UserID)
		}
		if err := u.ChangePassword(hash); err != nil {
			return err
		}
		if err := tx.Users().UpdateUser(ctx, u); err != nil {
			return err
		}

		if err := pr.MarkAsUsed(); err != nil {
			return err
		}
		if err := tx.PasswordResets().MarkPasswordResetUsed(ctx, pr.ID, *pr.UsedAt); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.ErrOtpInvalid
			}
			return err
		}
		if err := tx.RefreshTokens().DeleteUserRefreshTokens(ctx, u.ID()); err != nil {
			return err
		}

		slogx.FromContext(ctx).Info("password reset completed", slog.String("user_id", u.ID()))
		return nil
	})
}
