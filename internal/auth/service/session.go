package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/pkg/jwtx"
	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
)

// SessionService turns credentials into token pairs: a signed access token
// and an opaque refresh token.
type SessionService struct {
	Users     *UserService
	Auth      *AuthService
	Signer    jwtx.Signer
	Issuer    string
	AccessTTL time.Duration
}

// Login checks credentials and, for two-factor accounts, the code.
// Accounts with two-factor and no code get ErrTwoFactorRequired.
func (s *SessionService) Login(ctx context.Context, email, password, otpCode string) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	u, err := s.Users.ValidateCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrAuthenticationFailed
	}

	if u.OtpEnabled() {
		if otpCode == "" {
			return nil, domain.ErrTwoFactorRequired
		}
		if err := s.Auth.VerifyTwoFactor(u, otpCode); err != nil {
			l.Warn("login with wrong two-factor code", slog.String("user_id", u.ID()))
			return nil, fmt.Errorf("%w: %w", domain.ErrAuthenticationFailed, err)
		}
	}

	if err := s.Users.RecordLogin(ctx, u); err != nil {
		return nil, err
	}
	pair, err := s.Issue(ctx, u)
	if err != nil {
		return nil, err
	}
	l.Info("user logged in", slog.String("user_id", u.ID()))
	return pair, nil
}

// LoginWithOTP completes a passwordless login with a code from GenerateOTP.
// Two-factor accounts still need their authenticator code.
func (s *SessionService) LoginWithOTP(ctx context.Context, email, code, twoFactorCode string) (*domain.TokenPair, error) {
	l := slogx.FromContext(ctx)

	u, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrEntityNotFound) {
			return nil, domain.ErrAuthenticationFailed
		}
		return nil, err
	}
	if !u.IsActive() {
		return nil, domain.ErrAuthenticationFailed
	}
	if err := s.Auth.VerifyOTP(ctx, u.ID(), code); err != nil {
		if errors.Is(err, domain.ErrOtpInvalid) || errors.Is(err, domain.ErrOtpExpired) {
			return nil, fmt.Errorf("%w: %w", domain.ErrAuthenticationFailed, err)
		}
		return nil, err
	}

	if u.OtpEnabled() {
		if twoFactorCode == "" {
			return nil, domain.ErrTwoFactorRequired
		}
		if err := s.Auth.VerifyTwoFactor(u, twoFactorCode); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrAuthenticationFailed, err)
		}
	}

	if err := s.Users.RecordLogin(ctx, u); err != nil {
		return nil, err
	}
	pair, err := s.Issue(ctx, u)
	if err != nil {
		return nil, err
	}
	l.Info("user logged in with one-time code", slog.String("user_id", u.ID()))
	return pair, nil
}

// Refresh rotates the refresh token and mints a new access token with the
// user's current roles.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	rt, err := s.Auth.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	u, err := s.Users.GetUser(ctx, rt.UserID)
	if err != nil {
		return nil, domain.ErrAuthenticationFailed
	}
	if !u.IsActive() {
		return nil, domain.ErrAuthenticationFailed
	}
	return s.Issue(ctx, u)
}

func (s *SessionService) Logout(ctx context.Context, refreshToken string) error {
	return s.Auth.RevokeRefreshToken(ctx, refreshToken)
}

// Issue mints a token pair for an already authenticated user.
func (s *SessionService) Issue(ctx context.Context, u *domain.User) (*domain.TokenPair, error) {
	verified, err := s.Auth.IsEmailVerified(ctx, u.Email().String())
	if err != nil {
		return nil, err
	}

	ttl := s.AccessTTL
	if ttl <= 0 {
		ttl = jwtx.DefaultAccessTokenTTL
	}

	claims := jwtx.NewAccessClaims(jwtx.Subject{
		UserID:        u.ID(),
		Email:         u.Email().String(),
		EmailVerified: verified,
		Roles:         u.Roles().Names(),
		Permissions:   u.PermissionNames(),
	}, s.Issuer, ttl, time.Now())

	access, err := s.Signer.Sign(claims)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := s.Auth.IssueRefreshToken(ctx, u.ID())
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh.String(),
		TokenType:    "Bearer",
		ExpiresIn:    ttl,
	}, nil
}
