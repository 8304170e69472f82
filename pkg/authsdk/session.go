package authsdk

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/gatekeeper/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
)

// refreshBuffer refreshes the access token this long before it expires.
const refreshBuffer = 30 * time.Second

// Session represents an authenticated session with automatic token refresh.
// All Session methods automatically handle token expiration and refresh when needed.
type Session struct {
	client *SDKClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
	claims       jwtx.Claims
	permissions  map[string]bool
}

// newSession creates a session from a token response. The access token is
// decoded without verification to learn the user's roles and permissions;
// the server still verifies it on every request.
func newSession(client *SDKClient, tokenResp *TokenResponse) (*Session, error) {
	s := &Session{client: client}
	if err := s.setTokens(tokenResp); err != nil {
		return nil, err
	}
	return s, nil
}

func parseClaims(raw string) (jwtx.Claims, error) {
	var claims jwtx.Claims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return jwtx.Claims{}, fmt.Errorf("failed to parse access token: %w", err)
	}
	return claims, nil
}

// setTokens must be called with s.mu held for writing, or before s is shared.
func (s *Session) setTokens(tokenResp *TokenResponse) error {
	claims, err := parseClaims(tokenResp.AccessToken)
	if err != nil {
		return err
	}

	perms := make(map[string]bool, len(claims.Permissions))
	for _, p := range claims.Permissions {
		perms[p] = true
	}

	s.accessToken = tokenResp.AccessToken
	if tokenResp.RefreshToken != "" {
		s.refreshToken = tokenResp.RefreshToken
	}
	s.expiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - refreshBuffer)
	s.claims = claims
	s.permissions = perms
	return nil
}

// getValidToken returns a valid access token, automatically refreshing if expired.
func (s *Session) getValidToken(ctx context.Context) (string, error) {
	s.mu.RLock()
	if time.Now().Before(s.expiresAt) {
		token := s.accessToken
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock (another goroutine may have refreshed)
	if time.Now().Before(s.expiresAt) {
		return s.accessToken, nil
	}

	if s.refreshToken == "" {
		return "", errors.New("access token expired and no refresh token available")
	}

	tokenResp, err := s.client.Refresh(ctx, s.refreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	if err := s.setTokens(tokenResp); err != nil {
		return "", err
	}

	return s.accessToken, nil
}

// Logout revokes the session's refresh token.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.RLock()
	refreshToken := s.refreshToken
	s.mu.RUnlock()

	if refreshToken == "" {
		return errors.New("no refresh token to revoke")
	}

	return s.client.Logout(ctx, refreshToken)
}

// AccessToken returns the current access token without checking expiration.
// For most use cases, prefer using the Session methods which handle refresh automatically.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// UserID is the subject of the current access token.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims.Subject
}

// Roles returns the role names carried in the current access token.
func (s *Session) Roles() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.claims.Roles)
}

// Permissions returns the "resource:action" names carried in the current
// access token.
func (s *Session) Permissions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.claims.Permissions)
}

func (s *Session) HasPermission(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.permissions[name]
}

func (s *Session) HasRole(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims.HasRole(name)
}

// checkPermissions returns ErrForbidden when checking is enabled and any of
// required is missing from the token.
func (s *Session) checkPermissions(required ...string) error {
	if !s.client.CheckPermissions || len(required) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var missing []string
	for _, p := range required {
		if !s.permissions[p] {
			missing = append(missing, p)
		}
	}

	if len(missing) > 0 {
		return ErrForbidden.WithDescription("missing permission: " + strings.Join(missing, ", "))
	}

	return nil
}
