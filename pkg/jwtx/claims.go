package jwtx

import (
	"slices"
	"time"

	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultAccessTokenTTL keeps access tokens short-lived; refresh tokens
	// carry the session.
	DefaultAccessTokenTTL = 15 * time.Minute

	// DefaultRefreshTokenDays is how long a refresh token stays valid.
	DefaultRefreshTokenDays = 7
)

// Claims is the access-token payload:
//
//	{sub, email, emailVerified, roles: [name...], permissions: ["resource:action", ...]}
//
// plus the registered iss/iat/nbf/exp/jti claims.
type Claims struct {
	jwt.RegisteredClaims

	Email         string   `json:"email"`
	EmailVerified bool     `json:"emailVerified"`
	Roles         []string `json:"roles"`
	Permissions   []string `json:"permissions"`
}

// Subject describes the user a token is minted for.
type Subject struct {
	UserID        string
	Email         string
	EmailVerified bool
	Roles         []string
	Permissions   []string
}

// NewAccessClaims builds claims for s valid from now for ttl.
func NewAccessClaims(s Subject, issuer string, ttl time.Duration, now time.Time) Claims {
	roles := s.Roles
	if roles == nil {
		roles = []string{}
	}
	perms := s.Permissions
	if perms == nil {
		perms = []string{}
	}

	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        newJTI(),
		},
		Email:         s.Email,
		EmailVerified: s.EmailVerified,
		Roles:         roles,
		Permissions:   perms,
	}
}

func newJTI() string {
	jti, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	return jti
}

// HasPermission reports whether the token grants "resource:action".
func (c *Claims) HasPermission(name string) bool {
	return slices.Contains(c.Permissions, name)
}

// HasRole reports whether the token lists the named role.
func (c *Claims) HasRole(name string) bool {
	return slices.Contains(c.Roles, name)
}

// ValidateIssuer checks iss when expected is non-empty.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" || c.Issuer == expected {
		return nil
	}
	return ErrIssuer
}

// ValidateExpiry checks exp and nbf against now, allowing leeway for skew.
func (c *Claims) ValidateExpiry(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
