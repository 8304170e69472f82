package domain

import (
	"time"

	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeeper/pkg/idx"
)

// TokenPair is what login and refresh return: the short-lived access token
// (JWT) and the opaque refresh token.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    time.Duration `json:"expires_in"`
}

// RefreshToken models the stored refresh token record. The plaintext token is
// only returned at issue time; storage keeps its fingerprint.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string // deterministic fingerprint (base64url SHA-256)
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

func NewRefreshToken(userID string, ttl time.Duration) (*RefreshToken, Token, error) {
	if userID == "" {
		return nil, Token{}, invalid("userId", "must not be empty")
	}
	tok := GenerateToken()
	t := now()
	return &RefreshToken{
		ID:        idx.NewString(),
		UserID:    userID,
		TokenHash: tok.Fingerprint(),
		ExpiresAt: t.Add(ttl),
		CreatedAt: t,
	}, tok, nil
}

func (r *RefreshToken) IsExpired() bool { return now().After(r.ExpiresAt) }
func (r *RefreshToken) IsRevoked() bool { return r.RevokedAt != nil }
func (r *RefreshToken) IsValid() bool   { return !r.IsExpired() && !r.IsRevoked() }

func (r *RefreshToken) Matches(tok Token) bool {
	return cryptox.EqualFingerprint(tok.String(), r.TokenHash)
}

// Revoke is idempotent.
func (r *RefreshToken) Revoke() {
	if r.RevokedAt != nil {
		return
	}
	t := now()
	r.RevokedAt = &t
}
