package domain

import (
	"time"

	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/aussiebroadwan/gatekeeper/pkg/idx"
)

// DefaultPasswordResetTTL is how long a reset link stays usable.
const DefaultPasswordResetTTL = time.Hour

// PasswordReset is a one-time reset token. Storage keeps the fingerprint.
type PasswordReset struct {
	ID        string
	UserID    string
	Email     string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

func NewPasswordReset(userID string, email Email, ttl time.Duration) (*PasswordReset, Token, error) {
	if userID == "" {
		return nil, Token{}, invalid("userId", "must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultPasswordResetTTL
	}
	tok := GenerateToken()
	t := now()
	return &PasswordReset{
		ID:        idx.NewString(),
		UserID:    userID,
		Email:     email.String(),
		TokenHash: tok.Fingerprint(),
		ExpiresAt: t.Add(ttl),
		CreatedAt: t,
	}, tok, nil
}

func (p *PasswordReset) IsExpired() bool { return now().After(p.ExpiresAt) }
func (p *PasswordReset) IsUsed() bool    { return p.UsedAt != nil }

func (p *PasswordReset) Matches(tok Token) bool {
	return cryptox.EqualFingerprint(tok.String(), p.TokenHash)
}

// MarkAsUsed consumes the token; a second use fails with ErrOtpInvalid.
func (p *PasswordReset) MarkAsUsed() error {
	if p.UsedAt != nil {
		return ErrOtpInvalid
	}
	t := now()
	p.UsedAt = &t
	return nil
}
