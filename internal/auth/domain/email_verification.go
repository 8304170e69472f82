package domain

import (
	"time"

	"github.com/aussiebroadwan/gatekeeper/pkg/idx"
)

type EmailVerification struct {
	ID         string
	Email      string
	Code       VerificationCode
	ExpiresAt  time.Time
	VerifiedAt *time.Time
	CreatedAt  time.Time
}

func NewEmailVerification(email Email, ttl time.Duration) (*EmailVerification, error) {
	if email.IsZero() {
		return nil, invalid("email", "must not be empty")
	}
	code, err := GenerateVerificationCode()
	if err != nil {
		return nil, err
	}
	t := now()
	return &EmailVerification{
		ID:        idx.NewString(),
		Email:     email.String(),
		Code:      code,
		ExpiresAt: t.Add(ttl),
		CreatedAt: t,
	}, nil
}

func (v *EmailVerification) IsExpired() bool  { return now().After(v.ExpiresAt) }
func (v *EmailVerification) IsVerified() bool { return v.VerifiedAt != nil }

func (v *EmailVerification) MarkAsVerified() error {
	if v.VerifiedAt != nil {
		return ErrOtpInvalid
	}
	t := now()
	v.VerifiedAt = &t
	return nil
}
