package domain

import (
	"time"

	"github.com/aussiebroadwan/gatekeeper/pkg/idx"
)

// OtpPurpose separates mailed login codes from pending two-factor
// enrolments; each purpose keeps its own live record per user.
type OtpPurpose string

const (
	OtpPurposeLogin     OtpPurpose = "login"
	OtpPurposeEnrolment OtpPurpose = "enrolment"
)

func (p OtpPurpose) valid() bool {
	return p == OtpPurposeLogin || p == OtpPurposeEnrolment
}

// Otp is a pending TOTP secret: a one-time login code, or a two-factor
// enrolment waiting for confirmation.
type Otp struct {
	ID         string
	UserID     string
	Purpose    OtpPurpose
	Secret     string
	ExpiresAt  time.Time
	VerifiedAt *time.Time
	CreatedAt  time.Time
}

func NewOtp(userID string, purpose OtpPurpose, secret string, ttl time.Duration) (*Otp, error) {
	if userID == "" {
		return nil, invalid("userId", "must not be empty")
	}
	if !purpose.valid() {
		return nil, invalid("purpose", "must be login or enrolment")
	}
	if secret == "" {
		return nil, invalid("secret", "must not be empty")
	}
	t := now()
	return &Otp{
		ID:        idx.NewString(),
		UserID:    userID,
		Purpose:   purpose,
		Secret:    secret,
		ExpiresAt: t.Add(ttl),
		CreatedAt: t,
	}, nil
}

func (o *Otp) IsExpired() bool  { return now().After(o.ExpiresAt) }
func (o *Otp) IsVerified() bool { return o.VerifiedAt != nil }

// MarkAsVerified consumes the code. A second call fails with ErrOtpInvalid.
func (o *Otp) MarkAsVerified() error {
	if o.VerifiedAt != nil {
		return ErrOtpInvalid
	}
	t := now()
	o.VerifiedAt = &t
	return nil
}
