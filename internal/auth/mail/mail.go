// Package mail renders and delivers the account emails: verification codes,
// one-time passwords, password reset links and the welcome message.
package mail

import (
	"context"
	"errors"
	"time"
)

var ErrNoRecipient = errors.New("mail: no recipient")

// Message is a rendered email ready for a Transport.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Transport delivers a rendered message.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// Sender is what the services depend on.
type Sender interface {
	SendVerificationCode(ctx context.Context, to, code string, expiresIn time.Duration) error
	SendOTP(ctx context.Context, to, code string, expiresIn time.Duration) error
	SendPasswordReset(ctx context.Context, to, name, link string, expiresIn time.Duration) error
	SendWelcome(ctx context.Context, to, name string) error
}
