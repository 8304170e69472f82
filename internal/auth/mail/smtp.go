package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/gatekeeper/pkg/slogx"
	"golang.org/x/time/rate"
	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// RatePerSecond paces outgoing mail so a burst of sign-ups doesn't trip
	// the relay's limits. Zero disables pacing.
	RatePerSecond float64
}

// SMTPTransport delivers through an SMTP relay using gomail.
type SMTPTransport struct {
	from    string
	dialer  *gomail.Dialer
	limiter *rate.Limiter
}

func NewSMTPTransport(cfg SMTPConfig) (*SMTPTransport, error) {
	if cfg.Host == "" || cfg.Port == 0 || cfg.From == "" {
		return nil, errors.New("mail: SMTP host, port and from address must be configured")
	}

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	if cfg.Port == 465 {
		d.SSL = true
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), max(int(cfg.RatePerSecond), 1))
	}

	return &SMTPTransport{from: cfg.From, dialer: d, limiter: limiter}, nil
}

func (s *SMTPTransport) Send(ctx context.Context, msg Message) error {
	log := slogx.FromContext(ctx)

	if msg.To == "" {
		return ErrNoRecipient
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("mail: waiting for send slot: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	switch {
	case msg.HTML != "":
		m.SetBody("text/html", msg.HTML)
		if msg.Text != "" {
			m.AddAlternative("text/plain", msg.Text)
		}
	case msg.Text != "":
		m.SetBody("text/plain", msg.Text)
	default:
		return errors.New("mail: empty body")
	}

	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()

	select {
	case <-ctx.Done():
		log.Warn("mail send cancelled", "subject", msg.Subject, "err", ctx.Err())
		return fmt.Errorf("mail: send cancelled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			log.Error("mail send failed", "subject", msg.Subject, "err", err)
			return fmt.Errorf("mail: send: %w", err)
		}
	}

	log.Info("mail sent", "subject", msg.Subject)
	return nil
}
