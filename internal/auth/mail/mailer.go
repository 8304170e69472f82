package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"math"
	texttemplate "text/template"
	"time"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt.tmpl"))
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html.tmpl"))
)

// Mailer renders the account templates and hands them to a Transport.
type Mailer struct {
	Transport Transport
	AppName   string
}

func NewMailer(t Transport, appName string) *Mailer {
	if appName == "" {
		appName = "Gatekeeper"
	}
	return &Mailer{Transport: t, AppName: appName}
}

type templateData struct {
	AppName string
	Name    string
	Code    string
	Link    string
	Minutes int
}

func (m *Mailer) SendVerificationCode(ctx context.Context, to, code string, expiresIn time.Duration) error {
	return m.send(ctx, to, "Verify your email address", "verification", templateData{
		Code:    code,
		Minutes: minutes(expiresIn),
	})
}

func (m *Mailer) SendOTP(ctx context.Context, to, code string, expiresIn time.Duration) error {
	return m.send(ctx, to, "Your one-time login code", "otp", templateData{
		Code:    code,
		Minutes: minutes(expiresIn),
	})
}

func (m *Mailer) SendPasswordReset(ctx context.Context, to, name, link string, expiresIn time.Duration) error {
	return m.send(ctx, to, "Reset your password", "password_reset", templateData{
		Name:    name,
		Link:    link,
		Minutes: minutes(expiresIn),
	})
}

func (m *Mailer) SendWelcome(ctx context.Context, to, name string) error {
	return m.send(ctx, to, "Welcome to "+m.AppName, "welcome", templateData{Name: name})
}

func (m *Mailer) send(ctx context.Context, to, subject, tmpl string, data templateData) error {
	if to == "" {
		return ErrNoRecipient
	}
	data.AppName = m.AppName

	var text, html bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&text, tmpl+".txt.tmpl", data); err != nil {
		return fmt.Errorf("mail: render %s text: %w", tmpl, err)
	}
	if err := htmlTemplates.ExecuteTemplate(&html, tmpl+".html.tmpl", data); err != nil {
		return fmt.Errorf("mail: render %s html: %w", tmpl, err)
	}

	return m.Transport.Send(ctx, Message{
		To:      to,
		Subject: fmt.Sprintf("[%s] %s", m.AppName, subject),
		Text:    text.String(),
		HTML:    html.String(),
	})
}

func minutes(d time.Duration) int {
	return max(int(math.Ceil(d.Minutes())), 1)
}
