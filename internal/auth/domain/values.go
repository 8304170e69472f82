package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"unicode"

	"github.com/aussiebroadwan/gatekeeper/pkg/cryptox"
	"github.com/google/uuid"
)

const (
	maxEmailLength    = 254
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// PasswordSymbols is the set a password must draw at least one symbol from.
const PasswordSymbols = "!@#$%^&*()_+-=[]{};':\"\\|,.<>/?~`"

var (
	emailRe = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@" +
		"[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?" +
		"(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*" +
		"\\.[a-zA-Z]{2,63}$")
	codeRe = regexp.MustCompile(`^[0-9]{6}$`)
)

// Email is a syntactically valid address. Case is preserved.
type Email struct{ value string }

func NewEmail(s string) (Email, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Email{}, invalid("email", "must not be empty")
	}
	if len(s) > maxEmailLength || !emailRe.MatchString(s) {
		return Email{}, invalid("email", "not a valid address")
	}
	return Email{value: s}, nil
}

// MustEmail panics on invalid input. Tests and seed data only.
func MustEmail(s string) Email {
	e, err := NewEmail(s)
	if err != nil {
		panic(err)
	}
	return e
}

func (e Email) String() string         { return e.value }
func (e Email) IsZero() bool           { return e.value == "" }
func (e Email) Equal(other Email) bool { return e.value == other.value }

// Password is plaintext input that met the strength rules. It is never stored;
// hash it and hand the hash to the User.
type Password struct{ value string }

func NewPassword(s string) (Password, error) {
	if len(s) < MinPasswordLength {
		return Password{}, invalid("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	if len(s) > MaxPasswordLength {
		return Password{}, invalid("password", fmt.Sprintf("must be at most %d characters", MaxPasswordLength))
	}

	var lower, upper, digit, symbol bool
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		}
	}

	switch {
	case !lower:
		return Password{}, invalid("password", "must contain a lowercase letter")
	case !upper:
		return Password{}, invalid("password", "must contain an uppercase letter")
	case !digit:
		return Password{}, invalid("password", "must contain a digit")
	case !symbol:
		return Password{}, invalid("password", "must contain a symbol")
	}
	return Password{value: s}, nil
}

func (p Password) String() string { return p.value }

// Token is an opaque UUID v4 handed to clients (refresh and reset tokens).
type Token struct{ value string }

func NewToken(s string) (Token, error) {
	u, err := uuid.Parse(s)
	if err != nil || u.Version() != 4 || u.Variant() != uuid.RFC4122 {
		return Token{}, invalid("token", "not a UUID v4")
	}
	if strings.ToLower(s) != u.String() {
		return Token{}, invalid("token", "not in canonical form")
	}
	return Token{value: u.String()}, nil
}

func GenerateToken() Token {
	return Token{value: uuid.NewString()}
}

func (t Token) String() string { return t.value }
func (t Token) IsZero() bool   { return t.value == "" }

// Fingerprint is the form persisted in storage.
func (t Token) Fingerprint() string { return cryptox.FingerprintToken(t.value) }

// VerificationCode is a six digit numeric code.
type VerificationCode struct{ value string }

func NewVerificationCode(s string) (VerificationCode, error) {
	if !codeRe.MatchString(s) {
		return VerificationCode{}, invalid("code", "must be exactly 6 digits")
	}
	return VerificationCode{value: s}, nil
}

// GenerateVerificationCode returns 100000 + random(0..899999).
func GenerateVerificationCode() (VerificationCode, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return VerificationCode{}, fmt.Errorf("generate code: %w", err)
	}
	return VerificationCode{value: fmt.Sprintf("%06d", 100000+n.Int64())}, nil
}

func (c VerificationCode) String() string                    { return c.value }
func (c VerificationCode) Equal(other VerificationCode) bool { return c.value == other.value }
