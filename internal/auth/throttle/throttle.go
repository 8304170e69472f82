// Package throttle limits how often an identifier (IP, email, user id) may hit
// a flow inside a fixed window.
package throttle

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
)

const (
	DefaultTTL   = 60 * time.Second
	DefaultLimit = 10
)

// Throttler is implemented in memory (single process) and over Redis.
type Throttler interface {
	// IsAllowed reports whether one more request would be accepted.
	IsAllowed(ctx context.Context, identifier string) (bool, error)

	// TrackRequest counts a request and returns *Error once the limit is hit.
	TrackRequest(ctx context.Context, identifier string) error

	// RemainingRequests returns how many requests are left in the window.
	RemainingRequests(ctx context.Context, identifier string) (int, error)

	// Reset forgets the identifier's window.
	Reset(ctx context.Context, identifier string) error
}

type Config struct {
	TTL   time.Duration
	Limit int
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	return c
}

// Error is returned by TrackRequest once an identifier is over its limit.
type Error struct {
	Identifier string
	Limit      int
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("throttle: %q exceeded %d requests, retry in %ds", e.Identifier, e.Limit, e.Seconds())
}

func (e *Error) Unwrap() error { return domain.ErrThrottled }

// Seconds is RetryAfter rounded up, never below 1.
func (e *Error) Seconds() int {
	return max(int(math.Ceil(e.RetryAfter.Seconds())), 1)
}

func checkIdentifier(id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.ErrInvalidThrottleIdentifier
	}
	return nil
}
