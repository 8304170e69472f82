package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/gatekeeper/internal/auth/domain"
	"github.com/aussiebroadwan/gatekeeper/internal/auth/store"
)

const defaultHousekeepingInterval = time.Hour

// HousekeepingService removes expired OTPs, refresh tokens, email
// verifications and password resets on a fixed interval.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = defaultHousekeepingInterval
	}
	return &HousekeepingService{Store: st, Logger: logger, Interval: interval}
}

// Start sweeps once immediately and then on every tick until Stop. A second
// Start while running does nothing.
func (s *HousekeepingService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx, s.done)
	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop cancels the loop and waits for a running sweep to return. Safe to
// call more than once, and before Start.
func (s *HousekeepingService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return
	}

	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	tick := time.NewTicker(s.Interval)
	defer tick.Stop()

	for {
		s.Cleanup(ctx)

		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}

type sweep struct {
	table string
	purge func(context.Context, time.Time) (int64, error)
}

func (s *HousekeepingService) sweeps() []sweep {
	return []sweep{
		{"otps", s.Store.OTPs().DeleteExpiredOtps},
		{"refresh_tokens", s.Store.RefreshTokens().DeleteExpiredRefreshTokens},
		{"email_verifications", s.Store.EmailVerifications().DeleteExpiredEmailVerifications},
		{"password_resets", s.Store.PasswordResets().DeleteExpiredPasswordResets},
	}
}

// Cleanup runs one sweep and returns the number of rows removed. A failing
// table is logged and skipped.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	cutoff := domain.Now()

	var removed int64
	for _, sw := range s.sweeps() {
		if ctx.Err() != nil {
			break
		}
		n, err := sw.purge(ctx, cutoff)
		if err != nil {
			s.Logger.Error("housekeeping sweep failed", "table", sw.table, "error", err)
			continue
		}
		removed += n
	}

	if removed > 0 {
		s.Logger.Info("housekeeping removed expired rows", "count", removed)
	}
	return removed
}
