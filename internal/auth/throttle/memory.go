package throttle

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	expires time.Time
}

// MemoryThrottler keeps one fixed window per identifier in process memory.
// Expired windows are swept on every call; there is no background timer.
type MemoryThrottler struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

func NewMemory(cfg Config) *MemoryThrottler {
	return &MemoryThrottler{
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// WithClock swaps the time source. Tests only.
func (m *MemoryThrottler) WithClock(now func() time.Time) *MemoryThrottler {
	m.now = now
	return m
}

func (m *MemoryThrottler) IsAllowed(_ context.Context, id string) (bool, error) {
	if err := checkIdentifier(id); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweep(m.now())
	w, ok := m.windows[id]
	return !ok || w.count < m.cfg.Limit, nil
}

func (m *MemoryThrottler) TrackRequest(_ context.Context, id string) error {
	if err := checkIdentifier(id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	w, ok := m.windows[id]
	switch {
	case !ok:
		m.windows[id] = &window{count: 1, expires: now.Add(m.cfg.TTL)}
	case w.count >= m.cfg.Limit:
		return &Error{Identifier: id, Limit: m.cfg.Limit, RetryAfter: w.expires.Sub(now)}
	default:
		w.count++
	}
	return nil
}

func (m *MemoryThrottler) RemainingRequests(_ context.Context, id string) (int, error) {
	if err := checkIdentifier(id); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweep(m.now())
	w, ok := m.windows[id]
	if !ok {
		return m.cfg.Limit, nil
	}
	return max(m.cfg.Limit-w.count, 0), nil
}

func (m *MemoryThrottler) Reset(_ context.Context, id string) error {
	if err := checkIdentifier(id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweep(m.now())
	delete(m.windows, id)
	return nil
}

// Len returns the number of tracked windows, including expired ones the
// next call has yet to sweep.
func (m *MemoryThrottler) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

// sweep drops every window that has run out. Callers hold mu.
func (m *MemoryThrottler) sweep(now time.Time) {
	for id, w := range m.windows {
		if !now.Before(w.expires) {
			delete(m.windows, id)
		}
	}
}
