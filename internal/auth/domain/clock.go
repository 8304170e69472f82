package domain

import "time"

// now is the clock used by every entity.
var now = func() time.Time { return time.Now().UTC() }

// Now returns the domain clock's current time.
func Now() time.Time { return now() }

// SetNow replaces the entity clock and returns a restore func. Only tests
// should call it; the swap is not synchronized.
func SetNow(f func() time.Time) func() {
	prev := now
	now = f
	return func() { now = prev }
}
