package clock

import (
	"sync"
	"time"
)

// Clock provides an abstraction over time retrieval for deterministic testing.
type Clock interface {
	Now() time.Time
}

// RealClock returns the real current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FixedClock always returns a fixed time. Useful for tests.
type FixedClock struct{ t time.Time }

func NewFixed(t time.Time) FixedClock { return FixedClock{t: t} }

func (f FixedClock) Now() time.Time { return f.t }

// ManualClock returns a time that only moves when told to.
// Tests use it to step across calendar-day boundaries.
type ManualClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewManual(t time.Time) *ManualClock { return &ManualClock{t: t} }

func (m *ManualClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.t
}

// Advance moves the clock forward by d.
func (m *ManualClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t = m.t.Add(d)
}

// Set moves the clock to t.
func (m *ManualClock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.t = t
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}

// Millis truncates t to millisecond precision and drops the monotonic reading,
// keeping t's location.
func Millis(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli()).In(t.Location())
}
