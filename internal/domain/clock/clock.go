package clock

import (
	"sync"
	"time"
)

// Clock supplies "now". Everything that compares against today takes a Clock so that
// date-boundary behaviour is deterministic under test.
type Clock interface {
	Now() time.Time
	// Today returns the current calendar date in the clock's location as a date-only value.
	Today() time.Time
}

// DateOnly truncates t to its calendar date, represented as midnight UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// System is the wall clock, evaluated in Location.
type System struct {
	Location *time.Location
}

func NewSystem(loc *time.Location) *System {
	if loc == nil {
		loc = time.UTC
	}
	return &System{Location: loc}
}

func (c *System) Now() time.Time {
	return time.Now().In(c.Location)
}

func (c *System) Today() time.Time {
	return DateOnly(c.Now())
}

// Fixed is a settable clock for tests and CLI previews.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now}
}

func (c *Fixed) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Fixed) Today() time.Time {
	return DateOnly(c.Now())
}

func (c *Fixed) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Advance moves the clock forward by d.
func (c *Fixed) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
