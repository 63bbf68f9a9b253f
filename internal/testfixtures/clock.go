package testfixtures

import (
	"sync"
	"time"
)

// Clock is a settable time source injected into services as their now func,
// keeping created/updated audit stamps deterministic across a test.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock starts a clock at the given instant; the zero value starts it at
// ReferenceTime so fixtures and services agree on "now" by default.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

// Now reports the instant the clock currently holds.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowMilli reports the held instant as Unix milliseconds, the unit every
// scheduling field uses.
func (c *Clock) NowMilli() int64 {
	return c.Now().UnixMilli()
}

// NowFunc adapts the clock to the func() time.Time shape services take. A nil
// clock degrades to the real time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set jumps the clock to the given instant.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d and reports the resulting instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	c.current = c.current.Add(d)
	updated := c.current
	c.mu.Unlock()
	return updated
}

// Current is a read-only alias of Now for assertions that want to make clear
// no time passes.
func (c *Clock) Current() time.Time {
	return c.Now()
}
