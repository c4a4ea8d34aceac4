package clock

import (
	"sync"
	"time"
)

// Clock hands out timestamps that never go backwards
type Clock interface {
	Now() time.Time
}

// System is the wall clock clamped to the last value it returned
type System struct {
	mu   sync.Mutex
	last time.Time
}

func NewSystem() *System {
	return &System{}
}

func (c *System) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	if now.Before(c.last) {
		return c.last
	}
	c.last = now
	return now
}

// Manual is a clock for tests; it only moves when told to
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (c *Manual) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward; negative durations are ignored
func (c *Manual) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
