package engine

import (
	"sync"
	"time"
)

// Clock is the time source all growth math reads from. Swapping it lets
// tests pin the clock and lets the session freeze time while paused.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FakeClock is deterministic and test-friendly.
type FakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{t: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// GameClock reads the base clock minus all time spent paused. Growth
// anchors are compared against it, so a paused game does not grow. The
// reading is continuous across Pause/Resume: no jump in either direction.
type GameClock struct {
	mu       sync.Mutex
	base     Clock
	frozen   time.Duration
	paused   bool
	pausedAt time.Time
}

// NewGameClock wraps base; nil means the real clock.
func NewGameClock(base Clock) *GameClock {
	if base == nil {
		base = RealClock{}
	}
	return &GameClock{base: base}
}

func (c *GameClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return c.pausedAt.Add(-c.frozen)
	}
	return c.base.Now().Add(-c.frozen)
}

// Pause freezes the reading at the current moment. Pausing twice is a
// no-op.
func (c *GameClock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return
	}
	c.paused = true
	c.pausedAt = c.base.Now()
}

// Resume unfreezes the clock, folding the paused span into the frozen
// offset.
func (c *GameClock) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return
	}
	c.frozen += c.base.Now().Sub(c.pausedAt)
	c.paused = false
}

func (c *GameClock) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}
