package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFakeClockSetAndAdvance(t *testing.T) {
	c := NewFakeClock(t0)
	assert.Equal(t, t0, c.Now())

	c.Advance(90 * time.Second)
	assert.Equal(t, t0.Add(90*time.Second), c.Now())

	c.Set(t0.Add(time.Hour))
	assert.Equal(t, t0.Add(time.Hour), c.Now())
}

func TestGameClockExcludesPausedTime(t *testing.T) {
	base := NewFakeClock(t0)
	gc := NewGameClock(base)

	base.Advance(time.Minute)
	assert.Equal(t, t0.Add(time.Minute), gc.Now())

	gc.Pause()
	frozen := gc.Now()
	base.Advance(10 * time.Minute)
	assert.Equal(t, frozen, gc.Now(), "reading must not move while paused")

	gc.Resume()
	assert.Equal(t, frozen, gc.Now(), "reading must be continuous across resume")

	base.Advance(30 * time.Second)
	assert.Equal(t, frozen.Add(30*time.Second), gc.Now())
}

func TestGameClockPauseResumeIdempotent(t *testing.T) {
	base := NewFakeClock(t0)
	gc := NewGameClock(base)

	gc.Resume() // not paused, no-op
	gc.Pause()
	gc.Pause() // already paused, no-op
	assert.True(t, gc.Paused())

	base.Advance(time.Hour)
	gc.Resume()
	gc.Resume()
	assert.False(t, gc.Paused())
	assert.Equal(t, t0, gc.Now(), "the whole hour was spent paused")
}

func TestGameClockAccumulatesMultiplePauses(t *testing.T) {
	base := NewFakeClock(t0)
	gc := NewGameClock(base)

	gc.Pause()
	base.Advance(time.Minute)
	gc.Resume()

	base.Advance(time.Minute)

	gc.Pause()
	base.Advance(2 * time.Minute)
	gc.Resume()

	// Four base minutes elapsed, three of them paused.
	assert.Equal(t, t0.Add(time.Minute), gc.Now())
}

func TestNewGameClockDefaultsToRealClock(t *testing.T) {
	gc := NewGameClock(nil)
	now := gc.Now()
	assert.WithinDuration(t, time.Now(), now, time.Second)
}
