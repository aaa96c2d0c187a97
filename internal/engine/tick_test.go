package engine

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineFiresBothCallbacks(t *testing.T) {
	var growth, days atomic.Int64
	e := &Engine{
		GrowthInterval: 10 * time.Millisecond,
		DayInterval:    35 * time.Millisecond,
		OnGrowth:       func() { growth.Add(1) },
		OnDay:          func() { days.Add(1) },
	}

	e.Start()
	require.True(t, e.Running())
	time.Sleep(200 * time.Millisecond)
	e.Stop()

	assert.GreaterOrEqual(t, growth.Load(), int64(5))
	assert.GreaterOrEqual(t, days.Load(), int64(2))
	assert.GreaterOrEqual(t, e.Ticks(), uint64(5))
}

func TestEngineStopHaltsCallbacks(t *testing.T) {
	var growth atomic.Int64
	e := &Engine{
		GrowthInterval: 5 * time.Millisecond,
		DayInterval:    time.Hour,
		OnGrowth:       func() { growth.Add(1) },
	}

	e.Start()
	time.Sleep(50 * time.Millisecond)
	e.Stop()
	assert.False(t, e.Running())

	time.Sleep(30 * time.Millisecond)
	settled := growth.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, growth.Load(), "no callbacks after stop")
}

func TestEngineStartIsIdempotent(t *testing.T) {
	var growth atomic.Int64
	e := &Engine{
		GrowthInterval: 5 * time.Millisecond,
		DayInterval:    time.Hour,
		OnGrowth:       func() { growth.Add(1) },
	}

	e.Start()
	e.Start() // second call must not spawn a second loop
	time.Sleep(40 * time.Millisecond)
	e.Stop()
	e.Stop() // and stopping twice must not panic

	assert.False(t, e.Running())
}

func TestEngineRestartsAfterStop(t *testing.T) {
	var growth atomic.Int64
	e := &Engine{
		GrowthInterval: 5 * time.Millisecond,
		DayInterval:    time.Hour,
		OnGrowth:       func() { growth.Add(1) },
	}

	e.Start()
	time.Sleep(40 * time.Millisecond)
	e.Stop()
	first := e.Ticks()
	require.Greater(t, first, uint64(0))

	e.Start()
	time.Sleep(40 * time.Millisecond)
	e.Stop()
	assert.Greater(t, e.Ticks(), first, "tick counter keeps climbing across restarts")
}

func TestEngineRejectsInvalidIntervals(t *testing.T) {
	e := &Engine{GrowthInterval: 0, DayInterval: time.Hour}
	e.Start()
	assert.False(t, e.Running())
}

func TestEngineStopFromInsideCallback(t *testing.T) {
	e := &Engine{
		GrowthInterval: 5 * time.Millisecond,
		DayInterval:    time.Hour,
	}
	done := make(chan struct{})
	e.OnGrowth = func() {
		e.Stop()
		select {
		case <-done:
		default:
			close(done)
		}
	}

	e.Start()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callback never fired")
	}
	time.Sleep(20 * time.Millisecond)
	assert.False(t, e.Running())
}
