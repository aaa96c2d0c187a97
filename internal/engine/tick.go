// Package engine schedules the simulation: one goroutine drives the
// growth sweep and the day rollover on two independent tickers, and the
// pausable GameClock decides what "now" means for growth math.
package engine

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Engine fires the two recurring callbacks while running. Configure the
// intervals and callbacks before the first Start; they are not read again
// until the next Start.
type Engine struct {
	GrowthInterval time.Duration
	DayInterval    time.Duration

	// OnGrowth sweeps growing entities; OnDay advances the ledger day.
	OnGrowth func()
	OnDay    func()

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	ticks   atomic.Uint64
}

// Start launches the tick loop. Starting a running engine is a no-op, so
// a restart after Stop never double-schedules.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		slog.Warn("engine already running")
		return
	}
	if e.GrowthInterval <= 0 || e.DayInterval <= 0 {
		slog.Error("engine not started, intervals must be positive",
			"growth", e.GrowthInterval, "day", e.DayInterval)
		return
	}
	e.running = true
	e.stopCh = make(chan struct{})
	go e.loop(e.stopCh)
	slog.Info("engine started", "growth_interval", e.GrowthInterval, "day_interval", e.DayInterval)
}

// Stop halts both cadences. Idempotent; safe to call from inside a
// callback. A callback already in flight finishes before the loop exits.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	e.running = false
	close(e.stopCh)
	slog.Info("engine stopped", "ticks", e.ticks.Load())
}

// Running reports whether the tick loop is live.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Ticks is the number of growth ticks fired since process start. It never
// resets, surviving Stop/Start cycles.
func (e *Engine) Ticks() uint64 {
	return e.ticks.Load()
}

// loop runs both tickers in one select, so callbacks never overlap and a
// sweep that outlasts its interval coalesces missed ticks instead of
// stacking them.
func (e *Engine) loop(stop <-chan struct{}) {
	growth := time.NewTicker(e.GrowthInterval)
	defer growth.Stop()
	day := time.NewTicker(e.DayInterval)
	defer day.Stop()

	for {
		select {
		case <-stop:
			return
		case <-growth.C:
			e.ticks.Add(1)
			if e.OnGrowth != nil {
				e.OnGrowth()
			}
		case <-day.C:
			if e.OnDay != nil {
				e.OnDay()
			}
		}
	}
}
