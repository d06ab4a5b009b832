// Package engine provides the step-driven simulation loop.
package engine

import (
	"log/slog"
	"sync"
	"time"
)

// Ticker drives the simulation forward at a wall-clock pace. The
// inter-step delay is purely cosmetic pacing for observers; the step
// itself is synchronous and owns no timing. Interval, StepFn and the
// checkpoint fields are set before Run; speed and the running flag may
// change from other goroutines and go through the accessors.
type Ticker struct {
	Interval time.Duration // Base step interval

	// StepFn runs one full simulation step. Callers that share the
	// simulation with other goroutines (the HTTP API) wrap it in their
	// mutual-exclusion boundary here.
	StepFn func() StepRecord

	// CheckpointEvery triggers OnCheckpoint after that many steps.
	// Zero disables checkpointing.
	CheckpointEvery int
	OnCheckpoint    func(step int)

	mu      sync.Mutex
	speed   float64 // multiplier: 1.0 = real-time, 0 = paused
	running bool

	steps int
}

// NewTicker creates a ticker with default pacing.
func NewTicker() *Ticker {
	return &Ticker{
		Interval: time.Second,
		speed:    1.0,
	}
}

// SetSpeed changes the pacing multiplier. Zero pauses the loop.
func (t *Ticker) SetSpeed(speed float64) {
	t.mu.Lock()
	t.speed = speed
	t.mu.Unlock()
}

// Speed reports the current pacing multiplier.
func (t *Ticker) Speed() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.speed
}

// Running reports whether the loop is active.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Run starts the loop. Blocks until Stop is called.
func (t *Ticker) Run() {
	t.mu.Lock()
	t.running = true
	t.mu.Unlock()
	slog.Info("simulation loop started", "interval", t.Interval, "speed", t.Speed())

	for t.Running() {
		speed := t.Speed()
		if speed <= 0 {
			// Paused — sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()

		rec := t.StepFn()
		t.steps++

		if t.CheckpointEvery > 0 && t.steps%t.CheckpointEvery == 0 && t.OnCheckpoint != nil {
			t.OnCheckpoint(rec.Step)
		}

		// Sleep for the remainder of the step interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(t.Interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("simulation loop stopped", "steps", t.steps)
}

// Stop halts the loop after the in-flight step completes.
func (t *Ticker) Stop() {
	t.mu.Lock()
	t.running = false
	t.mu.Unlock()
}
