// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package frameloop drives a fixed-timestep host loop, the native
// counterpart of a game engine's update schedule.
package frameloop

import (
	"context"
	"time"

	"code.hybscloud.com/tickrpc"
)

// Config tunes the loop cadence.
type Config struct {
	// TickRate is the number of frames per second. Zero means 60.
	TickRate int
	// CatchupMaxTicks caps the reported delta after a stall, in frames.
	CatchupMaxTicks int
}

// Frame describes one step of the loop.
type Frame struct {
	Tick  uint64
	Now   time.Time
	Delta float64 // seconds since the previous frame, clamped

	ClampedDelta bool
	MaxDelta     float64
	// Duration is the time the step took; Budget is the frame interval.
	Duration time.Duration
	Budget   time.Duration
}

// Hooks observe the loop.
type Hooks struct {
	AfterStep func(Frame)
}

// Loop calls its step function once per frame.
type Loop struct {
	cfg   Config
	step  func(ctx context.Context, f Frame)
	hooks Hooks
	clock tickrpc.Clock
}

// New returns a loop calling step once per frame.
func New(cfg Config, step func(ctx context.Context, f Frame), hooks Hooks) *Loop {
	if cfg.TickRate <= 0 {
		cfg.TickRate = 60
	}
	return &Loop{cfg: cfg, step: step, hooks: hooks, clock: tickrpc.SystemClock{}}
}

// WithClock replaces the clock frames are timed with.
func (l *Loop) WithClock(c tickrpc.Clock) *Loop {
	l.clock = c
	return l
}

// Budget returns the frame interval.
func (l *Loop) Budget() time.Duration {
	return time.Second / time.Duration(l.cfg.TickRate)
}

// Run drives the loop until ctx is done and returns ctx's error.
func (l *Loop) Run(ctx context.Context) error {
	budget := l.Budget()
	ticker := time.NewTicker(budget)
	defer ticker.Stop()

	budgetSeconds := budget.Seconds()
	maxDt := budgetSeconds
	if l.cfg.CatchupMaxTicks > 1 {
		maxDt = budgetSeconds * float64(l.cfg.CatchupMaxTicks)
	}
	last := l.clock.Now()
	var tick uint64

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := l.clock.Now()
			dt := now.Sub(last).Seconds()
			clamped := false
			if dt <= 0 {
				dt = budgetSeconds
			} else if dt > maxDt {
				dt = maxDt
				clamped = true
			}
			last = now
			tick++

			f := Frame{Tick: tick, Now: now, Delta: dt, ClampedDelta: clamped, MaxDelta: maxDt, Budget: budget}
			start := l.clock.Now()
			l.step(ctx, f)
			f.Duration = l.clock.Now().Sub(start)

			if l.hooks.AfterStep != nil {
				l.hooks.AfterStep(f)
			}
		}
	}
}
