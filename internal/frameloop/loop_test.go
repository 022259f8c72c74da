// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package frameloop_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/tickrpc/internal/frameloop"
)

// steppedClock advances by step on every read.
type steppedClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *steppedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

func TestLoopTicksInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var frames []frameloop.Frame
	loop := frameloop.New(frameloop.Config{TickRate: 500}, func(_ context.Context, f frameloop.Frame) {
		frames = append(frames, f)
		if len(frames) == 5 {
			cancel()
		}
	}, frameloop.Hooks{})

	if err := loop.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run got %v, want context.Canceled", err)
	}
	if len(frames) != 5 {
		t.Fatalf("ran %d frames, want 5", len(frames))
	}
	for i, f := range frames {
		if f.Tick != uint64(i+1) {
			t.Fatalf("frame %d tick got %d, want %d", i, f.Tick, i+1)
		}
		if f.Delta <= 0 || f.Delta > f.MaxDelta {
			t.Fatalf("frame %d delta %v outside (0, %v]", i, f.Delta, f.MaxDelta)
		}
	}
}

func TestLoopClampsDelta(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Every clock read jumps a full second, far beyond the catch-up window.
	clock := &steppedClock{now: time.Unix(0, 0), step: time.Second}
	var got frameloop.Frame
	loop := frameloop.New(frameloop.Config{TickRate: 100, CatchupMaxTicks: 3}, func(context.Context, frameloop.Frame) {}, frameloop.Hooks{
		AfterStep: func(f frameloop.Frame) {
			got = f
			cancel()
		},
	}).WithClock(clock)

	_ = loop.Run(ctx)
	if !got.ClampedDelta {
		t.Fatal("delta not clamped after a stall")
	}
	if want := 0.03; got.Delta < want-1e-9 || got.Delta > want+1e-9 {
		t.Fatalf("delta got %v, want %v", got.Delta, want)
	}
	if got.Duration != time.Second {
		t.Fatalf("duration got %v, want 1s", got.Duration)
	}
	if loop.Budget() != 10*time.Millisecond {
		t.Fatalf("budget got %v, want 10ms", loop.Budget())
	}
}
