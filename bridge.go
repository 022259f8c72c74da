// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tickrpc

import (
	"go.uber.org/zap"
)

// bridge moves completions produced off the tick goroutine into the
// pending registry. It runs once per host tick and never blocks.
type bridge struct {
	reg    *registry
	clock  Clock
	logger *zap.Logger
}

// tick advances every in-flight ticket as far as it can go without
// blocking and returns the number of tickets that reached a terminal state.
func (b *bridge) tick() int {
	b.reg.mu.Lock()
	defer b.reg.mu.Unlock()

	resolved := 0
	live := b.reg.inflight[:0]
	for _, e := range b.reg.inflight {
		if e.state != Sent {
			continue
		}
		result, susp, err := drive(&e.ctx, e.susp)
		if err != nil {
			e.susp = susp
			live = append(live, e)
			continue
		}
		b.reg.resolveLocked(e, result, b.clock.Now())
		resolved++
		b.logResolved(e)
	}
	clear(b.reg.inflight[len(live):])
	b.reg.inflight = live
	return resolved
}

func (b *bridge) logResolved(e *entry) {
	if e.state == Completed {
		b.logger.Debug("ticket completed",
			zap.Stringer("ticket", e.ctx.ticket),
			zap.String("method", e.method),
			zap.Int("attempts", e.ctx.attempts),
			zap.Int("bytes", len(e.result)))
		return
	}
	b.logger.Warn("ticket failed",
		zap.Stringer("ticket", e.ctx.ticket),
		zap.String("method", e.method),
		zap.Int("attempts", e.ctx.attempts),
		zap.Error(e.err))
}
