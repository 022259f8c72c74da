// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tickrpc

import (
	"time"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
	"go.uber.org/zap"
)

// attemptContext is the per-ticket state the lifecycle operations act on.
// It is only touched from the tick goroutine.
type attemptContext struct {
	ticket    Ticket
	payload   []byte
	transport Transport
	codec     Codec
	clock     Clock
	logger    *zap.Logger

	handle   Handle
	attempts int
	deadline time.Time
	lastErr  error
}

// ticketDispatcher is the structural interface for lifecycle operations.
// DispatchTicket is non-blocking: it returns iox.ErrWouldBlock when the
// operation cannot make progress during the current tick.
type ticketDispatcher interface {
	DispatchTicket(ctx *attemptContext) (kont.Resumed, error)
}

// attemptResult is the outcome of one attempt: a decoded response, or the
// transport or protocol error that ended it.
type attemptResult struct {
	resp Response
	err  error
}

// dispatchOp is the effect operation for sending the next attempt.
// Perform(dispatchOp{}) hands the encoded payload to the transport.
type dispatchOp struct {
	kont.Phantom[struct{}]
}

// DispatchTicket handles dispatchOp. Transport.Send never blocks, so
// dispatch always makes progress.
func (dispatchOp) DispatchTicket(ctx *attemptContext) (kont.Resumed, error) {
	ctx.attempts++
	ctx.handle = ctx.transport.Send(uint64(ctx.ticket), ctx.payload)
	ctx.logger.Debug("attempt sent",
		zap.Stringer("ticket", ctx.ticket), zap.Int("attempt", ctx.attempts))
	return struct{}{}, nil
}

// awaitOp is the effect operation for receiving the current attempt's outcome.
// Perform(awaitOp{}) yields an attemptResult.
type awaitOp struct {
	kont.Phantom[attemptResult]
}

// DispatchTicket handles awaitOp on the attempt's handle.
// Non-blocking: returns iox.ErrWouldBlock while the handle is pending.
func (awaitOp) DispatchTicket(ctx *attemptContext) (kont.Resumed, error) {
	body, err := ctx.handle.Poll()
	if iox.IsWouldBlock(err) {
		return nil, err
	}
	ctx.handle = nil
	if err != nil {
		ctx.lastErr = err
		return attemptResult{err: err}, nil
	}
	resp, err := ctx.codec.DecodeResponse(body)
	if err == nil && resp.ID != uint64(ctx.ticket) {
		err = malformed("response id mismatch", nil)
	}
	if err != nil {
		ctx.lastErr = err
		return attemptResult{err: err}, nil
	}
	return attemptResult{resp: resp}, nil
}

// backoffOp is the effect operation for waiting between attempts.
// The wait is a deadline checked on every dispatch, never a sleep.
type backoffOp struct {
	kont.Phantom[struct{}]
	Delay time.Duration
}

// DispatchTicket handles backoffOp against the ticket's clock.
// Non-blocking: returns iox.ErrWouldBlock until the deadline has passed.
func (b backoffOp) DispatchTicket(ctx *attemptContext) (kont.Resumed, error) {
	now := ctx.clock.Now()
	if ctx.deadline.IsZero() {
		ctx.deadline = now.Add(b.Delay)
	}
	if now.Before(ctx.deadline) {
		return nil, iox.ErrWouldBlock
	}
	ctx.deadline = time.Time{}
	return struct{}{}, nil
}
