// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tickrpc

import (
	"code.hybscloud.com/kont"
)

// step evaluates a lifecycle protocol until the first effect suspension.
func step(protocol kont.Eff[attemptResult]) (attemptResult, *kont.Suspension[attemptResult]) {
	return kont.StepExpr(kont.Reify(protocol))
}

// advance dispatches the suspended lifecycle operation on ctx.
//
// On success (nil error), the suspension is consumed and the protocol
// advances to the next effect or completion.
// On iox.ErrWouldBlock, the suspension is unconsumed and is retried on a
// later tick.
func advance(ctx *attemptContext, susp *kont.Suspension[attemptResult]) (attemptResult, *kont.Suspension[attemptResult], error) {
	op, ok := susp.Op().(ticketDispatcher)
	if !ok {
		panic("tickrpc: unhandled effect in advance")
	}
	v, err := op.DispatchTicket(ctx)
	if err != nil {
		var zero attemptResult
		return zero, susp, err
	}
	result, next := susp.Resume(v)
	return result, next, nil
}

// drive advances the protocol until an operation would block or the
// protocol completes (nil suspension).
func drive(ctx *attemptContext, susp *kont.Suspension[attemptResult]) (attemptResult, *kont.Suspension[attemptResult], error) {
	var result attemptResult
	for susp != nil {
		var err error
		result, susp, err = advance(ctx, susp)
		if err != nil {
			return result, susp, err
		}
	}
	return result, nil, nil
}
