// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tickrpc

import (
	"time"

	"code.hybscloud.com/kont"
)

// attemptBind sends one attempt, waits for its outcome and passes it to f.
// Fuses Perform(dispatchOp{}) + Then + Perform(awaitOp{}) + Bind.
func attemptBind[B any](f func(attemptResult) kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(dispatchOp{}), kont.Bind(kont.Perform(awaitOp{}), f))
}

// backoffThen waits for d and then continues with next.
// Fuses Perform(backoffOp{Delay: d}) + Then.
func backoffThen[B any](d time.Duration, next kont.Eff[B]) kont.Eff[B] {
	return kont.Then(kont.Perform(backoffOp{Delay: d}), next)
}

// attemptProtocol is the lifecycle of one ticket: attempts are repeated
// while they fail with a retry-eligible error and the policy allows
// another attempt. onRetry observes every scheduled retry.
func attemptProtocol(policy RetryPolicy, onRetry func(attempt int, err error, delay time.Duration)) kont.Eff[attemptResult] {
	limit := policy.maxAttempts()
	return Loop(1, func(attempt int) kont.Eff[kont.Either[int, attemptResult]] {
		return attemptBind(func(r attemptResult) kont.Eff[kont.Either[int, attemptResult]] {
			if r.err == nil || attempt >= limit || !policy.Retryable(r.err) {
				return kont.Pure(kont.Right[int](r))
			}
			delay := policy.Delay(attempt)
			if onRetry != nil {
				onRetry(attempt, r.err, delay)
			}
			return backoffThen(delay, kont.Pure(kont.Left[int, attemptResult](attempt+1)))
		})
	})
}
