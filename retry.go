// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tickrpc

import (
	"errors"
	"math"
	"math/rand/v2"
	"slices"
	"time"
)

// BackoffKind selects how retry delays grow.
type BackoffKind uint8

const (
	BackoffFixed BackoffKind = iota
	BackoffExponential
)

// RetryPolicy decides whether a failed attempt is retried and how long the
// ticket waits before the next attempt.
type RetryPolicy struct {
	// MaxAttempts bounds the total number of attempts, the first included.
	// Values below 1 mean a single attempt.
	MaxAttempts int
	Kind        BackoffKind
	// Base is the fixed delay, or the first delay of an exponential schedule.
	Base time.Duration
	// Max caps exponential delays. Zero means uncapped.
	Max time.Duration
	// Schedule, when non-empty, overrides Kind/Base/Max: the delay after the
	// n-th failed attempt is Schedule[n-1], repeating the last element.
	Schedule  []time.Duration
	JitterPct int
	// RetryCodes lists RPC error codes treated as transient.
	RetryCodes []int
}

// DefaultRetryPolicy retries network failures three times with exponential
// backoff starting at 250ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Kind:        BackoffExponential,
		Base:        250 * time.Millisecond,
		Max:         5 * time.Second,
	}
}

func (p RetryPolicy) maxAttempts() int {
	return max(p.MaxAttempts, 1)
}

// Retryable reports whether err is retry-eligible under p.
// Transport errors are retry-eligible except TransportCancelled. Malformed payloads
// are terminal; server errors are terminal unless their code is listed in
// RetryCodes.
func (p RetryPolicy) Retryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Kind != TransportCancelled
	}
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe.Kind == ServerError && slices.Contains(p.RetryCodes, pe.Code)
	}
	return false
}

// Delay returns the wait after the given number of failed attempts (>= 1).
func (p RetryPolicy) Delay(failed int) time.Duration {
	if failed < 1 {
		failed = 1
	}
	var d time.Duration
	switch {
	case len(p.Schedule) > 0:
		d = p.Schedule[min(failed, len(p.Schedule))-1]
	case p.Kind == BackoffExponential:
		d = p.Base
		for i := 1; i < failed && (p.Max <= 0 || d < p.Max) && d <= math.MaxInt64/2; i++ {
			d *= 2
		}
		if p.Max > 0 && d > p.Max {
			d = p.Max
		}
	default:
		d = p.Base
	}
	return withJitter(d, p.JitterPct)
}

// withJitter adds a random 0..pct% of d.
func withJitter(d time.Duration, pct int) time.Duration {
	if pct <= 0 || d <= 0 {
		return d
	}
	span := int64(d) * int64(min(pct, 100)) / 100
	if span <= 0 {
		return d
	}
	j := rand.Int64N(span + 1)
	if int64(d) > math.MaxInt64-j {
		return math.MaxInt64
	}
	return d + time.Duration(j)
}
