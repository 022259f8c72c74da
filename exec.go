// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tickrpc

import (
	"context"

	"code.hybscloud.com/iox"
)

// Wait ticks c until t reaches a terminal state or ctx is done, and
// returns the last snapshot of its entry.
// Blocks with adaptive backoff (iox.Backoff) between ticks that make no
// progress. Intended for hosts without a frame loop; an engine host calls
// Tick once per frame instead.
func (c *Client) Wait(ctx context.Context, t Ticket) (Entry, error) {
	var bo iox.Backoff
	for {
		progress := c.Tick() > 0
		e, err := c.Poll(t)
		if err != nil {
			return Entry{}, err
		}
		if e.State.Terminal() {
			return e, nil
		}
		select {
		case <-ctx.Done():
			return e, ctx.Err()
		default:
		}
		if progress {
			bo.Reset()
			continue
		}
		bo.Wait()
	}
}
