// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tickrpc

import (
	"context"
	"errors"
)

// Call submits req, waits for its outcome and decodes the result into out.
// The ticket is consumed before Call returns. If ctx ends first the ticket
// is cancelled and ctx's error is returned.
func (c *Client) Call(ctx context.Context, req Request, out any) error {
	t := c.Submit(req)
	if _, err := c.Wait(ctx, t); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			_ = c.Cancel(t)
			_ = c.Retire(t)
		}
		return err
	}
	return c.TakeResult(t, out)
}

// Do is Call with the result decoded as T.
func Do[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var v T
	err := c.Call(ctx, req, &v)
	return v, err
}
