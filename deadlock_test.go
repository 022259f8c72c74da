// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tickrpc_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"code.hybscloud.com/tickrpc"
)

func TestWaitHonoursContext(t *testing.T) {
	c := newStubClient(t, &stubTransport{}, tickrpc.Options{})
	tk := c.Submit(tickrpc.Request{Method: "never"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	e, err := c.Wait(ctx, tk)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait got %v, want DeadlineExceeded", err)
	}
	if e.State != tickrpc.Sent {
		t.Fatalf("state got %v, want %v", e.State, tickrpc.Sent)
	}
}

func TestWaitUnknownTicket(t *testing.T) {
	c := newStubClient(t, &stubTransport{}, tickrpc.Options{})
	if _, err := c.Wait(context.Background(), tickrpc.Ticket(1<<62)); !errors.Is(err, tickrpc.ErrNotFound) {
		t.Fatalf("Wait got %v, want ErrNotFound", err)
	}
}

func TestWaitObservesLateCompletion(t *testing.T) {
	tr := &stubTransport{}
	c := newStubClient(t, tr, tickrpc.Options{})
	tk := c.Submit(tickrpc.Request{Method: "slow"})

	go func() {
		time.Sleep(20 * time.Millisecond)
		tr.handle(0).resolve(okReply(uint64(tk), "late"), nil)
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e, err := c.Wait(ctx, tk)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if e.State != tickrpc.Completed {
		t.Fatalf("state got %v, want %v", e.State, tickrpc.Completed)
	}
}

func TestCallCancelsOnContext(t *testing.T) {
	tr := &stubTransport{}
	c := newStubClient(t, tr, tickrpc.Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.Call(ctx, tickrpc.Request{Method: "never"}, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Call got %v, want DeadlineExceeded", err)
	}
	if !tr.handle(0).isAbandoned() {
		t.Fatal("handle not abandoned after Call gave up")
	}
	if c.Pending() != 0 {
		t.Fatalf("Pending got %d, want 0", c.Pending())
	}
}
