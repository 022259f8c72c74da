// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tickrpc_test

import (
	"testing"

	"code.hybscloud.com/tickrpc"
)

func TestTickResolvesOnlyReadyTickets(t *testing.T) {
	tr := &stubTransport{}
	c := newStubClient(t, tr, tickrpc.Options{})

	tickets := make([]tickrpc.Ticket, 10)
	for i := range tickets {
		tickets[i] = c.Submit(tickrpc.Request{Method: "getBalance"})
	}
	for i := 0; i < len(tickets); i += 2 {
		tr.handle(i).resolve(okReply(uint64(tickets[i]), i), nil)
	}
	if n := c.Tick(); n != 5 {
		t.Fatalf("Tick resolved %d, want 5", n)
	}
	if c.InFlight() != 5 {
		t.Fatalf("InFlight got %d, want 5", c.InFlight())
	}
	if n := c.Tick(); n != 0 {
		t.Fatalf("second Tick resolved %d, want 0", n)
	}
	for i, tk := range tickets {
		e, _ := c.Poll(tk)
		want := tickrpc.Sent
		if i%2 == 0 {
			want = tickrpc.Completed
		}
		if e.State != want {
			t.Fatalf("ticket %d state got %v, want %v", i, e.State, want)
		}
	}
	if c.Pending() != 10 {
		t.Fatalf("Pending got %d, want 10 (entries are never collected)", c.Pending())
	}
}

func TestTickWithoutTicketsIsNoop(t *testing.T) {
	c := newStubClient(t, &stubTransport{}, tickrpc.Options{})
	for range 3 {
		if n := c.Tick(); n != 0 {
			t.Fatalf("Tick resolved %d, want 0", n)
		}
	}
}

func TestCancelledTicketLeavesInFlight(t *testing.T) {
	tr := &stubTransport{}
	c := newStubClient(t, tr, tickrpc.Options{})

	keep := c.Submit(tickrpc.Request{Method: "a"})
	drop := c.Submit(tickrpc.Request{Method: "b"})
	if err := c.Cancel(drop); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	c.Tick()
	if c.InFlight() != 1 {
		t.Fatalf("InFlight got %d, want 1", c.InFlight())
	}
	tr.handle(0).resolve(okReply(uint64(keep), "ok"), nil)
	if n := c.Tick(); n != 1 {
		t.Fatalf("Tick resolved %d, want 1", n)
	}
}
