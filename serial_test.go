// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tickrpc_test

import (
	"testing"

	"code.hybscloud.com/tickrpc"
)

func TestTicketMonotonic(t *testing.T) {
	c1 := newStubClient(t, &stubTransport{}, tickrpc.Options{})
	c2 := newStubClient(t, &stubTransport{}, tickrpc.Options{})

	t1 := c1.Submit(tickrpc.Request{Method: "a"})
	t2 := c2.Submit(tickrpc.Request{Method: "a"})
	t3 := c1.Submit(tickrpc.Request{Method: "a"})

	if t1 == 0 {
		t.Fatal("ticket zero issued")
	}
	if t1 >= t2 {
		t.Fatalf("tickets not increasing: %d >= %d", t1, t2)
	}
	if t2 >= t3 {
		t.Fatalf("tickets not increasing: %d >= %d", t2, t3)
	}
}

func TestTicketNotReusedAfterRetire(t *testing.T) {
	tr := &stubTransport{respond: func(_ int, id uint64, _ []byte) ([]byte, error) {
		return okReply(id, 0), nil
	}}
	c := newStubClient(t, tr, tickrpc.Options{})

	seen := make(map[tickrpc.Ticket]bool)
	for range 100 {
		tk := c.Submit(tickrpc.Request{Method: "a"})
		if seen[tk] {
			t.Fatalf("ticket %v reused", tk)
		}
		seen[tk] = true
		c.Tick()
		if err := c.Retire(tk); err != nil {
			t.Fatalf("Retire %v: %v", tk, err)
		}
	}
}

func TestTicketString(t *testing.T) {
	if got := tickrpc.Ticket(42).String(); got != "#42" {
		t.Fatalf("got %q, want %q", got, "#42")
	}
}
