// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tickrpc_test

import (
	"testing"

	"code.hybscloud.com/tickrpc"
)

// BenchmarkSubmitTickTake measures one ticket's full lifecycle against an
// immediately answering transport.
func BenchmarkSubmitTickTake(b *testing.B) {
	tr := &stubTransport{respond: func(_ int, id uint64, _ []byte) ([]byte, error) {
		return okReply(id, 1), nil
	}}
	c := newStubClient(b, tr, tickrpc.Options{})
	b.ReportAllocs()
	for b.Loop() {
		tk := c.Submit(tickrpc.Request{Method: "getBalance"})
		c.Tick()
		if err := c.TakeResult(tk, nil); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkTickPending measures a tick over 1024 tickets that are all
// still in flight.
func BenchmarkTickPending(b *testing.B) {
	c := newStubClient(b, &stubTransport{}, tickrpc.Options{})
	for range 1024 {
		c.Submit(tickrpc.Request{Method: "getBalance"})
	}
	b.ReportAllocs()
	for b.Loop() {
		c.Tick()
	}
}
