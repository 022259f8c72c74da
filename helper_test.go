// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tickrpc_test

import (
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/tickrpc"
)

// stubHandle is a Handle whose outcome the test decides.
type stubHandle struct {
	mu        sync.Mutex
	ready     bool
	body      []byte
	err       error
	abandoned bool
}

func (h *stubHandle) Poll() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.abandoned {
		return nil, tickrpc.ErrTransportCancel
	}
	if !h.ready {
		return nil, iox.ErrWouldBlock
	}
	return h.body, h.err
}

func (h *stubHandle) Abandon() {
	h.mu.Lock()
	h.abandoned = true
	h.mu.Unlock()
}

func (h *stubHandle) resolve(body []byte, err error) {
	h.mu.Lock()
	h.ready, h.body, h.err = true, body, err
	h.mu.Unlock()
}

func (h *stubHandle) isAbandoned() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.abandoned
}

// responder produces the outcome of the n-th attempt (1-based, counted per
// transport). A nil body and nil error leave the handle pending.
type responder func(n int, id uint64, payload []byte) ([]byte, error)

// stubTransport records every attempt and answers through a responder.
type stubTransport struct {
	mu       sync.Mutex
	respond  responder
	handles  []*stubHandle
	ids      []uint64
	payloads [][]byte
}

func (s *stubTransport) Send(id uint64, payload []byte) tickrpc.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := &stubHandle{}
	s.handles = append(s.handles, h)
	s.ids = append(s.ids, id)
	s.payloads = append(s.payloads, payload)
	if s.respond != nil {
		body, err := s.respond(len(s.handles), id, payload)
		if body != nil || err != nil {
			h.resolve(body, err)
		}
	}
	return h
}

func (s *stubTransport) handle(i int) *stubHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handles[i]
}

func (s *stubTransport) sent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// newStubClient builds a JSON client over tr with retries driven by a
// zero-delay schedule unless opts overrides them.
func newStubClient(tb testing.TB, tr tickrpc.Transport, opts tickrpc.Options) *tickrpc.Client {
	tb.Helper()
	opts.Transport = tr
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = tickrpc.RetryPolicy{MaxAttempts: 3, Schedule: []time.Duration{0}}
	}
	c, err := tickrpc.New(opts)
	if err != nil {
		tb.Fatalf("New: %v", err)
	}
	return c
}

// okReply encodes a successful response with the JSON codec.
func okReply(id uint64, result any) []byte {
	b, err := tickrpc.JSON().EncodeResponse(id, result, nil)
	if err != nil {
		panic(err)
	}
	return b
}

// errReply encodes an error response with the JSON codec.
func errReply(id uint64, code int, msg string) []byte {
	b, err := tickrpc.JSON().EncodeResponse(id, nil, &tickrpc.RPCError{Code: code, Message: msg})
	if err != nil {
		panic(err)
	}
	return b
}

func timeoutErr() error {
	return &tickrpc.TransportError{Kind: tickrpc.Timeout}
}

// tickUntil ticks c until t is terminal or n ticks have passed.
func tickUntil(c *tickrpc.Client, t tickrpc.Ticket, n int) tickrpc.Entry {
	var e tickrpc.Entry
	for range n {
		c.Tick()
		e, _ = c.Poll(t)
		if e.State.Terminal() {
			break
		}
	}
	return e
}
