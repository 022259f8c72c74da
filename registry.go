// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tickrpc

import (
	"bytes"
	"sync"
	"time"

	"code.hybscloud.com/kont"
)

// State is the lifecycle state of a ticket.
// States only move forward: Queued → Sent → one of the terminal states.
type State uint8

const (
	Queued State = iota
	Sent
	Completed
	Failed
	Cancelled
)

// Terminal reports whether s is Completed, Failed or Cancelled.
func (s State) Terminal() bool {
	return s >= Completed
}

func (s State) String() string {
	switch s {
	case Queued:
		return "queued"
	case Sent:
		return "sent"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Entry is a snapshot of a ticket's pending state.
// Once the state is Completed, Result holds the raw result payload and
// LastError is nil; once Failed, LastError holds the final error.
// While Sent, LastError carries the failure of the previous attempt, if any.
type Entry struct {
	Ticket      Ticket
	Method      string
	State       State
	Attempts    int
	Result      []byte
	LastError   error
	SubmittedAt time.Time
	ResolvedAt  time.Time
}

type entry struct {
	state       State
	method      string
	ctx         attemptContext
	susp        *kont.Suspension[attemptResult]
	result      []byte
	err         error
	submittedAt time.Time
	resolvedAt  time.Time
}

func (e *entry) snapshot() Entry {
	s := Entry{
		Ticket:      e.ctx.ticket,
		Method:      e.method,
		State:       e.state,
		Attempts:    e.ctx.attempts,
		SubmittedAt: e.submittedAt,
		ResolvedAt:  e.resolvedAt,
	}
	switch e.state {
	case Completed:
		s.Result = bytes.Clone(e.result)
	case Failed:
		s.LastError = e.err
	case Sent:
		s.LastError = e.ctx.lastErr
	}
	return s
}

// registry is the pending registry: every ticket the client handed out
// and has not retired yet, plus the in-flight subset the bridge drives.
type registry struct {
	mu       sync.RWMutex
	entries  map[Ticket]*entry
	inflight []*entry
	closed   bool
}

func (r *registry) init() {
	r.entries = make(map[Ticket]*entry)
}

// admit publishes a new entry and runs its first dispatch, both under mu.
// It reports false when the registry is closed.
func (r *registry) admit(e *entry, dispatch func(e *entry)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.insertLocked(e)
	dispatch(e)
	r.markSentLocked(e)
	return true
}

// insertLocked records e as Queued. Caller holds mu.
func (r *registry) insertLocked(e *entry) {
	e.state = Queued
	r.entries[e.ctx.ticket] = e
}

// markSentLocked moves a queued entry to Sent and makes it visible to the
// bridge. Caller holds mu.
func (r *registry) markSentLocked(e *entry) {
	if e.state != Queued {
		return
	}
	e.state = Sent
	r.inflight = append(r.inflight, e)
}

// resolveLocked records the outcome of a finished protocol. Caller holds mu.
func (r *registry) resolveLocked(e *entry, result attemptResult, now time.Time) {
	if e.state.Terminal() {
		return
	}
	e.susp = nil
	e.resolvedAt = now
	if result.err != nil {
		e.state = Failed
		e.err = result.err
		return
	}
	e.state = Completed
	e.result = result.resp.Result
	e.ctx.lastErr = nil
}

func (r *registry) get(t Ticket) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[t]
	if !ok {
		return Entry{}, false
	}
	return e.snapshot(), true
}

// cancelLocked moves a non-terminal entry to Cancelled. Caller holds mu.
func (r *registry) cancelLocked(e *entry, now time.Time) {
	if e.state.Terminal() {
		return
	}
	if e.ctx.handle != nil {
		e.ctx.handle.Abandon()
		e.ctx.handle = nil
	}
	if e.susp != nil {
		e.susp.Discard()
		e.susp = nil
	}
	e.state = Cancelled
	e.resolvedAt = now
}

func (r *registry) cancel(t Ticket, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[t]
	if !ok {
		return ErrNotFound
	}
	r.cancelLocked(e, now)
	return nil
}

// close cancels every non-terminal entry and rejects further inserts.
func (r *registry) close(now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, ErrClosed
	}
	r.closed = true
	n := 0
	for _, e := range r.entries {
		if !e.state.Terminal() {
			r.cancelLocked(e, now)
			n++
		}
	}
	return n, nil
}

// take removes and returns a terminal entry.
func (r *registry) take(t Ticket) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[t]
	if !ok {
		return nil, ErrNotFound
	}
	if !e.state.Terminal() {
		return nil, ErrNotReady
	}
	delete(r.entries, t)
	return e, nil
}

func (r *registry) retire(t Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[t]
	if !ok || !e.state.Terminal() {
		return ErrNotFound
	}
	delete(r.entries, t)
	return nil
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *registry) inFlight() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.inflight {
		if e.state == Sent {
			n++
		}
	}
	return n
}
