// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tickrpc

import (
	"errors"
	"net/http"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
	"go.uber.org/zap"
)

// Transport sends one encoded request per call for the active runtime.
// Send never blocks the calling goroutine: the network operation proceeds in
// the background and its outcome is observed through the returned Handle.
type Transport interface {
	Send(id uint64, payload []byte) Handle
}

// Handle is the in-flight network operation of a single attempt.
// It is owned by one consumer and never shared.
type Handle interface {
	// Poll is non-blocking. It returns iox.ErrWouldBlock while the attempt
	// is in flight, the raw response body once it succeeded, or a
	// *TransportError once it failed.
	Poll() ([]byte, error)
	// Abandon stops interest in the outcome. The underlying operation is
	// aborted on a best-effort basis; a completion that still arrives is
	// discarded.
	Abandon()
}

// TransportOptions configures the runtime transport built by NewTransport.
type TransportOptions struct {
	// Kind selects the transport: "http" (default) or "ws" on native,
	// "fetch"/"http" on js/wasm.
	Kind     string
	Endpoint string
	// Codec supplies the content type, and response ids for transports
	// that multiplex one connection.
	Codec Codec
	// Timeout bounds each attempt. Zero means DefaultTimeout.
	Timeout time.Duration
	// HTTPClient overrides the client used by HTTPTransport.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// DefaultTimeout bounds an attempt when no timeout is configured.
const DefaultTimeout = 10 * time.Second

func (o TransportOptions) timeout() time.Duration {
	if o.Timeout <= 0 {
		return DefaultTimeout
	}
	return o.Timeout
}

func (o TransportOptions) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o TransportOptions) contentType() string {
	if o.Codec == nil {
		return "application/json"
	}
	return o.Codec.ContentType()
}

// slotCapacity is the bounded capacity of a completion slot. A slot only
// ever carries one completion; the ring is sized to the smallest power of
// two above it.
const slotCapacity = 2

// completion is the outcome of one attempt.
type completion struct {
	body []byte
	err  error
}

// slot is the Handle shared by every transport. The producer (transport
// goroutine or JS callback) completes it exactly once; the consumer (tick
// goroutine) polls it.
type slot struct {
	q         lfq.SPSC[completion]
	done      atomix.Uint32
	abandoned atomix.Uint32
	abort     func()
	// release runs once when the outcome is published.
	release func()
}

func newSlot() *slot {
	s := &slot{}
	s.q.Init(slotCapacity)
	return s
}

// complete publishes the outcome. Only the first call has effect.
func (s *slot) complete(body []byte, err error) {
	if s.done.Add(1) != 1 {
		return
	}
	if s.release != nil {
		s.release()
	}
	c := completion{body: body, err: err}
	_ = s.q.Enqueue(&c)
}

func (s *slot) fail(kind TransportErrorKind, err error) {
	s.complete(nil, &TransportError{Kind: kind, Err: err})
}

// Poll implements Handle.
func (s *slot) Poll() ([]byte, error) {
	if s.abandoned.Load() != 0 {
		return nil, ErrTransportCancel
	}
	c, err := s.q.Dequeue()
	if err != nil {
		return nil, iox.ErrWouldBlock
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.body, nil
}

// Abandon implements Handle.
func (s *slot) Abandon() {
	if s.abandoned.Add(1) != 1 {
		return
	}
	if s.abort != nil {
		s.abort()
	}
}

func (s *slot) isAbandoned() bool {
	return s.abandoned.Load() != 0
}

// unavailableStatus reports HTTP statuses that signal a transient server
// condition rather than an RPC reply.
func unavailableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// carriesEnvelope reports whether an error-status body is still an RPC
// reply the codec can decode.
func carriesEnvelope(c Codec, body []byte) bool {
	if c == nil || len(body) == 0 {
		return false
	}
	_, err := c.DecodeResponse(body)
	var pe *ProtocolError
	return err == nil || (errors.As(err, &pe) && pe.Kind == ServerError)
}
