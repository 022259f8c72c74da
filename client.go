// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tickrpc

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options configures a Client.
type Options struct {
	// Endpoint is the RPC URL. Ignored when Transport is set.
	Endpoint string
	// Dialect names the wire codec: "json" (default), "cbor" or "proto".
	// Ignored when Codec is set.
	Dialect string
	Codec   Codec
	// Transport overrides the runtime transport selected by TransportKind.
	Transport     Transport
	TransportKind string
	// Timeout bounds each attempt. Zero means DefaultTimeout.
	Timeout    time.Duration
	HTTPClient *http.Client
	// Retry is the retry policy. A zero MaxAttempts selects
	// DefaultRetryPolicy; set MaxAttempts to 1 to disable retries.
	Retry  RetryPolicy
	Clock  Clock
	Logger *zap.Logger
}

// Client submits RPC requests and delivers their outcomes to a host that
// drives it once per tick. Submit, Cancel, Retire, TakeResult and Tick are
// meant to be called from the tick goroutine; Poll and InFlight may be
// called from anywhere.
type Client struct {
	id        string
	codec     Codec
	transport Transport
	policy    RetryPolicy
	clock     Clock
	logger    *zap.Logger
	reg       registry
	bridge    bridge
}

// New constructs a Client from opts.
func New(opts Options) (*Client, error) {
	codec := opts.Codec
	if codec == nil {
		var err error
		codec, err = NewCodecRegistry().Lookup(opts.Dialect)
		if err != nil {
			return nil, err
		}
	}
	id := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("client", id))
	transport := opts.Transport
	if transport == nil {
		if opts.Endpoint == "" {
			return nil, fmt.Errorf("tickrpc: endpoint required")
		}
		var err error
		transport, err = NewTransport(TransportOptions{
			Kind:       opts.TransportKind,
			Endpoint:   opts.Endpoint,
			Codec:      codec,
			Timeout:    opts.Timeout,
			HTTPClient: opts.HTTPClient,
			Logger:     logger,
		})
		if err != nil {
			return nil, err
		}
	}
	policy := opts.Retry
	if policy.MaxAttempts == 0 {
		policy = DefaultRetryPolicy()
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}

	c := &Client{
		id:        id,
		codec:     codec,
		transport: transport,
		policy:    policy,
		clock:     clock,
		logger:    logger,
	}
	c.reg.init()
	c.bridge = bridge{reg: &c.reg, clock: clock, logger: logger}
	return c, nil
}

// ID returns the client's instance id.
func (c *Client) ID() string { return c.id }

// Codec returns the codec results are encoded with.
func (c *Client) Codec() Codec { return c.codec }

// Submit encodes req, hands it to the transport and returns its ticket.
// The entry is Sent when Submit returns; its outcome is delivered by a
// later Tick.
//
// Submit panics if req cannot be encoded or the client is closed.
func (c *Client) Submit(req Request) Ticket {
	t := nextTicket()
	payload, err := c.codec.EncodeRequest(uint64(t), req)
	if err != nil {
		panic(fmt.Sprintf("tickrpc: encode %s: %v", req.Method, err))
	}
	e := &entry{
		method:      req.Method,
		submittedAt: c.clock.Now(),
		ctx: attemptContext{
			ticket:    t,
			payload:   payload,
			transport: c.transport,
			codec:     c.codec,
			clock:     c.clock,
			logger:    c.logger,
		},
	}
	protocol := attemptProtocol(c.policy, c.retryLogger(t))
	if !c.reg.admit(e, func(e *entry) {
		_, e.susp = step(protocol)
		_, e.susp, _ = advance(&e.ctx, e.susp)
	}) {
		panic("tickrpc: submit on closed client")
	}
	c.logger.Debug("request submitted",
		zap.Stringer("ticket", t), zap.String("method", req.Method), zap.Int("bytes", len(payload)))
	return t
}

func (c *Client) retryLogger(t Ticket) func(int, error, time.Duration) {
	return func(attempt int, err error, delay time.Duration) {
		c.logger.Debug("attempt failed, retrying",
			zap.Stringer("ticket", t), zap.Int("attempt", attempt),
			zap.Duration("delay", delay), zap.Error(err))
	}
}

// Poll returns a snapshot of the ticket's entry, or ErrNotFound.
func (c *Client) Poll(t Ticket) (Entry, error) {
	e, ok := c.reg.get(t)
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// TakeResult consumes a terminal ticket. On Completed it decodes the result
// into out (which may be nil) and returns nil; on Failed it returns the
// captured error; on Cancelled it returns ErrCancelled. The ticket is
// retired in every case. A non-terminal ticket yields ErrNotReady and is
// left untouched.
func (c *Client) TakeResult(t Ticket, out any) error {
	e, err := c.reg.take(t)
	if err != nil {
		return err
	}
	switch e.state {
	case Completed:
		if out == nil {
			return nil
		}
		return c.codec.DecodeResult(e.result, out)
	case Failed:
		return e.err
	default:
		return ErrCancelled
	}
}

// TakeResult consumes a terminal ticket and decodes its result as T.
func TakeResult[T any](c *Client, t Ticket) (T, error) {
	var v T
	err := c.TakeResult(t, &v)
	return v, err
}

// Cancel moves a non-terminal ticket to Cancelled and abandons its network
// operation. Cancelling a terminal ticket is a no-op.
func (c *Client) Cancel(t Ticket) error {
	err := c.reg.cancel(t, c.clock.Now())
	if err == nil {
		c.logger.Debug("ticket cancelled", zap.Stringer("ticket", t))
	}
	return err
}

// Retire removes a terminal ticket. It returns ErrNotFound when the ticket
// is unknown or not terminal.
func (c *Client) Retire(t Ticket) error {
	return c.reg.retire(t)
}

// Tick advances every in-flight ticket without blocking and returns the
// number of tickets resolved during this call.
func (c *Client) Tick() int {
	return c.bridge.tick()
}

// InFlight returns the number of tickets awaiting an outcome.
func (c *Client) InFlight() int {
	return c.reg.inFlight()
}

// Pending returns the number of tickets not yet retired.
func (c *Client) Pending() int {
	return c.reg.len()
}

// Close cancels every outstanding ticket and closes the transport when it
// holds resources. Terminal tickets remain available to TakeResult.
// Closing a closed client returns ErrClosed.
func (c *Client) Close() error {
	n, err := c.reg.close(c.clock.Now())
	if err != nil {
		return err
	}
	c.logger.Debug("client closed", zap.Int("cancelled", n))
	if closer, ok := c.transport.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
