// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !js

package tickrpc

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocketTransport multiplexes attempts over one persistent WebSocket
// connection. Responses are matched to attempts by envelope id, so ids must
// be unique among attempts in flight; the client uses the ticket.
//
// The connection is dialed lazily off the caller's goroutine and redialed
// after a failure. A connection failure fails every attempt in flight.
type WebSocketTransport struct {
	endpoint string
	codec    Codec
	timeout  time.Duration
	logger   *zap.Logger
	dialer   *websocket.Dialer
	msgType  int

	mu      sync.Mutex
	conn    *websocket.Conn
	dialing chan struct{}
	pending map[uint64]*slot
	closed  bool

	writeMu sync.Mutex
}

// NewWebSocketTransport creates a transport for a ws:// or wss:// endpoint.
// opts.Codec is required to correlate responses.
func NewWebSocketTransport(opts TransportOptions) (*WebSocketTransport, error) {
	if opts.Codec == nil {
		return nil, errors.New("tickrpc: websocket transport requires a codec")
	}
	msgType := websocket.BinaryMessage
	if strings.HasSuffix(opts.Codec.ContentType(), "json") {
		msgType = websocket.TextMessage
	}
	return &WebSocketTransport{
		endpoint: opts.Endpoint,
		codec:    opts.Codec,
		timeout:  opts.timeout(),
		logger:   opts.logger(),
		dialer:   &websocket.Dialer{HandshakeTimeout: opts.timeout()},
		msgType:  msgType,
		pending:  make(map[uint64]*slot),
	}, nil
}

// Send implements Transport.
//
// Replies are matched by envelope id only, and every attempt of a ticket
// carries the same id. A reply to an attempt that already timed out
// therefore completes the next attempt of that ticket; it answers the
// same request, so it is accepted as that attempt's outcome.
func (t *WebSocketTransport) Send(id uint64, payload []byte) Handle {
	s := newSlot()
	timer := time.AfterFunc(t.timeout, func() {
		if t.forget(id, s) {
			s.fail(Timeout, context.DeadlineExceeded)
		}
	})
	s.release = func() { timer.Stop() }
	s.abort = func() {
		timer.Stop()
		t.forget(id, s)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		s.fail(TransportCancelled, ErrClosed)
		return s
	}
	t.pending[id] = s
	t.mu.Unlock()

	go t.write(id, s, payload)
	return s
}

func (t *WebSocketTransport) write(id uint64, s *slot, payload []byte) {
	conn, err := t.connect()
	if err != nil {
		if t.forget(id, s) {
			s.complete(nil, classifyNetError(err))
		}
		return
	}
	t.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(t.timeout))
	err = conn.WriteMessage(t.msgType, payload)
	t.writeMu.Unlock()
	if err != nil {
		t.logger.Debug("websocket write failed", zap.Uint64("id", id), zap.Error(err))
		t.drop(conn, err)
	}
}

// connect returns the live connection, dialing when there is none.
// Concurrent callers share one dial.
func (t *WebSocketTransport) connect() (*websocket.Conn, error) {
	for {
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			return nil, &TransportError{Kind: TransportCancelled, Err: ErrClosed}
		}
		if t.conn != nil {
			conn := t.conn
			t.mu.Unlock()
			return conn, nil
		}
		if t.dialing != nil {
			wait := t.dialing
			t.mu.Unlock()
			<-wait
			t.mu.Lock()
			conn := t.conn
			t.mu.Unlock()
			if conn == nil {
				return nil, &TransportError{Kind: ConnectionRefused, Err: errors.New("websocket dial failed")}
			}
			return conn, nil
		}
		done := make(chan struct{})
		t.dialing = done
		t.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		conn, _, err := t.dialer.DialContext(ctx, t.endpoint, nil)
		cancel()

		t.mu.Lock()
		t.dialing = nil
		if err == nil && !t.closed {
			t.conn = conn
		}
		closed := t.closed
		t.mu.Unlock()
		close(done)
		if err != nil {
			t.logger.Debug("websocket dial failed", zap.String("endpoint", t.endpoint), zap.Error(err))
			return nil, err
		}
		if closed {
			_ = conn.Close()
			continue
		}
		t.logger.Debug("websocket connected", zap.String("endpoint", t.endpoint))
		go t.readLoop(conn)
		return conn, nil
	}
}

func (t *WebSocketTransport) readLoop(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.drop(conn, err)
			return
		}
		resp, err := t.codec.DecodeResponse(msg)
		var pe *ProtocolError
		if err != nil && (!errors.As(err, &pe) || pe.Kind != ServerError) && resp.ID == 0 {
			t.logger.Warn("websocket message without id dropped", zap.Error(err))
			continue
		}
		t.mu.Lock()
		s, ok := t.pending[resp.ID]
		delete(t.pending, resp.ID)
		t.mu.Unlock()
		if !ok {
			continue
		}
		s.complete(msg, nil)
	}
}

// drop discards a broken connection and fails every attempt in flight on it.
func (t *WebSocketTransport) drop(conn *websocket.Conn, cause error) {
	t.mu.Lock()
	if t.conn != conn {
		t.mu.Unlock()
		return
	}
	t.conn = nil
	failed := t.pending
	t.pending = make(map[uint64]*slot)
	t.mu.Unlock()
	_ = conn.Close()
	kind := Network
	if t.isClosed() {
		kind = TransportCancelled
	}
	for _, s := range failed {
		s.fail(kind, cause)
	}
}

// forget removes the pending attempt id if it still maps to s.
func (t *WebSocketTransport) forget(id uint64, s *slot) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending[id] != s {
		return false
	}
	delete(t.pending, id)
	return true
}

func (t *WebSocketTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Close closes the connection and cancels every attempt in flight.
func (t *WebSocketTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	t.conn = nil
	failed := t.pending
	t.pending = make(map[uint64]*slot)
	t.mu.Unlock()
	for _, s := range failed {
		s.fail(TransportCancelled, ErrClosed)
	}
	if conn == nil {
		return nil
	}
	t.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	t.writeMu.Unlock()
	return conn.Close()
}
