// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !js

package tickrpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// maxResponseBytes bounds a response body read by HTTPTransport.
const maxResponseBytes = 64 << 20

// HTTPTransport posts each attempt on its own goroutine with a per-attempt
// deadline. Completion is published to the attempt's Handle; the caller's
// goroutine never waits on the network.
type HTTPTransport struct {
	client   *http.Client
	endpoint string
	codec    Codec
	ctype    string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewHTTPTransport creates an HTTP POST transport for opts.Endpoint.
func NewHTTPTransport(opts TransportOptions) *HTTPTransport {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPTransport{
		client:   client,
		endpoint: opts.Endpoint,
		codec:    opts.Codec,
		ctype:    opts.contentType(),
		timeout:  opts.timeout(),
		logger:   opts.logger(),
	}
}

// Send implements Transport.
func (t *HTTPTransport) Send(id uint64, payload []byte) Handle {
	s := newSlot()
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	s.abort = cancel
	go func() {
		defer cancel()
		body, err := t.post(ctx, payload)
		if err != nil {
			if s.isAbandoned() {
				err = &TransportError{Kind: TransportCancelled, Err: err}
			}
			t.logger.Debug("http attempt failed", zap.Uint64("id", id), zap.Error(err))
			s.complete(nil, err)
			return
		}
		s.complete(body, nil)
	}()
	return s
}

func (t *HTTPTransport) post(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Kind: Network, Err: err}
	}
	req.Header.Set("Content-Type", t.ctype)
	req.Header.Set("Accept", t.ctype)
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, classifyNetError(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classifyNetError(err)
	}
	if unavailableStatus(resp.StatusCode) && !carriesEnvelope(t.codec, body) {
		return nil, &TransportError{Kind: Unavailable, Err: fmt.Errorf("http status %d", resp.StatusCode)}
	}
	return body, nil
}

// classifyNetError maps a native network error onto a TransportError kind.
func classifyNetError(err error) *TransportError {
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Kind: Timeout, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &TransportError{Kind: TransportCancelled, Err: err}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return &TransportError{Kind: Timeout, Err: err}
		}
		return &TransportError{Kind: DNSFailure, Err: err}
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return &TransportError{Kind: ConnectionRefused, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &TransportError{Kind: Timeout, Err: err}
	}
	return &TransportError{Kind: Network, Err: err}
}
