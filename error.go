// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tickrpc

import (
	"errors"
	"fmt"
)

// Client errors are raised synchronously by the facade, never by network
// activity.
var (
	ErrNotReady  = errors.New("tickrpc: ticket not resolved yet")
	ErrNotFound  = errors.New("tickrpc: ticket not found")
	ErrCancelled = errors.New("tickrpc: ticket cancelled")
	ErrClosed    = errors.New("tickrpc: client closed")
)

// TransportErrorKind classifies a network-layer failure.
type TransportErrorKind uint8

const (
	Timeout TransportErrorKind = iota + 1
	ConnectionRefused
	DNSFailure
	TransportCancelled
	// Unavailable is an HTTP 429 or 5xx reply that carried no RPC envelope.
	Unavailable
	// Network is any other I/O failure.
	Network
)

func (k TransportErrorKind) String() string {
	switch k {
	case Timeout:
		return "timeout"
	case ConnectionRefused:
		return "connection refused"
	case DNSFailure:
		return "dns failure"
	case TransportCancelled:
		return "cancelled"
	case Unavailable:
		return "unavailable"
	case Network:
		return "network"
	}
	return "unknown"
}

// TransportError is the Ready(error) outcome of a transport attempt.
type TransportError struct {
	Kind TransportErrorKind
	Err  error
}

// Kind sentinels for errors.Is matching against a *TransportError.
var (
	ErrTimeout           = &TransportError{Kind: Timeout}
	ErrConnectionRefused = &TransportError{Kind: ConnectionRefused}
	ErrDNSFailure        = &TransportError{Kind: DNSFailure}
	ErrTransportCancel   = &TransportError{Kind: TransportCancelled}
	ErrUnavailable       = &TransportError{Kind: Unavailable}
)

func (e *TransportError) Error() string {
	if e.Err == nil {
		return "tickrpc: transport " + e.Kind.String()
	}
	return fmt.Sprintf("tickrpc: transport %s: %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is matches any *TransportError of the same kind.
func (e *TransportError) Is(target error) bool {
	t, ok := target.(*TransportError)
	return ok && t.Kind == e.Kind
}

// ProtocolErrorKind classifies a decode-layer failure.
type ProtocolErrorKind uint8

const (
	// Malformed means the payload does not parse as the expected envelope.
	Malformed ProtocolErrorKind = iota + 1
	// ServerError means the payload carries an explicit RPC error object.
	ServerError
)

// ProtocolError is a decode failure of a response payload.
type ProtocolError struct {
	Kind    ProtocolErrorKind
	Code    int
	Message string
	Err     error
}

// ErrMalformed matches any malformed-payload *ProtocolError via errors.Is.
var ErrMalformed = &ProtocolError{Kind: Malformed}

func (e *ProtocolError) Error() string {
	if e.Kind == ServerError {
		return fmt.Sprintf("tickrpc: rpc error %d: %s", e.Code, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("tickrpc: malformed payload: %s: %v", e.Message, e.Err)
	}
	return "tickrpc: malformed payload: " + e.Message
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Is matches a *ProtocolError of the same kind. A ServerError target with a
// non-zero Code additionally requires the code to match.
func (e *ProtocolError) Is(target error) bool {
	t, ok := target.(*ProtocolError)
	if !ok || t.Kind != e.Kind {
		return false
	}
	return t.Kind != ServerError || t.Code == 0 || t.Code == e.Code
}

func malformed(msg string, err error) *ProtocolError {
	return &ProtocolError{Kind: Malformed, Message: msg, Err: err}
}

// RPCError is the error object of a JSON-RPC 2.0 response.
type RPCError struct {
	Code    int    `json:"code" cbor:"code"`
	Message string `json:"message" cbor:"message"`
}

func (e *RPCError) protocolError() *ProtocolError {
	return &ProtocolError{Kind: ServerError, Code: e.Code, Message: e.Message}
}
