// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !js

package tickrpc

import (
	"fmt"
	"strings"
)

// NewTransport builds the native transport selected by opts.Kind:
// "http" (the default) or "ws".
func NewTransport(opts TransportOptions) (Transport, error) {
	switch strings.ToLower(opts.Kind) {
	case "", "http", "https":
		return NewHTTPTransport(opts), nil
	case "ws", "wss", "websocket":
		return NewWebSocketTransport(opts)
	}
	return nil, fmt.Errorf("tickrpc: unsupported transport %q", opts.Kind)
}
