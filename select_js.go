// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build js && wasm

package tickrpc

import (
	"fmt"
	"strings"
)

// NewTransport builds the browser transport. Only fetch is available on
// js/wasm; "http" is accepted as its alias.
func NewTransport(opts TransportOptions) (Transport, error) {
	switch strings.ToLower(opts.Kind) {
	case "", "http", "https", "fetch":
		return NewFetchTransport(opts), nil
	}
	return nil, fmt.Errorf("tickrpc: unsupported transport %q on js/wasm", opts.Kind)
}
