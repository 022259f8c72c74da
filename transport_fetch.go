// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build js && wasm

package tickrpc

import (
	"errors"
	"fmt"
	"syscall/js"
	"time"

	"go.uber.org/zap"
)

// FetchTransport issues each attempt as a browser fetch. The page is
// single-threaded: promise callbacks run on the event loop and only
// publish the outcome to the attempt's Handle, which the next tick drains.
type FetchTransport struct {
	endpoint string
	codec    Codec
	ctype    string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewFetchTransport creates a fetch-based POST transport for opts.Endpoint.
func NewFetchTransport(opts TransportOptions) *FetchTransport {
	return &FetchTransport{
		endpoint: opts.Endpoint,
		codec:    opts.Codec,
		ctype:    opts.contentType(),
		timeout:  opts.timeout(),
		logger:   opts.logger(),
	}
}

// fetchAttempt holds the JS resources of one attempt until it settles.
type fetchAttempt struct {
	slot     *slot
	ctrl     js.Value
	timer    js.Value
	status   int
	timedOut bool
	funcs    []js.Func
}

func (a *fetchAttempt) fn(f func(this js.Value, args []js.Value) any) js.Func {
	jf := js.FuncOf(f)
	a.funcs = append(a.funcs, jf)
	return jf
}

func (a *fetchAttempt) release() {
	js.Global().Call("clearTimeout", a.timer)
	for _, f := range a.funcs {
		f.Release()
	}
	a.funcs = nil
}

// Send implements Transport.
func (t *FetchTransport) Send(id uint64, payload []byte) Handle {
	a := &fetchAttempt{slot: newSlot()}
	global := js.Global()
	a.ctrl = global.Get("AbortController").New()
	a.slot.abort = func() { a.ctrl.Call("abort") }

	onTimeout := a.fn(func(js.Value, []js.Value) any {
		a.timedOut = true
		a.ctrl.Call("abort")
		return nil
	})
	a.timer = global.Call("setTimeout", onTimeout, t.timeout.Milliseconds())

	body := global.Get("Uint8Array").New(len(payload))
	js.CopyBytesToJS(body, payload)
	init := map[string]any{
		"method": "POST",
		"headers": map[string]any{
			"Content-Type": t.ctype,
			"Accept":       t.ctype,
		},
		"body":   body,
		"signal": a.ctrl.Get("signal"),
	}

	onResponse := a.fn(func(_ js.Value, args []js.Value) any {
		resp := args[0]
		a.status = resp.Get("status").Int()
		return resp.Call("arrayBuffer")
	})
	onBody := a.fn(func(_ js.Value, args []js.Value) any {
		view := global.Get("Uint8Array").New(args[0])
		buf := make([]byte, view.Get("length").Int())
		js.CopyBytesToGo(buf, view)
		if unavailableStatus(a.status) && !carriesEnvelope(t.codec, buf) {
			t.logger.Debug("fetch attempt unavailable", zap.Uint64("id", id), zap.Int("status", a.status))
			a.slot.fail(Unavailable, fmt.Errorf("http status %d", a.status))
			return nil
		}
		a.slot.complete(buf, nil)
		return nil
	})
	onError := a.fn(func(_ js.Value, args []js.Value) any {
		a.slot.complete(nil, t.classify(a, args[0]))
		return nil
	})
	onSettled := a.fn(func(js.Value, []js.Value) any {
		a.release()
		return nil
	})

	global.Call("fetch", t.endpoint, init).
		Call("then", onResponse).
		Call("then", onBody).
		Call("catch", onError).
		Call("finally", onSettled)
	return a.slot
}

// classify maps a rejected fetch onto a TransportError kind. Browsers do not
// expose the network cause: any TypeError is reported as ConnectionRefused.
func (t *FetchTransport) classify(a *fetchAttempt, reason js.Value) *TransportError {
	name := ""
	msg := reason.String()
	if reason.Type() == js.TypeObject {
		name = reason.Get("name").String()
		msg = reason.Get("message").String()
	}
	err := errors.New(msg)
	switch {
	case name == "AbortError" && a.timedOut:
		return &TransportError{Kind: Timeout, Err: err}
	case name == "AbortError":
		return &TransportError{Kind: TransportCancelled, Err: err}
	case name == "TypeError":
		return &TransportError{Kind: ConnectionRefused, Err: err}
	}
	return &TransportError{Kind: Network, Err: fmt.Errorf("%s: %w", name, err)}
}
