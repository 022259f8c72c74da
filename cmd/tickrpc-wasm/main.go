// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build js && wasm

// Command tickrpc-wasm hosts a tick-driven RPC client in the browser. Every
// animation frame advances in-flight tickets; results are delivered to the
// callbacks registered through the exported tickrpc object.
//
//	tickrpc.getBalance(pubkey, (err, lamports) => ...)
//	tickrpc.getLatestBlockhash((err, hash) => ...)
package main

import (
	"syscall/js"

	"go.uber.org/zap"

	"code.hybscloud.com/tickrpc"
	"code.hybscloud.com/tickrpc/chain"
)

type waiter struct {
	ticket tickrpc.Ticket
	take   func() (any, error)
	cb     js.Value
}

type host struct {
	client  *tickrpc.Client
	logger  *zap.Logger
	waiters []waiter
	frame   js.Func
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}

	endpoint := chain.DevnetURL
	if v := js.Global().Get("TICKRPC_ENDPOINT"); v.Type() == js.TypeString {
		endpoint = v.String()
	}
	client, err := tickrpc.New(tickrpc.Options{
		Endpoint:      endpoint,
		TransportKind: "fetch",
		Logger:        logger,
	})
	if err != nil {
		logger.Fatal("create client", zap.Error(err))
	}

	h := &host{client: client, logger: logger}
	h.export()
	h.frame = js.FuncOf(h.onFrame)
	js.Global().Call("requestAnimationFrame", h.frame)

	select {}
}

func (h *host) export() {
	api := js.Global().Get("Object").New()
	api.Set("getBalance", js.FuncOf(func(_ js.Value, args []js.Value) any {
		if len(args) < 2 {
			return nil
		}
		t := h.client.Submit(chain.GetBalance(args[0].String()))
		h.wait(t, args[1], func() (any, error) {
			v, err := chain.TakeBalance(h.client, t)
			return float64(v), err
		})
		return t.String()
	}))
	api.Set("getLatestBlockhash", js.FuncOf(func(_ js.Value, args []js.Value) any {
		if len(args) < 1 {
			return nil
		}
		t := h.client.Submit(chain.GetLatestBlockhash(chain.Finalized))
		h.wait(t, args[0], func() (any, error) {
			v, err := chain.TakeLatestBlockhash(h.client, t)
			return v.Blockhash, err
		})
		return t.String()
	}))
	api.Set("pending", js.FuncOf(func(js.Value, []js.Value) any {
		return h.client.Pending()
	}))
	js.Global().Set("tickrpc", api)
}

func (h *host) wait(t tickrpc.Ticket, cb js.Value, take func() (any, error)) {
	h.waiters = append(h.waiters, waiter{ticket: t, take: take, cb: cb})
}

// onFrame runs once per animation frame.
func (h *host) onFrame(js.Value, []js.Value) any {
	h.client.Tick()

	kept := h.waiters[:0]
	for _, w := range h.waiters {
		e, err := h.client.Poll(w.ticket)
		if err == nil && !e.State.Terminal() {
			kept = append(kept, w)
			continue
		}
		v, err := w.take()
		if err != nil {
			h.logger.Debug("ticket failed", zap.Stringer("ticket", w.ticket), zap.Error(err))
			w.cb.Invoke(err.Error(), js.Null())
			continue
		}
		w.cb.Invoke(js.Null(), v)
	}
	clear(h.waiters[len(kept):])
	h.waiters = kept

	js.Global().Call("requestAnimationFrame", h.frame)
	return nil
}
