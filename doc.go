// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tickrpc bridges a blockchain JSON-RPC client into a fixed-cadence
// engine tick loop on native and browser (js/wasm) runtimes.
//
// Requests are submitted without blocking and tracked by opaque tickets.
// Once per engine tick, [Client.Tick] advances every in-flight request
// without blocking: outstanding transport handles are polled, resolved
// responses are decoded, and failed attempts are retried after a backoff
// deadline.
//
// # Architecture
//
//   - Transport: [HTTPTransport] and [WebSocketTransport] on native, [FetchTransport] on js/wasm.
//     Every [Handle] is backed by a bounded lock-free SPSC completion slot via [code.hybscloud.com/lfq].
//   - Non-blocking: [Handle.Poll] returns [code.hybscloud.com/iox.ErrWouldBlock] while the attempt is in flight.
//   - Lifecycle: each ticket runs an attempt protocol of algebraic effects on [code.hybscloud.com/kont],
//     stepped one effect at a time by the tick.
//   - Codec: JSON-RPC 2.0 envelopes in JSON, CBOR, or protobuf (see [CodecRegistry]).
//
// # Ticket lifecycle
//
//	Queued -> Sent -> {Completed | Failed | Cancelled}
//
// Sent loops on itself while retries are pending. Terminal entries stay in
// the registry until the caller consumes them with [Client.TakeResult] or
// [Client.Retire].
//
// # Example
//
//	c, _ := tickrpc.New(tickrpc.Options{Endpoint: chain.DevnetURL})
//	t := c.Submit(chain.GetLatestBlockhash(chain.Finalized))
//	// every engine tick:
//	c.Tick()
//	if e, err := c.Poll(t); err == nil && e.State.Terminal() {
//		v, err := chain.TakeLatestBlockhash(c, t)
//		_ = v
//		_ = err
//	}
package tickrpc
