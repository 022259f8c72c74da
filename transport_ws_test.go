// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !js

package tickrpc_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"code.hybscloud.com/tickrpc"
)

// wsServer upgrades every connection and serves it with serve. The
// connection index is 1-based.
func wsServer(tb testing.TB, serve func(n int32, conn *websocket.Conn)) string {
	tb.Helper()
	var conns atomic.Int32
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conns.Add(1), conn)
	}))
	tb.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// echoRPC answers every request on conn with its method name, in reverse
// arrival order per batch of two so that responses arrive out of order.
func echoRPC(codec tickrpc.Codec) func(int32, *websocket.Conn) {
	return func(_ int32, conn *websocket.Conn) {
		var held []byte
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			id, req, err := codec.DecodeRequest(msg)
			if err != nil {
				return
			}
			out, _ := codec.EncodeResponse(id, req.Method, nil)
			if held == nil {
				held = out
				continue
			}
			_ = conn.WriteMessage(mt, out)
			_ = conn.WriteMessage(mt, held)
			held = nil
		}
	}
}

func TestWebSocketMultiplexOutOfOrder(t *testing.T) {
	skipRace(t)
	for name, codec := range dialects() {
		url := wsServer(t, echoRPC(codec))
		c, err := tickrpc.New(tickrpc.Options{Endpoint: url, TransportKind: "ws", Codec: codec})
		if err != nil {
			t.Fatalf("%s: New: %v", name, err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		t1 := c.Submit(tickrpc.Request{Method: "first"})
		t2 := c.Submit(tickrpc.Request{Method: "second"})
		for tk, want := range map[tickrpc.Ticket]string{t1: "first", t2: "second"} {
			if _, err := c.Wait(ctx, tk); err != nil {
				t.Fatalf("%s: Wait %v: %v", name, tk, err)
			}
			got, err := tickrpc.TakeResult[string](c, tk)
			if err != nil || got != want {
				t.Fatalf("%s: ticket %v got (%q, %v), want %q", name, tk, got, err, want)
			}
		}
		cancel()
		if err := c.Close(); err != nil {
			t.Fatalf("%s: Close: %v", name, err)
		}
	}
}

func TestWebSocketRedialAfterDrop(t *testing.T) {
	skipRace(t)
	codec := tickrpc.JSON()
	url := wsServer(t, func(n int32, conn *websocket.Conn) {
		if n == 1 {
			_, _, _ = conn.ReadMessage()
			return
		}
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			id, req, _ := codec.DecodeRequest(msg)
			out, _ := codec.EncodeResponse(id, req.Method, nil)
			_ = conn.WriteMessage(mt, out)
		}
	})

	c, err := tickrpc.New(tickrpc.Options{
		Endpoint:      url,
		TransportKind: "ws",
		Retry:         tickrpc.RetryPolicy{MaxAttempts: 2, Schedule: []time.Duration{0}},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tk := c.Submit(tickrpc.Request{Method: "getSlot"})
	e, err := c.Wait(ctx, tk)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if e.State != tickrpc.Completed || e.Attempts != 2 {
		t.Fatalf("got (%v, %d attempts, %v), want (completed, 2)", e.State, e.Attempts, e.LastError)
	}
}

func TestWebSocketTimeout(t *testing.T) {
	skipRace(t)
	url := wsServer(t, func(_ int32, conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	tr, err := tickrpc.NewWebSocketTransport(tickrpc.TransportOptions{
		Endpoint: url, Codec: tickrpc.JSON(), Timeout: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewWebSocketTransport: %v", err)
	}
	defer tr.Close()

	_, err = pollHandle(t, tr.Send(1, []byte(`{"jsonrpc":"2.0","id":1,"method":"x"}`)), 5*time.Second)
	if !errors.Is(err, tickrpc.ErrTimeout) {
		t.Fatalf("got %v, want Timeout", err)
	}
}

func TestWebSocketCloseCancelsPending(t *testing.T) {
	skipRace(t)
	url := wsServer(t, func(_ int32, conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	tr, err := tickrpc.NewWebSocketTransport(tickrpc.TransportOptions{Endpoint: url, Codec: tickrpc.JSON()})
	if err != nil {
		t.Fatalf("NewWebSocketTransport: %v", err)
	}
	h := tr.Send(1, []byte(`{"jsonrpc":"2.0","id":1,"method":"x"}`))
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := pollHandle(t, h, 5*time.Second); !errors.Is(err, tickrpc.ErrTransportCancel) {
		t.Fatalf("got %v, want Cancelled", err)
	}
	if _, err := pollHandle(t, tr.Send(2, nil), time.Second); !errors.Is(err, tickrpc.ErrTransportCancel) {
		t.Fatalf("Send after Close got %v, want Cancelled", err)
	}
}

func TestWebSocketRequiresCodec(t *testing.T) {
	if _, err := tickrpc.NewWebSocketTransport(tickrpc.TransportOptions{Endpoint: "ws://127.0.0.1:1"}); err == nil {
		t.Fatal("NewWebSocketTransport without codec succeeded")
	}
}

func TestWebSocketLateReplyCompletesRetry(t *testing.T) {
	skipRace(t)
	codec := tickrpc.JSON()
	url := wsServer(t, func(_ int32, conn *websocket.Conn) {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		id, _, _ := codec.DecodeRequest(msg)
		time.Sleep(300 * time.Millisecond)
		out, _ := codec.EncodeResponse(id, "first attempt", nil)
		_ = conn.WriteMessage(mt, out)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	tr, err := tickrpc.NewWebSocketTransport(tickrpc.TransportOptions{
		Endpoint: url,
		Codec:    codec,
		Timeout:  200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewWebSocketTransport: %v", err)
	}
	defer tr.Close()

	payload, _ := codec.EncodeRequest(7, tickrpc.Request{Method: "getSlot"})
	if _, err := pollHandle(t, tr.Send(7, payload), 2*time.Second); !errors.Is(err, tickrpc.ErrTimeout) {
		t.Fatalf("first attempt got %v, want Timeout", err)
	}
	body, err := pollHandle(t, tr.Send(7, payload), 2*time.Second)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	resp, err := codec.DecodeResponse(body)
	if err != nil || resp.ID != 7 {
		t.Fatalf("retry got (%+v, %v), want the late reply to id 7", resp, err)
	}
	var v string
	if err := codec.DecodeResult(resp.Result, &v); err != nil || v != "first attempt" {
		t.Fatalf("retry result got (%q, %v)", v, err)
	}
}
