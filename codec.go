// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tickrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// jsonrpcVersion is the envelope version sent with every request.
const jsonrpcVersion = "2.0"

// Request is a typed RPC method call. It is immutable once submitted.
type Request struct {
	Method string
	Params any
}

// Response is a successfully decoded RPC response envelope.
// Result holds the raw result in the encoding of the codec that decoded it.
type Response struct {
	ID     uint64
	Result []byte
}

// Codec encodes RPC envelopes to wire payloads and decodes them back.
// Codecs have no side effects and are safe for concurrent use.
type Codec interface {
	// ContentType is the media type sent with every payload.
	ContentType() string
	// EncodeRequest encodes a request envelope. It fails only for requests
	// whose params cannot be represented in the codec's data model.
	EncodeRequest(id uint64, req Request) ([]byte, error)
	// DecodeRequest is the inverse of EncodeRequest.
	DecodeRequest(data []byte) (uint64, Request, error)
	// EncodeResponse encodes a response envelope carrying either result or rpcErr.
	EncodeResponse(id uint64, result any, rpcErr *RPCError) ([]byte, error)
	// DecodeResponse decodes a response envelope. It returns a *ProtocolError
	// of kind Malformed when data does not parse, or of kind ServerError when
	// the envelope carries an error object. The returned Response carries the
	// envelope id whenever one could be read.
	DecodeResponse(data []byte) (Response, error)
	// DecodeResult decodes a raw result produced by DecodeResponse into out.
	DecodeResult(raw []byte, out any) error
}

// CodecRegistry maps content types and dialect names to codecs.
type CodecRegistry struct {
	byType map[string]Codec
	byName map[string]Codec
}

// NewCodecRegistry constructs a registry preloaded with the JSON, CBOR and
// protobuf dialects under the names "json", "cbor" and "proto".
func NewCodecRegistry() *CodecRegistry {
	r := &CodecRegistry{byType: make(map[string]Codec), byName: make(map[string]Codec)}
	r.Register("json", JSON())
	r.Register("cbor", CBOR())
	r.Register("proto", Proto())
	return r
}

// Register adds a codec under a dialect name and its content type.
func (r *CodecRegistry) Register(name string, c Codec) {
	r.byType[c.ContentType()] = c
	r.byName[strings.ToLower(name)] = c
}

// Get returns a codec by content type, or nil.
func (r *CodecRegistry) Get(contentType string) Codec { return r.byType[contentType] }

// Lookup returns a codec by dialect name. The empty name selects JSON.
func (r *CodecRegistry) Lookup(name string) (Codec, error) {
	if name == "" {
		name = "json"
	}
	c, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("tickrpc: unknown dialect %q", name)
	}
	return c, nil
}

type jsonRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type jsonResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

type jsonCodec struct{}

// JSON returns the JSON-RPC 2.0 codec (RFC 8259). Content-Type: application/json
func JSON() Codec { return jsonCodec{} }

func (jsonCodec) ContentType() string { return "application/json" }

func (jsonCodec) EncodeRequest(id uint64, req Request) ([]byte, error) {
	env := jsonRequest{JSONRPC: jsonrpcVersion, ID: id, Method: req.Method}
	if req.Params != nil {
		p, err := json.Marshal(req.Params)
		if err != nil {
			return nil, err
		}
		env.Params = p
	}
	return json.Marshal(env)
}

func (jsonCodec) DecodeRequest(data []byte) (uint64, Request, error) {
	var env jsonRequest
	if err := json.Unmarshal(data, &env); err != nil {
		return 0, Request{}, malformed("request envelope", err)
	}
	req := Request{Method: env.Method}
	if len(env.Params) > 0 && !bytes.Equal(env.Params, jsonNull) {
		if err := json.Unmarshal(env.Params, &req.Params); err != nil {
			return 0, Request{}, malformed("request params", err)
		}
	}
	return env.ID, req, nil
}

func (jsonCodec) EncodeResponse(id uint64, result any, rpcErr *RPCError) ([]byte, error) {
	env := jsonResponse{JSONRPC: jsonrpcVersion, ID: id, Error: rpcErr}
	if rpcErr == nil {
		r, err := json.Marshal(result)
		if err != nil {
			return nil, err
		}
		env.Result = r
	}
	return json.Marshal(env)
}

func (jsonCodec) DecodeResponse(data []byte) (Response, error) {
	var env jsonResponse
	if err := json.Unmarshal(data, &env); err != nil {
		return Response{}, malformed("response envelope", err)
	}
	resp := Response{ID: env.ID}
	if env.Error != nil {
		return resp, env.Error.protocolError()
	}
	if env.Result == nil {
		return resp, malformed("no result", nil)
	}
	resp.Result = env.Result
	return resp, nil
}

func (jsonCodec) DecodeResult(raw []byte, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return malformed("result", err)
	}
	return nil
}

var jsonNull = []byte("null")
