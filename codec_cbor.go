// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tickrpc

import (
	"reflect"

	cbor "github.com/fxamacker/cbor/v2"
)

type cborRequest struct {
	JSONRPC string `cbor:"jsonrpc"`
	ID      uint64 `cbor:"id"`
	Method  string `cbor:"method"`
	Params  any    `cbor:"params,omitempty"`
}

type cborResponse struct {
	JSONRPC string          `cbor:"jsonrpc"`
	ID      uint64          `cbor:"id"`
	Result  cbor.RawMessage `cbor:"result,omitempty"`
	Error   *RPCError       `cbor:"error,omitempty"`
}

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// CBOR returns a deterministic CBOR codec (RFC 8949) with the canonical
// encoding profile. Maps decode into map[string]any so that decoded params
// share the JSON data model. Content-Type: application/cbor
func CBOR() Codec {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic("tickrpc: cbor encoding options: " + err.Error())
	}
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("tickrpc: cbor decoding options: " + err.Error())
	}
	return cborCodec{enc: em, dec: dm}
}

func (c cborCodec) ContentType() string { return "application/cbor" }

func (c cborCodec) EncodeRequest(id uint64, req Request) ([]byte, error) {
	return c.enc.Marshal(cborRequest{JSONRPC: jsonrpcVersion, ID: id, Method: req.Method, Params: req.Params})
}

func (c cborCodec) DecodeRequest(data []byte) (uint64, Request, error) {
	var env cborRequest
	if err := c.dec.Unmarshal(data, &env); err != nil {
		return 0, Request{}, malformed("request envelope", err)
	}
	return env.ID, Request{Method: env.Method, Params: env.Params}, nil
}

func (c cborCodec) EncodeResponse(id uint64, result any, rpcErr *RPCError) ([]byte, error) {
	env := cborResponse{JSONRPC: jsonrpcVersion, ID: id, Error: rpcErr}
	if rpcErr == nil {
		r, err := c.enc.Marshal(result)
		if err != nil {
			return nil, err
		}
		env.Result = r
	}
	return c.enc.Marshal(env)
}

func (c cborCodec) DecodeResponse(data []byte) (Response, error) {
	var env cborResponse
	if err := c.dec.Unmarshal(data, &env); err != nil {
		return Response{}, malformed("response envelope", err)
	}
	resp := Response{ID: env.ID}
	if env.Error != nil {
		return resp, env.Error.protocolError()
	}
	if len(env.Result) == 0 {
		return resp, malformed("no result", nil)
	}
	resp.Result = []byte(env.Result)
	return resp, nil
}

func (c cborCodec) DecodeResult(raw []byte, out any) error {
	if err := c.dec.Unmarshal(raw, out); err != nil {
		return malformed("result", err)
	}
	return nil
}
