// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tickrpc

import (
	"encoding/json"
	"fmt"
	"math"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

type protoCodec struct {
	mo proto.MarshalOptions
	uo proto.UnmarshalOptions
}

// Proto returns a Protocol Buffers codec carrying the JSON-RPC envelope as a
// google.protobuf.Struct. Params and results are normalized to the JSON data
// model. Content-Type: application/x-protobuf
func Proto() Codec {
	return protoCodec{
		mo: proto.MarshalOptions{Deterministic: true},
		uo: proto.UnmarshalOptions{},
	}
}

func (p protoCodec) ContentType() string { return "application/x-protobuf" }

func (p protoCodec) EncodeRequest(id uint64, req Request) ([]byte, error) {
	fields := map[string]*structpb.Value{
		"jsonrpc": structpb.NewStringValue(jsonrpcVersion),
		"id":      structpb.NewNumberValue(float64(id)),
		"method":  structpb.NewStringValue(req.Method),
	}
	if req.Params != nil {
		v, err := toValue(req.Params)
		if err != nil {
			return nil, err
		}
		fields["params"] = v
	}
	return p.mo.Marshal(&structpb.Struct{Fields: fields})
}

func (p protoCodec) DecodeRequest(data []byte) (uint64, Request, error) {
	var env structpb.Struct
	if err := p.uo.Unmarshal(data, &env); err != nil {
		return 0, Request{}, malformed("request envelope", err)
	}
	id, err := envelopeID(&env)
	if err != nil {
		return 0, Request{}, err
	}
	m, ok := env.Fields["method"]
	if !ok {
		return 0, Request{}, malformed("missing method", nil)
	}
	req := Request{Method: m.GetStringValue()}
	if v, ok := env.Fields["params"]; ok {
		req.Params = v.AsInterface()
	}
	return id, req, nil
}

func (p protoCodec) EncodeResponse(id uint64, result any, rpcErr *RPCError) ([]byte, error) {
	fields := map[string]*structpb.Value{
		"jsonrpc": structpb.NewStringValue(jsonrpcVersion),
		"id":      structpb.NewNumberValue(float64(id)),
	}
	if rpcErr != nil {
		fields["error"] = structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"code":    structpb.NewNumberValue(float64(rpcErr.Code)),
			"message": structpb.NewStringValue(rpcErr.Message),
		}})
	} else {
		v, err := toValue(result)
		if err != nil {
			return nil, err
		}
		fields["result"] = v
	}
	return p.mo.Marshal(&structpb.Struct{Fields: fields})
}

func (p protoCodec) DecodeResponse(data []byte) (Response, error) {
	var env structpb.Struct
	if err := p.uo.Unmarshal(data, &env); err != nil {
		return Response{}, malformed("response envelope", err)
	}
	id, err := envelopeID(&env)
	if err != nil {
		return Response{}, err
	}
	resp := Response{ID: id}
	if e, ok := env.Fields["error"]; ok {
		s := e.GetStructValue()
		if s == nil {
			return resp, malformed("error object", nil)
		}
		return resp, &ProtocolError{
			Kind:    ServerError,
			Code:    int(s.Fields["code"].GetNumberValue()),
			Message: s.Fields["message"].GetStringValue(),
		}
	}
	r, ok := env.Fields["result"]
	if !ok {
		return resp, malformed("no result", nil)
	}
	raw, err := p.mo.Marshal(r)
	if err != nil {
		return resp, malformed("result", err)
	}
	resp.Result = raw
	return resp, nil
}

func (p protoCodec) DecodeResult(raw []byte, out any) error {
	var v structpb.Value
	if err := p.uo.Unmarshal(raw, &v); err != nil {
		return malformed("result", err)
	}
	b, err := json.Marshal(v.AsInterface())
	if err != nil {
		return malformed("result", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return malformed("result", err)
	}
	return nil
}

// toValue converts v to a structpb.Value through the JSON data model, so
// that typed structs and slices are accepted alongside plain maps.
func toValue(v any) (*structpb.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var plain any
	if err := json.Unmarshal(b, &plain); err != nil {
		return nil, err
	}
	return structpb.NewValue(plain)
}

func envelopeID(env *structpb.Struct) (uint64, error) {
	v, ok := env.Fields["id"]
	if !ok {
		return 0, malformed("missing id", nil)
	}
	n := v.GetNumberValue()
	if n < 0 || n > math.MaxUint64 || n != math.Trunc(n) {
		return 0, malformed(fmt.Sprintf("invalid id %v", n), nil)
	}
	return uint64(n), nil
}
