// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package chain builds typed requests for a Solana-style JSON-RPC endpoint
// and decodes their results out of a tickrpc.Client.
//
// Requests are plain tickrpc.Request values; nothing here talks to the
// network. A host submits them, ticks the client and takes the typed
// result once the ticket is terminal:
//
//	t := c.Submit(chain.GetBalance(pubkey))
//	// ... once per frame: c.Tick()
//	lamports, err := chain.TakeBalance(c, t)
//
// Signing is the caller's concern: SendTransaction accepts an already
// signed, serialized transaction.
package chain

import (
	"encoding/base64"
	"errors"
	"fmt"

	"code.hybscloud.com/tickrpc"
)

// Well-known endpoints.
const (
	DevnetURL  = "https://api.devnet.solana.com"
	TestnetURL = "https://api.testnet.solana.com"
	LocalURL   = "http://127.0.0.1:8899"
)

// Commitment is the bank state a query is evaluated against.
type Commitment string

const (
	Processed Commitment = "processed"
	Confirmed Commitment = "confirmed"
	Finalized Commitment = "finalized"
)

// ErrAccountNotFound is returned when a queried account does not exist.
var ErrAccountNotFound = errors.New("chain: account not found")

const encodingBase64 = "base64"

var base64Config = map[string]any{"encoding": encodingBase64}

// GetBalance requests the lamport balance of pubkey.
func GetBalance(pubkey string) tickrpc.Request {
	return tickrpc.Request{Method: "getBalance", Params: []any{pubkey}}
}

// GetAccountInfo requests the account at pubkey with base64 data.
func GetAccountInfo(pubkey string) tickrpc.Request {
	return tickrpc.Request{Method: "getAccountInfo", Params: []any{pubkey, base64Config}}
}

// GetLatestBlockhash requests the latest blockhash at the given commitment.
// The empty commitment means Finalized.
func GetLatestBlockhash(c Commitment) tickrpc.Request {
	if c == "" {
		c = Finalized
	}
	return tickrpc.Request{Method: "getLatestBlockhash", Params: []any{map[string]any{"commitment": string(c)}}}
}

// SendTransaction submits a signed, serialized transaction.
func SendTransaction(signed []byte) tickrpc.Request {
	return tickrpc.Request{
		Method: "sendTransaction",
		Params: []any{base64.StdEncoding.EncodeToString(signed), base64Config},
	}
}

// GetProgramAccounts requests every account owned by program.
func GetProgramAccounts(program string) tickrpc.Request {
	return tickrpc.Request{Method: "getProgramAccounts", Params: []any{program, base64Config}}
}

// Context is the slot a contextual result was evaluated at.
type Context struct {
	Slot uint64 `json:"slot"`
}

// Contextual wraps results that carry the evaluation context.
type Contextual[T any] struct {
	Context Context `json:"context"`
	Value   T       `json:"value"`
}

// Blockhash is the result of getLatestBlockhash.
type Blockhash struct {
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

// AccountInfo is an account as returned with base64 data encoding.
type AccountInfo struct {
	// Data is [payload, encoding].
	Data       [2]string `json:"data"`
	Executable bool      `json:"executable"`
	Lamports   uint64    `json:"lamports"`
	Owner      string    `json:"owner"`
	RentEpoch  uint64    `json:"rentEpoch"`
	Space      uint64    `json:"space"`
}

// Bytes decodes the account data.
func (a *AccountInfo) Bytes() ([]byte, error) {
	if a.Data[1] != encodingBase64 {
		return nil, fmt.Errorf("chain: unsupported account data encoding %q", a.Data[1])
	}
	b, err := base64.StdEncoding.DecodeString(a.Data[0])
	if err != nil {
		return nil, fmt.Errorf("chain: account data: %w", err)
	}
	return b, nil
}

// ProgramAccount is one entry of getProgramAccounts.
type ProgramAccount struct {
	Pubkey  string      `json:"pubkey"`
	Account AccountInfo `json:"account"`
}
