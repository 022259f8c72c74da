// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chain

import (
	"code.hybscloud.com/tickrpc"
)

// TakeValue consumes a terminal ticket whose result is a Contextual[T] and
// returns its value. Errors are those of tickrpc.Client.TakeResult.
func TakeValue[T any](c *tickrpc.Client, t tickrpc.Ticket) (T, error) {
	r, err := tickrpc.TakeResult[Contextual[T]](c, t)
	return r.Value, err
}

// TakeBalance consumes a GetBalance ticket.
func TakeBalance(c *tickrpc.Client, t tickrpc.Ticket) (uint64, error) {
	return TakeValue[uint64](c, t)
}

// TakeLatestBlockhash consumes a GetLatestBlockhash ticket.
func TakeLatestBlockhash(c *tickrpc.Client, t tickrpc.Ticket) (Blockhash, error) {
	return TakeValue[Blockhash](c, t)
}

// TakeAccountInfo consumes a GetAccountInfo ticket. A missing account
// yields ErrAccountNotFound.
func TakeAccountInfo(c *tickrpc.Client, t tickrpc.Ticket) (*AccountInfo, error) {
	acc, err := TakeValue[*AccountInfo](c, t)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrAccountNotFound
	}
	return acc, nil
}

// TakeSignature consumes a SendTransaction ticket and returns the
// transaction signature.
func TakeSignature(c *tickrpc.Client, t tickrpc.Ticket) (string, error) {
	return tickrpc.TakeResult[string](c, t)
}

// TakeProgramAccounts consumes a GetProgramAccounts ticket.
func TakeProgramAccounts(c *tickrpc.Client, t tickrpc.Ticket) ([]ProgramAccount, error) {
	return tickrpc.TakeResult[[]ProgramAccount](c, t)
}
