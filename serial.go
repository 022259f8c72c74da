// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tickrpc

import (
	"strconv"

	"code.hybscloud.com/atomix"
)

// Ticket is an opaque handle identifying one submitted request.
// Tickets are never reused: the zero Ticket is never issued.
type Ticket uint64

// String returns the decimal form of the ticket.
func (t Ticket) String() string {
	return "#" + strconv.FormatUint(uint64(t), 10)
}

// counter is the global monotonic counter for tickets.
var counter atomix.Uint64

// nextTicket returns the next monotonically increasing ticket.
func nextTicket() Ticket {
	return Ticket(counter.Add(1))
}
