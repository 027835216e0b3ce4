// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package unbonding

import (
	"math/big"

	"github.com/provernet/bastion/builtin/ledger/slashing"
)

// Request is one pending withdrawal. The amount is stored in raw units
// fixed at request time, so a later slash shrinks the eventual payout
// without the request ever being touched again.
type Request struct {
	ID      uint64
	Raw     *big.Int
	ReadyAt uint32
}

// Effective is the value this request pays out under the given scale.
func (r *Request) Effective(scale uint32) *big.Int {
	return slashing.Effective(r.Raw, scale)
}

// Queue holds a staker's pending requests with one prover. NextID only
// ever grows, so request ids are never reused within a pair.
type Queue struct {
	NextID   uint64
	Requests []*Request
}

func newQueue() *Queue {
	return &Queue{}
}

func (q *Queue) IsEmpty() bool {
	return q.NextID == 0 && len(q.Requests) == 0
}
