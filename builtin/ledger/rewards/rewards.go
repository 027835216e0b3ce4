// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rewards

import (
	"math/big"
)

// Accrual is a prover's reward bookkeeping. AccPerShare is the lifetime
// reward per share, scaled by bastion.RewardPrecision, and only ever grows.
// Outstanding is the distributable value credited to stakers but not yet
// claimed, so conservation is checkable without iterating positions.
type Accrual struct {
	AccPerShare       *big.Int
	PendingCommission *big.Int
	Outstanding       *big.Int
}

func newAccrual() *Accrual {
	return &Accrual{
		AccPerShare:       new(big.Int),
		PendingCommission: new(big.Int),
		Outstanding:       new(big.Int),
	}
}

func (a *Accrual) IsEmpty() bool {
	return (a.AccPerShare == nil || a.AccPerShare.Sign() == 0) &&
		(a.PendingCommission == nil || a.PendingCommission.Sign() == 0) &&
		(a.Outstanding == nil || a.Outstanding.Sign() == 0)
}

// Position is a staker's reward bookkeeping with one prover. Debt is the
// accumulator snapshot at the last settlement, Pending the settled but
// unclaimed value.
type Position struct {
	Debt    *big.Int
	Pending *big.Int
}

func newPosition() *Position {
	return &Position{
		Debt:    new(big.Int),
		Pending: new(big.Int),
	}
}

func (p *Position) IsEmpty() bool {
	return (p.Debt == nil || p.Debt.Sign() == 0) &&
		(p.Pending == nil || p.Pending.Sign() == 0)
}
