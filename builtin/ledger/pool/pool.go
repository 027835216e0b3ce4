// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"
)

// Pool is a prover's collateral pool. Stakers hold shares of it, and the
// share price moves only when the pool is slashed. Reward value never
// enters the pool, so depositing and withdrawing cannot dilute anyone's
// accrued rewards.
type Pool struct {
	// TotalShares is the sum of all stakers' shares.
	TotalShares *big.Int
	// Value is the collateral currently backing the shares.
	Value *big.Int
	// Stakers counts positions with a non-zero share balance.
	Stakers uint64
}

// newPool creates a zero-initialized pool.
func newPool() *Pool {
	return &Pool{
		TotalShares: new(big.Int),
		Value:       new(big.Int),
	}
}

func (p *Pool) IsEmpty() bool {
	return (p.TotalShares == nil || p.TotalShares.Sign() == 0) &&
		(p.Value == nil || p.Value.Sign() == 0) &&
		p.Stakers == 0
}

// IsDrained reports whether slashing has burned the pool's entire value
// while shares are still outstanding. A drained pool cannot price new
// deposits.
func (p *Pool) IsDrained() bool {
	return p.TotalShares.Sign() > 0 && p.Value.Sign() == 0
}

// ValueOfShares converts shares to collateral value at the pool's current
// exchange rate, rounding down.
func (p *Pool) ValueOfShares(shares *big.Int) *big.Int {
	if p.TotalShares == nil || p.TotalShares.Sign() == 0 {
		return new(big.Int)
	}
	v := new(big.Int).Mul(shares, p.Value)
	return v.Div(v, p.TotalShares)
}

// SharesForValue converts collateral value to shares, rounding down. An
// empty pool prices one-to-one. Callers must reject a drained pool first.
func (p *Pool) SharesForValue(value *big.Int) *big.Int {
	if p.TotalShares == nil || p.TotalShares.Sign() == 0 {
		return new(big.Int).Set(value)
	}
	s := new(big.Int).Mul(value, p.TotalShares)
	return s.Div(s, p.Value)
}

// Position is a staker's share balance with one prover.
type Position struct {
	Shares *big.Int
}

func newPosition() *Position {
	return &Position{
		Shares: new(big.Int),
	}
}

func (p *Position) IsEmpty() bool {
	return p.Shares == nil || p.Shares.Sign() == 0
}
