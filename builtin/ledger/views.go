// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"

	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/builtin/ledger/prover"
)

// ProverSummary is the aggregate view of one prover.
type ProverSummary struct {
	ID                bastion.Address
	Status            prover.Status
	CommissionBps     uint32
	ScaleBps          uint32
	RegisteredAt      uint32
	Stakers           uint64
	PoolValue         *big.Int
	TotalShares       *big.Int
	SelfCollateral    *big.Int
	UnbondingValue    *big.Int
	PendingCommission *big.Int
}

// StakeSummary is the view of one staker's position with a prover.
type StakeSummary struct {
	Shares           *big.Int
	ActiveValue      *big.Int
	PendingValue     *big.Int
	PendingRequests  int
	ClaimableRewards *big.Int
}

// RequestDetail is the view of one pending withdrawal request, valued at
// the prover's current scale.
type RequestDetail struct {
	ID      uint64
	Value   *big.Int
	ReadyAt uint32
	Mature  bool
}

// TreasurySummary is the view of the global treasury sinks.
type TreasurySummary struct {
	Slashed *big.Int
	Dust    *big.Int
	Balance *big.Int
}

// GetProverSummary returns the prover's aggregate view.
func (l *Ledger) GetProverSummary(id bastion.Address) (*ProverSummary, error) {
	p, err := l.provers.MustGet(id)
	if err != nil {
		return nil, err
	}
	pl, err := l.pools.GetPool(id)
	if err != nil {
		return nil, err
	}
	scale, err := l.scales.GetScale(id)
	if err != nil {
		return nil, err
	}
	unbondingValue, err := l.queues.EffectiveTotal(id, scale)
	if err != nil {
		return nil, err
	}
	selfValue, err := l.selfCollateral(id)
	if err != nil {
		return nil, err
	}
	accrual, err := l.rewards.GetAccrual(id)
	if err != nil {
		return nil, err
	}

	return &ProverSummary{
		ID:                id,
		Status:            p.Status,
		CommissionBps:     p.CommissionBps,
		ScaleBps:          scale,
		RegisteredAt:      p.RegisteredAt,
		Stakers:           pl.Stakers,
		PoolValue:         pl.Value,
		TotalShares:       pl.TotalShares,
		SelfCollateral:    selfValue,
		UnbondingValue:    unbondingValue,
		PendingCommission: accrual.PendingCommission,
	}, nil
}

// GetStakeSummary returns the staker's position view with a prover.
func (l *Ledger) GetStakeSummary(id, staker bastion.Address) (*StakeSummary, error) {
	if _, err := l.provers.MustGet(id); err != nil {
		return nil, err
	}
	pl, err := l.pools.GetPool(id)
	if err != nil {
		return nil, err
	}
	pos, err := l.pools.GetPosition(id, staker)
	if err != nil {
		return nil, err
	}
	scale, err := l.scales.GetScale(id)
	if err != nil {
		return nil, err
	}
	queue, err := l.queues.GetQueue(id, staker)
	if err != nil {
		return nil, err
	}
	pending := new(big.Int)
	for _, r := range queue.Requests {
		pending.Add(pending, r.Effective(scale))
	}
	claimable, err := l.rewards.Claimable(id, staker, pos.Shares)
	if err != nil {
		return nil, err
	}

	return &StakeSummary{
		Shares:           pos.Shares,
		ActiveValue:      pl.ValueOfShares(pos.Shares),
		PendingValue:     pending,
		PendingRequests:  len(queue.Requests),
		ClaimableRewards: claimable,
	}, nil
}

// GetRequests lists the staker's pending requests with a prover.
func (l *Ledger) GetRequests(id, staker bastion.Address, now uint32) ([]*RequestDetail, error) {
	if _, err := l.provers.MustGet(id); err != nil {
		return nil, err
	}
	scale, err := l.scales.GetScale(id)
	if err != nil {
		return nil, err
	}
	queue, err := l.queues.GetQueue(id, staker)
	if err != nil {
		return nil, err
	}

	details := make([]*RequestDetail, 0, len(queue.Requests))
	for _, r := range queue.Requests {
		details = append(details, &RequestDetail{
			ID:      r.ID,
			Value:   r.Effective(scale),
			ReadyAt: r.ReadyAt,
			Mature:  r.ReadyAt <= now,
		})
	}
	return details, nil
}

// GetTreasurySummary returns the lifetime sink totals and the treasury
// account balance.
func (l *Ledger) GetTreasurySummary() (*TreasurySummary, error) {
	slashed, err := l.treasurySvc.Slashed()
	if err != nil {
		return nil, err
	}
	dust, err := l.treasurySvc.Dust()
	if err != nil {
		return nil, err
	}
	balance, err := l.state.GetBalance(l.treasury)
	if err != nil {
		return nil, err
	}
	return &TreasurySummary{
		Slashed: slashed,
		Dust:    dust,
		Balance: balance,
	}, nil
}

// FirstProver returns the first registered prover, zero address if none.
func (l *Ledger) FirstProver() (bastion.Address, error) {
	return l.provers.First()
}

// NextProver returns the prover registered after the given one.
func (l *Ledger) NextProver(id bastion.Address) (bastion.Address, error) {
	return l.provers.Next(id)
}

// ProverCount returns the number of registered provers.
func (l *Ledger) ProverCount() (*big.Int, error) {
	return l.provers.Count()
}

// GetScale returns the prover's current slashing scale.
func (l *Ledger) GetScale(id bastion.Address) (uint32, error) {
	return l.scales.GetScale(id)
}

// conservationTotal sums the prover's pool value, effective unbonding
// value, pending commission and outstanding rewards.
func (l *Ledger) conservationTotal(id bastion.Address) (*big.Int, error) {
	pl, err := l.pools.GetPool(id)
	if err != nil {
		return nil, err
	}
	scale, err := l.scales.GetScale(id)
	if err != nil {
		return nil, err
	}
	unbondingValue, err := l.queues.EffectiveTotal(id, scale)
	if err != nil {
		return nil, err
	}
	accrual, err := l.rewards.GetAccrual(id)
	if err != nil {
		return nil, err
	}

	total := new(big.Int).Add(pl.Value, unbondingValue)
	total.Add(total, accrual.PendingCommission)
	return total.Add(total, accrual.Outstanding), nil
}
