// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rewards

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/builtin/slots"
)

var (
	slotAccruals  = bastion.BytesToBytes32([]byte("reward-accruals"))
	slotPositions = bastion.BytesToBytes32([]byte("reward-positions"))
)

var precision = new(big.Int).SetUint64(bastion.RewardPrecision)

// Service is the single writer of reward accruals and positions. Rewards
// accrue through a per-share accumulator, so an injection is O(1) and each
// staker settles lazily whenever its share count is about to change.
type Service struct {
	accruals  *slots.Mapping[bastion.Address, *Accrual]
	positions *slots.Mapping[bastion.Bytes32, *Position]
}

func New(sctx *slots.Context) *Service {
	return &Service{
		accruals:  slots.NewMapping[bastion.Address, *Accrual](sctx, slotAccruals),
		positions: slots.NewMapping[bastion.Bytes32, *Position](sctx, slotPositions),
	}
}

// PositionKey derives the storage key of a staker's reward position.
func PositionKey(id, staker bastion.Address) bastion.Bytes32 {
	return bastion.Blake2b(id.Bytes(), staker.Bytes())
}

// GetAccrual returns the prover's accrual, a zero-initialized one if absent.
func (s *Service) GetAccrual(id bastion.Address) (*Accrual, error) {
	a, err := s.accruals.Get(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get accrual")
	}
	if a.IsEmpty() {
		return newAccrual(), nil
	}
	return a, nil
}

// GetPosition returns the staker's reward position, a zero-initialized one
// if absent.
func (s *Service) GetPosition(id, staker bastion.Address) (*Position, error) {
	p, err := s.positions.Get(PositionKey(id, staker))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get reward position")
	}
	if p.IsEmpty() {
		return newPosition(), nil
	}
	return p, nil
}

func (s *Service) setAccrual(id bastion.Address, a *Accrual, isNew bool) error {
	if err := s.accruals.Set(id, a, isNew); err != nil {
		return errors.Wrap(err, "failed to set accrual")
	}
	return nil
}

func (s *Service) setPosition(id, staker bastion.Address, p *Position, isNew bool) error {
	if err := s.positions.Set(PositionKey(id, staker), p, isNew); err != nil {
		return errors.Wrap(err, "failed to set reward position")
	}
	return nil
}

// Inject distributes toStakers across the given total share count by bumping
// the accumulator. It returns the value actually credited to stakers and the
// rounding remainder, which the caller routes to the dust sink. The two
// always sum to toStakers.
func (s *Service) Inject(id bastion.Address, toStakers, totalShares *big.Int) (credited, dust *big.Int, err error) {
	a, err := s.GetAccrual(id)
	if err != nil {
		return nil, nil, err
	}
	isNew := a.IsEmpty()

	delta := new(big.Int).Mul(toStakers, precision)
	delta.Div(delta, totalShares)

	credited = new(big.Int).Mul(delta, totalShares)
	credited.Div(credited, precision)
	dust = new(big.Int).Sub(toStakers, credited)

	a.AccPerShare = new(big.Int).Add(a.AccPerShare, delta)
	a.Outstanding = new(big.Int).Add(a.Outstanding, credited)
	if err := s.setAccrual(id, a, isNew); err != nil {
		return nil, nil, err
	}
	return credited, dust, nil
}

// AddCommission accrues unclaimed commission. Commission lives outside the
// accumulator so slashing can never touch it.
func (s *Service) AddCommission(id bastion.Address, amount *big.Int) error {
	a, err := s.GetAccrual(id)
	if err != nil {
		return err
	}
	isNew := a.IsEmpty()
	a.PendingCommission = new(big.Int).Add(a.PendingCommission, amount)
	return s.setAccrual(id, a, isNew)
}

// Settle moves the staker's accrued-but-unsettled reward into Pending and
// snapshots the accumulator. It must run before every change to the
// staker's share count, with the pre-change count.
func (s *Service) Settle(id, staker bastion.Address, shares *big.Int) error {
	a, err := s.GetAccrual(id)
	if err != nil {
		return err
	}
	p, err := s.GetPosition(id, staker)
	if err != nil {
		return err
	}
	isNew := p.IsEmpty()
	if isNew && a.AccPerShare.Sign() == 0 {
		// nothing accrued yet, keep the slot empty
		return nil
	}

	owed := new(big.Int).Sub(a.AccPerShare, p.Debt)
	owed.Mul(owed, shares)
	owed.Div(owed, precision)

	p.Pending = new(big.Int).Add(p.Pending, owed)
	p.Debt = new(big.Int).Set(a.AccPerShare)
	return s.setPosition(id, staker, p, isNew)
}

// CollectPending zeroes and returns the staker's settled reward, reducing
// the prover's outstanding liability. Callers settle first.
func (s *Service) CollectPending(id, staker bastion.Address) (*big.Int, error) {
	p, err := s.GetPosition(id, staker)
	if err != nil {
		return nil, err
	}
	paid := p.Pending
	if paid.Sign() == 0 {
		return new(big.Int), nil
	}
	p.Pending = new(big.Int)
	if err := s.setPosition(id, staker, p, false); err != nil {
		return nil, err
	}

	a, err := s.GetAccrual(id)
	if err != nil {
		return nil, err
	}
	if paid.Cmp(a.Outstanding) > 0 {
		return nil, errors.New("pending exceeds outstanding")
	}
	a.Outstanding = new(big.Int).Sub(a.Outstanding, paid)
	if err := s.setAccrual(id, a, false); err != nil {
		return nil, err
	}
	return paid, nil
}

// CollectCommission zeroes and returns the prover's unclaimed commission.
func (s *Service) CollectCommission(id bastion.Address) (*big.Int, error) {
	a, err := s.GetAccrual(id)
	if err != nil {
		return nil, err
	}
	paid := a.PendingCommission
	if paid.Sign() == 0 {
		return new(big.Int), nil
	}
	a.PendingCommission = new(big.Int)
	if err := s.setAccrual(id, a, false); err != nil {
		return nil, err
	}
	return paid, nil
}

// Claimable is the staker's total claimable reward under the given share
// count, without settling.
func (s *Service) Claimable(id, staker bastion.Address, shares *big.Int) (*big.Int, error) {
	a, err := s.GetAccrual(id)
	if err != nil {
		return nil, err
	}
	p, err := s.GetPosition(id, staker)
	if err != nil {
		return nil, err
	}
	owed := new(big.Int).Sub(a.AccPerShare, p.Debt)
	owed.Mul(owed, shares)
	owed.Div(owed, precision)
	return owed.Add(owed, p.Pending), nil
}

// DeletePosition clears the staker's reward position record. Callers must
// ensure nothing is pending.
func (s *Service) DeletePosition(id, staker bastion.Address) error {
	if err := s.positions.Delete(PositionKey(id, staker)); err != nil {
		return errors.Wrap(err, "failed to delete reward position")
	}
	return nil
}
