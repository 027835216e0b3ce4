// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pool

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/builtin/ledger/reverts"
	"github.com/provernet/bastion/builtin/slots"
)

var (
	slotPools     = bastion.BytesToBytes32([]byte("pools"))
	slotPositions = bastion.BytesToBytes32([]byte("pool-positions"))
)

// Service is the single writer of pools and positions.
type Service struct {
	pools     *slots.Mapping[bastion.Address, *Pool]
	positions *slots.Mapping[bastion.Bytes32, *Position]
}

func New(sctx *slots.Context) *Service {
	return &Service{
		pools:     slots.NewMapping[bastion.Address, *Pool](sctx, slotPools),
		positions: slots.NewMapping[bastion.Bytes32, *Position](sctx, slotPositions),
	}
}

// PositionKey derives the storage key of a staker's position with a prover.
func PositionKey(id, staker bastion.Address) bastion.Bytes32 {
	return bastion.Blake2b(id.Bytes(), staker.Bytes())
}

// GetPool returns the prover's pool, a zero-initialized one if absent.
func (s *Service) GetPool(id bastion.Address) (*Pool, error) {
	p, err := s.pools.Get(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get pool")
	}
	if p.IsEmpty() {
		return newPool(), nil
	}
	return p, nil
}

// GetPosition returns the staker's position, a zero-initialized one if absent.
func (s *Service) GetPosition(id, staker bastion.Address) (*Position, error) {
	p, err := s.positions.Get(PositionKey(id, staker))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get position")
	}
	if p.IsEmpty() {
		return newPosition(), nil
	}
	return p, nil
}

// Deposit adds value to the prover's pool and issues shares to the staker
// at the current exchange rate, one-to-one for the first deposit.
func (s *Service) Deposit(id, staker bastion.Address, value *big.Int) (*big.Int, error) {
	p, err := s.GetPool(id)
	if err != nil {
		return nil, err
	}
	if p.IsDrained() {
		return nil, reverts.ErrPoolDrained
	}
	poolIsNew := p.IsEmpty()

	shares := p.SharesForValue(value)
	if shares.Sign() == 0 {
		return nil, reverts.ErrZeroShares
	}

	key := PositionKey(id, staker)
	pos, err := s.GetPosition(id, staker)
	if err != nil {
		return nil, err
	}
	posIsNew := pos.IsEmpty()
	if posIsNew {
		p.Stakers++
	}

	pos.Shares = new(big.Int).Add(pos.Shares, shares)
	p.TotalShares = new(big.Int).Add(p.TotalShares, shares)
	p.Value = new(big.Int).Add(p.Value, value)

	if err := s.positions.Set(key, pos, posIsNew); err != nil {
		return nil, errors.Wrap(err, "failed to set position")
	}
	if err := s.pools.Set(id, p, poolIsNew); err != nil {
		return nil, errors.Wrap(err, "failed to set pool")
	}
	return shares, nil
}

// Withdraw burns the shares covering the given value and removes that value
// from the pool. The position record survives at zero shares until pruned.
func (s *Service) Withdraw(id, staker bastion.Address, value *big.Int) (*big.Int, error) {
	p, err := s.GetPool(id)
	if err != nil {
		return nil, err
	}
	if value.Cmp(p.Value) > 0 {
		return nil, reverts.ErrAmountTooLarge
	}

	shares := p.SharesForValue(value)
	if shares.Sign() == 0 {
		return nil, reverts.ErrZeroShares
	}

	key := PositionKey(id, staker)
	pos, err := s.GetPosition(id, staker)
	if err != nil {
		return nil, err
	}
	if pos.Shares.Cmp(shares) < 0 {
		return nil, reverts.ErrAmountTooLarge
	}

	pos.Shares = new(big.Int).Sub(pos.Shares, shares)
	p.TotalShares = new(big.Int).Sub(p.TotalShares, shares)
	p.Value = new(big.Int).Sub(p.Value, value)
	if pos.Shares.Sign() == 0 {
		p.Stakers--
	}

	if err := s.positions.Set(key, pos, false); err != nil {
		return nil, errors.Wrap(err, "failed to set position")
	}
	if err := s.pools.Set(id, p, false); err != nil {
		return nil, errors.Wrap(err, "failed to set pool")
	}
	return shares, nil
}

// SlashValue burns value from the pool without touching shares, devaluing
// every share proportionally.
func (s *Service) SlashValue(id bastion.Address, cut *big.Int) error {
	p, err := s.GetPool(id)
	if err != nil {
		return err
	}
	if cut.Cmp(p.Value) > 0 {
		return errors.New("cut exceeds pool value")
	}

	p.Value = new(big.Int).Sub(p.Value, cut)
	if err := s.pools.Set(id, p, false); err != nil {
		return errors.Wrap(err, "failed to set pool")
	}
	return nil
}

// DeletePosition clears the staker's position record. Callers must ensure
// the position holds no shares.
func (s *Service) DeletePosition(id, staker bastion.Address) error {
	if err := s.positions.Delete(PositionKey(id, staker)); err != nil {
		return errors.Wrap(err, "failed to delete position")
	}
	return nil
}
