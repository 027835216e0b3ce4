// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package treasury

import (
	"math/big"

	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/builtin/slots"
)

var (
	slotSlashed = bastion.BytesToBytes32([]byte("treasury-slashed"))
	slotDust    = bastion.BytesToBytes32([]byte("treasury-dust"))
)

// Service tracks the lifetime totals routed to the treasury account, split
// by origin. Slashed value comes from slashing cuts, dust from rounding
// remainders of reward injection and withdrawal payout.
type Service struct {
	slashed *slots.Uint256
	dust    *slots.Uint256
}

func New(sctx *slots.Context) *Service {
	return &Service{
		slashed: slots.NewUint256(sctx, slotSlashed),
		dust:    slots.NewUint256(sctx, slotDust),
	}
}

func (s *Service) AddSlashed(amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	return s.slashed.Add(amount)
}

func (s *Service) AddDust(amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	return s.dust.Add(amount)
}

func (s *Service) Slashed() (*big.Int, error) {
	return s.slashed.Get()
}

func (s *Service) Dust() (*big.Int, error) {
	return s.dust.Get()
}
