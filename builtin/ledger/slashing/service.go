// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slashing

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/builtin/ledger/reverts"
	"github.com/provernet/bastion/builtin/slots"
)

var slotScales = bastion.BytesToBytes32([]byte("slashing-scales"))

// Service keeps the per-prover slashing scale. The scale starts at
// bastion.ScaleMax and only ever decreases, compounding multiplicatively
// with every cut. Unbonding amounts are stored in raw units and shrink
// through the scale, which is what makes a cut O(1) regardless of how many
// requests are in flight.
type Service struct {
	scales *slots.Mapping[bastion.Address, uint32]
}

func New(sctx *slots.Context) *Service {
	return &Service{
		scales: slots.NewMapping[bastion.Address, uint32](sctx, slotScales),
	}
}

// Init sets a fresh prover's scale to ScaleMax.
func (s *Service) Init(id bastion.Address) error {
	if err := s.scales.Set(id, bastion.ScaleMax, true); err != nil {
		return errors.Wrap(err, "failed to init scale")
	}
	return nil
}

// GetScale returns the prover's current scale, zero if never initialized.
func (s *Service) GetScale(id bastion.Address) (uint32, error) {
	scale, err := s.scales.Get(id)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get scale")
	}
	return scale, nil
}

// ApplyCut compounds a proportional cut into the prover's scale. The cut is
// rejected outright when the resulting scale would drop below MinScaleFloor,
// leaving the stored scale untouched.
func (s *Service) ApplyCut(id bastion.Address, percentBps uint32) (oldScale, newScale uint32, err error) {
	scale, err := s.GetScale(id)
	if err != nil {
		return 0, 0, err
	}

	if percentBps >= bastion.ScaleMax {
		// a full cut always lands below the floor
		return 0, 0, reverts.ErrScaleFloor
	}

	next := uint32(uint64(scale) * uint64(bastion.ScaleMax-percentBps) / uint64(bastion.ScaleMax))
	if next < bastion.MinScaleFloor {
		return 0, 0, reverts.ErrScaleFloor
	}

	if err := s.scales.Set(id, next, false); err != nil {
		return 0, 0, errors.Wrap(err, "failed to set scale")
	}
	return scale, next, nil
}

// Effective converts raw units to their current value under the given
// scale, rounding down.
func Effective(raw *big.Int, scale uint32) *big.Int {
	v := new(big.Int).Mul(raw, big.NewInt(int64(scale)))
	return v.Div(v, big.NewInt(int64(bastion.ScaleMax)))
}

// RawUnits converts a value to raw units at the given scale, rounding down
// so later payouts never exceed the requested value.
func RawUnits(value *big.Int, scale uint32) *big.Int {
	v := new(big.Int).Mul(value, big.NewInt(int64(bastion.ScaleMax)))
	return v.Div(v, big.NewInt(int64(scale)))
}
