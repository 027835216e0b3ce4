// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package prover

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/builtin/ledger/linkedlist"
	"github.com/provernet/bastion/builtin/ledger/reverts"
	"github.com/provernet/bastion/builtin/slots"
)

var (
	slotProvers       = bastion.BytesToBytes32([]byte("provers"))
	slotRegistryHead  = bastion.BytesToBytes32([]byte("prover-registry-head"))
	slotRegistryTail  = bastion.BytesToBytes32([]byte("prover-registry-tail"))
	slotRegistryCount = bastion.BytesToBytes32([]byte("prover-registry-count"))
)

// Service is the single writer of prover lifecycle records, plus the
// registry list used for stable enumeration.
type Service struct {
	provers  *slots.Mapping[bastion.Address, *Prover]
	registry *linkedlist.LinkedList
}

func New(sctx *slots.Context) *Service {
	return &Service{
		provers:  slots.NewMapping[bastion.Address, *Prover](sctx, slotProvers),
		registry: linkedlist.New(sctx, slotRegistryHead, slotRegistryTail, slotRegistryCount),
	}
}

// Get returns the prover record, Null status if never registered.
func (s *Service) Get(id bastion.Address) (*Prover, error) {
	p, err := s.provers.Get(id)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get prover")
	}
	return p, nil
}

// MustGet returns a registered prover or ErrUnknownProver.
func (s *Service) MustGet(id bastion.Address) (*Prover, error) {
	p, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if p.Status == StatusNull {
		return nil, reverts.ErrUnknownProver
	}
	return p, nil
}

// Register creates a new Active prover record and adds it to the registry.
func (s *Service) Register(id bastion.Address, commissionBps, now uint32) error {
	p, err := s.Get(id)
	if err != nil {
		return err
	}
	if p.Status != StatusNull {
		return reverts.ErrAlreadyRegistered
	}
	if commissionBps > bastion.MaxCommissionBps {
		return reverts.ErrInvalidCommission
	}

	p = &Prover{
		Status:        StatusActive,
		CommissionBps: commissionBps,
		RegisteredAt:  now,
	}
	if err := s.provers.Set(id, p, true); err != nil {
		return errors.Wrap(err, "failed to set prover")
	}
	if err := s.registry.Add(id); err != nil {
		return errors.Wrap(err, "failed to add to registry")
	}
	return nil
}

// SetStatus transitions a registered prover's lifecycle state. The caller
// enforces which transitions are legal.
func (s *Service) SetStatus(id bastion.Address, status Status) error {
	p, err := s.MustGet(id)
	if err != nil {
		return err
	}
	p.Status = status
	if err := s.provers.Set(id, p, false); err != nil {
		return errors.Wrap(err, "failed to set prover")
	}
	return nil
}

// SetCommission updates a registered prover's commission rate.
func (s *Service) SetCommission(id bastion.Address, commissionBps uint32) error {
	if commissionBps > bastion.MaxCommissionBps {
		return reverts.ErrInvalidCommission
	}
	p, err := s.MustGet(id)
	if err != nil {
		return err
	}
	p.CommissionBps = commissionBps
	if err := s.provers.Set(id, p, false); err != nil {
		return errors.Wrap(err, "failed to set prover")
	}
	return nil
}

// Count returns the number of registered provers.
func (s *Service) Count() (*big.Int, error) {
	return s.registry.Len()
}

// First returns the first registered prover, zero address if none.
func (s *Service) First() (bastion.Address, error) {
	return s.registry.Head()
}

// Next returns the prover registered after the given one, zero address at
// the end of the registry.
func (s *Service) Next(id bastion.Address) (bastion.Address, error) {
	return s.registry.Next(id)
}

// Iter walks the registry in registration order.
func (s *Service) Iter(callback func(bastion.Address) error) error {
	return s.registry.Iter(callback)
}
