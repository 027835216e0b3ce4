// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slots

import (
	"github.com/provernet/bastion/bastion"
)

// Address is a wrapper for storage and retrieval of an address.
type Address struct {
	context *Context
	pos     bastion.Bytes32
}

func NewAddress(context *Context, pos bastion.Bytes32) *Address {
	return &Address{context: context, pos: pos}
}

func (a *Address) Get() (bastion.Address, error) {
	storage, err := a.context.state.GetStorage(a.context.address, a.pos)
	if err != nil {
		return bastion.Address{}, err
	}
	a.context.UseCost(bastion.SloadCost)
	return bastion.BytesToAddress(storage.Bytes()), nil
}

func (a *Address) Set(addr *bastion.Address) {
	var storage bastion.Bytes32
	if addr != nil {
		storage = bastion.BytesToBytes32(addr.Bytes())
	}
	a.context.UseCost(bastion.SstoreResetCost)
	a.context.state.SetStorage(a.context.address, a.pos, storage)
}
