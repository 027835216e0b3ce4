// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slots

import (
	"math/big"

	"github.com/provernet/bastion/bastion"
)

// Uint256 is a wrapper for storage and retrieval of an unsigned big integer.
// If the provided value exceeds 256 bits, it is truncated to fit into bastion.Bytes32.
type Uint256 struct {
	context *Context
	pos     bastion.Bytes32
}

func NewUint256(context *Context, pos bastion.Bytes32) *Uint256 {
	return &Uint256{context: context, pos: pos}
}

func (u *Uint256) Get() (*big.Int, error) {
	storage, err := u.context.state.GetStorage(u.context.address, u.pos)
	if err != nil {
		return nil, err
	}
	u.context.UseCost(bastion.SloadCost)
	return new(big.Int).SetBytes(storage.Bytes()), nil
}

func (u *Uint256) Set(value *big.Int) {
	storage := bastion.BytesToBytes32(value.Bytes())
	u.context.UseCost(bastion.SstoreResetCost)
	u.context.state.SetStorage(u.context.address, u.pos, storage)
}

func (u *Uint256) Add(value *big.Int) error {
	storage, err := u.Get()
	if err != nil {
		return err
	}
	storage.Add(storage, value)
	u.Set(storage)
	return nil
}

func (u *Uint256) Sub(value *big.Int) error {
	storage, err := u.Get()
	if err != nil {
		return err
	}
	storage.Sub(storage, value)
	u.Set(storage)
	return nil
}
