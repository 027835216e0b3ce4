// Copyright (c) 2024 The Bastion developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package params

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/state"
)

// Params binder of the governance params account.
// Values live directly at their param key slot.
type Params struct {
	addr  bastion.Address
	state *state.State
}

func New(addr bastion.Address, state *state.State) *Params {
	return &Params{addr, state}
}

// Get native way to get param.
func (p *Params) Get(key bastion.Bytes32) (value *big.Int, err error) {
	err = p.state.DecodeStorage(p.addr, key, func(raw []byte) error {
		if len(raw) == 0 {
			value = &big.Int{}
			return nil
		}
		return rlp.DecodeBytes(raw, &value)
	})
	return
}

// Set native way to set param.
func (p *Params) Set(key bastion.Bytes32, value *big.Int) error {
	return p.state.EncodeStorage(p.addr, key, func() ([]byte, error) {
		return rlp.EncodeToBytes(value)
	})
}

// GetAddress reads an address-valued param.
func (p *Params) GetAddress(key bastion.Bytes32) (bastion.Address, error) {
	v, err := p.Get(key)
	if err != nil {
		return bastion.Address{}, err
	}
	return bastion.BytesToAddress(v.Bytes()), nil
}

// SetAddress stores an address-valued param.
func (p *Params) SetAddress(key bastion.Bytes32, addr bastion.Address) error {
	return p.Set(key, new(big.Int).SetBytes(addr.Bytes()))
}
