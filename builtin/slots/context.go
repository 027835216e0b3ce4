// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slots

import (
	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/state"
)

// ChargeFunc receives the storage op cost of each slot access.
type ChargeFunc func(cost uint64)

// Context scopes slot cells and mappings to one ledger account.
type Context struct {
	address bastion.Address
	state   *state.State
	charge  ChargeFunc
}

func NewContext(address bastion.Address, state *state.State, charge ChargeFunc) *Context {
	return &Context{
		address: address,
		state:   state,
		charge:  charge,
	}
}

func (c *Context) State() *state.State {
	return c.state
}

func (c *Context) Address() bastion.Address {
	return c.address
}

func (c *Context) UseCost(cost uint64) {
	if c.charge != nil {
		c.charge(cost)
	}
}
