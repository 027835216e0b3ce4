// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slots

import (
	"fmt"

	"github.com/provernet/bastion/bastion"
)

// Charger tallies the storage op cost of a single ledger operation.
// Its Charge method satisfies ChargeFunc.
type Charger struct {
	loadOps    uint64
	setOps     uint64
	resetOps   uint64
	customCost uint64
	totalCost  uint64
}

func NewCharger() *Charger {
	return &Charger{}
}

func (c *Charger) Charge(cost uint64) {
	c.totalCost += cost

	switch {
	// classify multiples and single operations
	case cost%bastion.SstoreSetCost == 0 && cost > 0:
		c.setOps += cost / bastion.SstoreSetCost

	case cost%bastion.SstoreResetCost == 0 && cost > 0:
		c.resetOps += cost / bastion.SstoreResetCost

	case cost%bastion.SloadCost == 0 && cost > 0:
		c.loadOps += cost / bastion.SloadCost

	default:
		c.customCost += cost
	}
}

// Ops returns the number of classified storage operations.
func (c *Charger) Ops() uint64 {
	return c.loadOps + c.setOps + c.resetOps
}

func (c *Charger) TotalCost() uint64 {
	return c.totalCost
}

func (c *Charger) Breakdown() string {
	return fmt.Sprintf(
		"SLOAD: %d ops (%d cost) | SSTORE_SET: %d ops (%d cost) | SSTORE_RESET: %d ops (%d cost) | CUSTOM: %d cost | TOTAL: %d cost",
		c.loadOps,
		c.loadOps*bastion.SloadCost,
		c.setOps,
		c.setOps*bastion.SstoreSetCost,
		c.resetOps,
		c.resetOps*bastion.SstoreResetCost,
		c.customCost,
		c.totalCost,
	)
}
