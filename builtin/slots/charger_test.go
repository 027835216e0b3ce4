// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slots

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/provernet/bastion/bastion"
)

func TestChargerClassification(t *testing.T) {
	c := NewCharger()

	c.Charge(bastion.SloadCost)
	c.Charge(2 * bastion.SloadCost)
	c.Charge(bastion.SstoreSetCost)
	c.Charge(bastion.SstoreResetCost)
	c.Charge(7) // unclassified

	assert.Equal(t, uint64(5), c.Ops())
	total := 3*bastion.SloadCost + bastion.SstoreSetCost + bastion.SstoreResetCost + 7
	assert.Equal(t, total, c.TotalCost())
	assert.Contains(t, c.Breakdown(), "SLOAD: 3 ops")
	assert.Contains(t, c.Breakdown(), "CUSTOM: 7 cost")
}
