// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slots

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/provernet/bastion/bastion"
)

func TestUint256(t *testing.T) {
	charger := NewCharger()
	ctx := newTestContext()
	ctx.charge = charger.Charge
	cell := NewUint256(ctx, bastion.Bytes32{1})

	// Set
	cell.Set(big.NewInt(1000))
	assert.Equal(t, bastion.SstoreResetCost, charger.TotalCost())

	// Get
	charger = NewCharger()
	ctx.charge = charger.Charge

	value, err := cell.Get()
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), value)
	assert.Equal(t, bastion.SloadCost, charger.TotalCost())

	// Add
	charger = NewCharger()
	ctx.charge = charger.Charge

	assert.NoError(t, cell.Add(big.NewInt(500)))
	assert.Equal(t, bastion.SstoreResetCost+bastion.SloadCost, charger.TotalCost())

	value, err = cell.Get()
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(1500), value)

	// Sub
	assert.NoError(t, cell.Sub(big.NewInt(200)))

	value, err = cell.Get()
	assert.NoError(t, err)
	assert.Equal(t, big.NewInt(1300), value)
}

func TestAddressCell(t *testing.T) {
	ctx := newTestContext()
	cell := NewAddress(ctx, bastion.Bytes32{2})

	got, err := cell.Get()
	assert.NoError(t, err)
	assert.True(t, got.IsZero())

	addr := bastion.BytesToAddress([]byte("addr"))
	cell.Set(&addr)

	got, err = cell.Get()
	assert.NoError(t, err)
	assert.Equal(t, addr, got)

	// nil clears the cell
	cell.Set(nil)
	got, err = cell.Get()
	assert.NoError(t, err)
	assert.True(t, got.IsZero())
}
