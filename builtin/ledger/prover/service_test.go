// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package prover

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/builtin/ledger/reverts"
	"github.com/provernet/bastion/builtin/slots"
	"github.com/provernet/bastion/lvldb"
	"github.com/provernet/bastion/state"
	"github.com/provernet/bastion/test/datagen"
)

func newTestService() *Service {
	store, _ := lvldb.NewMem()
	st := state.New(store)
	charger := slots.NewCharger()
	return New(slots.NewContext(bastion.Address{1}, st, charger.Charge))
}

func TestRegister(t *testing.T) {
	svc := newTestService()
	id := datagen.RandAddress()

	require.NoError(t, svc.Register(id, 500, 10))

	p, err := svc.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, p.Status)
	assert.Equal(t, uint32(500), p.CommissionBps)
	assert.Equal(t, uint32(10), p.RegisteredAt)

	count, err := svc.Count()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1), count)

	assert.ErrorIs(t, svc.Register(id, 500, 11), reverts.ErrAlreadyRegistered)
}

func TestRegisterRejectsExcessiveCommission(t *testing.T) {
	svc := newTestService()
	err := svc.Register(datagen.RandAddress(), bastion.MaxCommissionBps+1, 0)
	assert.ErrorIs(t, err, reverts.ErrInvalidCommission)
}

func TestMustGetUnknown(t *testing.T) {
	svc := newTestService()
	_, err := svc.MustGet(datagen.RandAddress())
	assert.ErrorIs(t, err, reverts.ErrUnknownProver)
}

func TestSetStatus(t *testing.T) {
	svc := newTestService()
	id := datagen.RandAddress()
	require.NoError(t, svc.Register(id, 0, 0))

	require.NoError(t, svc.SetStatus(id, StatusDeactivated))
	p, err := svc.Get(id)
	require.NoError(t, err)
	assert.Equal(t, StatusDeactivated, p.Status)

	err = svc.SetStatus(datagen.RandAddress(), StatusActive)
	assert.ErrorIs(t, err, reverts.ErrUnknownProver)
}

func TestSetCommission(t *testing.T) {
	svc := newTestService()
	id := datagen.RandAddress()
	require.NoError(t, svc.Register(id, 100, 0))

	require.NoError(t, svc.SetCommission(id, 2500))
	p, err := svc.Get(id)
	require.NoError(t, err)
	assert.Equal(t, uint32(2500), p.CommissionBps)

	err = svc.SetCommission(id, bastion.MaxCommissionBps+1)
	assert.ErrorIs(t, err, reverts.ErrInvalidCommission)
}

func TestRegistryEnumeration(t *testing.T) {
	svc := newTestService()
	ids := []bastion.Address{
		datagen.RandAddress(),
		datagen.RandAddress(),
		datagen.RandAddress(),
	}
	for _, id := range ids {
		require.NoError(t, svc.Register(id, 0, 0))
	}

	var walked []bastion.Address
	cur, err := svc.First()
	require.NoError(t, err)
	for !cur.IsZero() {
		walked = append(walked, cur)
		cur, err = svc.Next(cur)
		require.NoError(t, err)
	}
	assert.Equal(t, ids, walked)

	var iterated []bastion.Address
	require.NoError(t, svc.Iter(func(id bastion.Address) error {
		iterated = append(iterated, id)
		return nil
	}))
	assert.Equal(t, ids, iterated)
}
