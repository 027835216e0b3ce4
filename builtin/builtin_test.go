// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/builtin"
	"github.com/provernet/bastion/builtin/slots"
	"github.com/provernet/bastion/lvldb"
	"github.com/provernet/bastion/state"
	"github.com/provernet/bastion/test/datagen"
)

func TestDistinctAddresses(t *testing.T) {
	assert.NotEqual(t, builtin.Params.Address, builtin.Ledger.Address)
	assert.NotEqual(t, builtin.Ledger.Address, builtin.Treasury.Address)
}

func TestBindings(t *testing.T) {
	store, err := lvldb.NewMem()
	require.NoError(t, err)
	st := state.New(store)

	ps := builtin.Params.WithState(st)
	require.NoError(t, ps.Set(bastion.KeyMinSelfStake, bastion.OneToken))
	require.NoError(t, ps.Set(bastion.KeyUnbondDelay, big.NewInt(10)))
	require.NoError(t, ps.Set(bastion.KeyMaxSlashBps, big.NewInt(6000)))
	require.NoError(t, ps.Set(bastion.KeyMinWithdrawGranule, bastion.OneToken))
	require.NoError(t, ps.Set(bastion.KeyMaxPendingRequests, big.NewInt(5)))

	ldg := builtin.Ledger.WithState(st, slots.NewCharger())
	assert.Equal(t, builtin.Ledger.Address, ldg.Address())

	id := datagen.RandAddress()
	require.NoError(t, st.SetBalance(id, bastion.OneToken))
	require.NoError(t, ldg.RegisterProver(id, bastion.OneToken, 0, 1))

	summary, err := ldg.GetProverSummary(id)
	require.NoError(t, err)
	assert.Equal(t, bastion.OneToken, summary.PoolValue)
}
