// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/builtin"
	"github.com/provernet/bastion/lvldb"
	"github.com/provernet/bastion/state"
)

const testConfig = `
params:
  unbondDelay: 120
  minSelfStake: "1000000000000000000"
  maxSlashBps: 5000
  minWithdrawGranule: "1000000000000000000"
  maxPendingRequests: 5
roles:
  executor: "0x0000000000000000000000000000000000000011"
  slasher: "0x0000000000000000000000000000000000000022"
  rewardSource: "0x0000000000000000000000000000000000000033"
accounts:
  - address: "0x00000000000000000000000000000000000000aa"
    balance: "5000000000000000000"
`

func newTestState(t *testing.T) *state.State {
	store, err := lvldb.NewMem()
	require.NoError(t, err)
	return state.New(store)
}

func TestLoadAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))

	config, err := Load(path)
	require.NoError(t, err)

	st := newTestState(t)
	applied, err := Applied(st)
	require.NoError(t, err)
	assert.False(t, applied)

	require.NoError(t, config.Apply(st))

	ps := builtin.Params.WithState(st)
	delay, err := ps.Get(bastion.KeyUnbondDelay)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(120), delay)

	slasher, err := ps.GetAddress(bastion.KeySlasherAddress)
	require.NoError(t, err)
	assert.Equal(t, bastion.MustParseAddress("0x0000000000000000000000000000000000000022"), slasher)

	balance, err := st.GetBalance(bastion.MustParseAddress("0x00000000000000000000000000000000000000aa"))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(5e18), balance)

	applied, err = Applied(st)
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestApplyDefaults(t *testing.T) {
	st := newTestState(t)
	require.NoError(t, (&Config{}).Apply(st))

	ps := builtin.Params.WithState(st)
	delay, err := ps.Get(bastion.KeyUnbondDelay)
	require.NoError(t, err)
	assert.Equal(t, bastion.InitialUnbondDelay, delay)

	minSelf, err := ps.Get(bastion.KeyMinSelfStake)
	require.NoError(t, err)
	assert.Equal(t, bastion.InitialMinSelfStake, minSelf)
}

func TestMalformedAmount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte("params:\n  minSelfStake: \"not-a-number\"\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
