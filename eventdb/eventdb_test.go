// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provernet/bastion/builtin/ledger"
	"github.com/provernet/bastion/test/datagen"
)

func TestAppendAndQuery(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	proverA := datagen.RandAddress()
	proverB := datagen.RandAddress()
	staker := datagen.RandAddress()

	events := []*ledger.Event{
		{Kind: ledger.EventProverRegistered, Prover: proverA, Staker: proverA, Amount: big.NewInt(100), Tick: 1},
		{Kind: ledger.EventStaked, Prover: proverA, Staker: staker, Amount: big.NewInt(50), Aux: big.NewInt(50), Tick: 2},
		{Kind: ledger.EventSlashed, Prover: proverA, Amount: big.NewInt(15), Aux: big.NewInt(9000), Tick: 3},
		{Kind: ledger.EventProverRegistered, Prover: proverB, Staker: proverB, Amount: big.NewInt(200), Tick: 4},
	}
	for _, ev := range events {
		require.NoError(t, db.Append(ev))
	}

	// all, in sequence order
	entries, err := db.Query(nil)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, uint64(1), entries[0].Seq)
	assert.Equal(t, ledger.EventProverRegistered, entries[0].Kind)
	assert.Equal(t, big.NewInt(100), entries[0].Amount)

	// by prover
	entries, err = db.Query(&Filter{Prover: &proverA})
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	// by kind, descending
	kind := ledger.EventProverRegistered
	entries, err = db.Query(&Filter{Kind: &kind, Order: DESC})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, proverB, entries[0].Prover)

	// tick range
	from, to := uint32(2), uint32(3)
	entries, err = db.Query(&Filter{FromTick: &from, ToTick: &to})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	// pagination
	entries, err = db.Query(&Filter{Offset: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(2), entries[0].Seq)
}

func TestQueryEmpty(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	entries, err := db.Query(&Filter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLargeAmountsRoundTrip(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	amount, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.NoError(t, db.Append(&ledger.Event{
		Kind:   ledger.EventRewardsAdded,
		Prover: datagen.RandAddress(),
		Amount: amount,
		Tick:   9,
	}))

	entries, err := db.Query(nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, amount, entries[0].Amount)
}
