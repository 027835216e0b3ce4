// Copyright (c) 2024 The Bastion developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/lvldb"
)

func TestStageCommit(t *testing.T) {
	store, err := lvldb.NewMem()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	stater := NewStater(store)
	st := stater.NewState()

	addr := bastion.BytesToAddress([]byte("addr"))
	balance := big.NewInt(100)
	storage := map[bastion.Bytes32]bastion.Bytes32{
		bastion.BytesToBytes32([]byte("s1")): bastion.BytesToBytes32([]byte("v1")),
		bastion.BytesToBytes32([]byte("s2")): bastion.BytesToBytes32([]byte("v2")),
	}

	assert.Nil(t, st.SetBalance(addr, balance))
	for k, v := range storage {
		st.SetStorage(addr, k, v)
	}

	stage := st.Stage()
	assert.True(t, stage.Len() > 0)
	assert.Nil(t, stage.Commit())

	// a fresh state sees committed values
	st2 := stater.NewState()
	assert.Equal(t, M(balance, nil), M(st2.GetBalance(addr)))
	for k, v := range storage {
		assert.Equal(t, M(v, nil), M(st2.GetStorage(addr, k)))
	}
}

func TestStageCommitDeletesEmpty(t *testing.T) {
	store, err := lvldb.NewMem()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	stater := NewStater(store)

	addr := bastion.BytesToAddress([]byte("addr"))
	skey := bastion.BytesToBytes32([]byte("key"))

	st := stater.NewState()
	assert.Nil(t, st.SetBalance(addr, big.NewInt(7)))
	st.SetStorage(addr, skey, bastion.BytesToBytes32([]byte("v")))
	assert.Nil(t, st.Stage().Commit())

	// zero out and commit again
	st = stater.NewState()
	assert.Nil(t, st.SetBalance(addr, &big.Int{}))
	st.SetStorage(addr, skey, bastion.Bytes32{})
	assert.Nil(t, st.Stage().Commit())

	// the underlying slots are gone
	has, err := store.Has(append([]byte(AccountBucket), addr.Bytes()...))
	assert.Nil(t, err)
	assert.False(t, has)

	st = stater.NewState()
	assert.Equal(t, M(&big.Int{}, nil), M(st.GetBalance(addr)))
	assert.Equal(t, M(bastion.Bytes32{}, nil), M(st.GetStorage(addr, skey)))
}

func TestStagePendingChangesInvisible(t *testing.T) {
	store, err := lvldb.NewMem()
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	stater := NewStater(store)

	addr := bastion.BytesToAddress([]byte("addr"))

	st := stater.NewState()
	assert.Nil(t, st.SetBalance(addr, big.NewInt(1)))

	// not committed, a second state must not see it
	st2 := stater.NewState()
	assert.Equal(t, M(&big.Int{}, nil), M(st2.GetBalance(addr)))
}
