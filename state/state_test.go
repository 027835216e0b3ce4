// Copyright (c) 2024 The Bastion developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"

	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/lvldb"
)

func M(a ...any) []any {
	return a
}

func newTestState(t *testing.T) *State {
	store, err := lvldb.NewMem()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return New(store)
}

func TestStateReadWrite(t *testing.T) {
	st := newTestState(t)

	addr := bastion.BytesToAddress([]byte("addr"))
	skey := bastion.BytesToBytes32([]byte("key"))
	sval := bastion.BytesToBytes32([]byte("value"))

	assert.Equal(t, M(&big.Int{}, nil), M(st.GetBalance(addr)))
	assert.Equal(t, M(bastion.Bytes32{}, nil), M(st.GetStorage(addr, skey)))

	assert.Nil(t, st.SetBalance(addr, big.NewInt(10)))
	st.SetStorage(addr, skey, sval)

	assert.Equal(t, M(big.NewInt(10), nil), M(st.GetBalance(addr)))
	assert.Equal(t, M(sval, nil), M(st.GetStorage(addr, skey)))

	// clearing sets raw storage to empty
	st.SetStorage(addr, skey, bastion.Bytes32{})
	assert.Equal(t, M(bastion.Bytes32{}, nil), M(st.GetStorage(addr, skey)))
	assert.Equal(t, M(rlp.RawValue(nil), nil), M(st.GetRawStorage(addr, skey)))
}

func TestStateRevert(t *testing.T) {
	st := newTestState(t)

	addr := bastion.BytesToAddress([]byte("addr"))
	skey := bastion.BytesToBytes32([]byte("key"))
	sval := bastion.BytesToBytes32([]byte("value"))

	values := []struct {
		balance *big.Int
		sval    bastion.Bytes32
	}{
		{big.NewInt(10), bastion.BytesToBytes32([]byte("v1"))},
		{big.NewInt(20), bastion.BytesToBytes32([]byte("v2"))},
		{big.NewInt(30), sval},
	}

	var chk int
	for _, v := range values {
		chk = st.NewCheckpoint()
		assert.Nil(t, st.SetBalance(addr, v.balance))
		st.SetStorage(addr, skey, v.sval)
	}

	for i := range values {
		v := values[len(values)-i-1]
		assert.Equal(t, M(v.balance, nil), M(st.GetBalance(addr)))
		assert.Equal(t, M(v.sval, nil), M(st.GetStorage(addr, skey)))
		st.RevertTo(chk)
		chk--
	}

	assert.Equal(t, M(&big.Int{}, nil), M(st.GetBalance(addr)))
	assert.Equal(t, M(bastion.Bytes32{}, nil), M(st.GetStorage(addr, skey)))
}

func TestStateEncodeDecodeStorage(t *testing.T) {
	st := newTestState(t)

	addr := bastion.BytesToAddress([]byte("addr"))
	skey := bastion.BytesToBytes32([]byte("key"))

	type rec struct {
		A uint64
		B []byte
	}
	want := rec{42, []byte("data")}

	err := st.EncodeStorage(addr, skey, func() ([]byte, error) {
		return rlp.EncodeToBytes(&want)
	})
	assert.Nil(t, err)

	var got rec
	err = st.DecodeStorage(addr, skey, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &got)
	})
	assert.Nil(t, err)
	assert.Equal(t, want, got)
}
