// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slots

import (
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/lvldb"
	"github.com/provernet/bastion/state"
	"github.com/provernet/bastion/test/datagen"
)

type testRecord struct {
	Field1 uint64
	Field2 uint64
	Addr1  bastion.Address
	Bytes1 bastion.Bytes32
}

// bigRecord spans multiple storage words.
type bigRecord struct {
	A bastion.Bytes32
	B bastion.Bytes32
	C bastion.Bytes32
}

// newTestContext returns a fresh Context over an in-memory store.
func newTestContext() *Context {
	store, _ := lvldb.NewMem()
	st := state.New(store)
	charger := NewCharger()
	return NewContext(bastion.Address{1}, st, charger.Charge)
}

func setupMapping[V any]() (*Charger, *Mapping[bastion.Bytes32, V]) {
	store, _ := lvldb.NewMem()
	st := state.New(store)
	charger := NewCharger()
	ctx := NewContext(bastion.Address{1}, st, charger.Charge)
	return charger, NewMapping[bastion.Bytes32, V](ctx, bastion.Bytes32{1})
}

func newRandomRecord() *testRecord {
	return &testRecord{
		Field1: 100,
		Field2: 200,
		Addr1:  datagen.RandAddress(),
		Bytes1: datagen.RandomHash(),
	}
}

func TestMappingSetGetStructPointer(t *testing.T) {
	charger, mapping := setupMapping[*testRecord]()
	key := datagen.RandomHash()
	value := newRandomRecord()

	t.Run("set new value charges set cost", func(t *testing.T) {
		require.NoError(t, mapping.Set(key, value, true))
		// 59 bytes RLP -> 2 words
		assert.Equal(t, 2*bastion.SstoreSetCost, charger.TotalCost())
	})

	t.Run("get existing value charges load cost and returns value", func(t *testing.T) {
		charger := NewCharger()
		mapping.context.charge = charger.Charge

		got, err := mapping.Get(key)
		require.NoError(t, err)
		assert.Equal(t, value, got)
		assert.Equal(t, 2*bastion.SloadCost, charger.TotalCost())
	})

	t.Run("get missing key allocates zero value", func(t *testing.T) {
		got, err := mapping.Get(datagen.RandomHash())
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, &testRecord{}, got)
	})

	t.Run("overwrite with newValue=false charges reset cost", func(t *testing.T) {
		charger := NewCharger()
		mapping.context.charge = charger.Charge

		require.NoError(t, mapping.Set(key, newRandomRecord(), false))
		assert.Equal(t, 2*bastion.SstoreResetCost, charger.TotalCost())
	})

	t.Run("delete clears the entry", func(t *testing.T) {
		require.NoError(t, mapping.Delete(key))
		got, err := mapping.Get(key)
		require.NoError(t, err)
		assert.Equal(t, &testRecord{}, got)
	})
}

func TestMappingSetGetAddressValue(t *testing.T) {
	charger, mapping := setupMapping[bastion.Address]()
	key := datagen.RandomHash()
	addr := datagen.RandAddress()

	t.Run("set non-zero address charges set cost", func(t *testing.T) {
		require.NoError(t, mapping.Set(key, addr, true))
		assert.Equal(t, bastion.SstoreSetCost, charger.TotalCost())
	})

	t.Run("get returns stored address", func(t *testing.T) {
		got, err := mapping.Get(key)
		require.NoError(t, err)
		assert.Equal(t, addr, got)
	})

	t.Run("get missing key returns zero address free of charge", func(t *testing.T) {
		charger := NewCharger()
		mapping.context.charge = charger.Charge

		got, err := mapping.Get(datagen.RandomHash())
		require.NoError(t, err)
		assert.Equal(t, bastion.Address{}, got)
		assert.Equal(t, uint64(0), charger.TotalCost())
	})
}

func TestMappingMultiWordValue(t *testing.T) {
	charger, mapping := setupMapping[*bigRecord]()
	key := datagen.RandomHash()
	value := &bigRecord{
		A: datagen.RandomHash(),
		B: datagen.RandomHash(),
		C: datagen.RandomHash(),
	}

	require.NoError(t, mapping.Set(key, value, true))
	// 3x 32-byte fields RLP encode into 101 bytes -> 4 words
	assert.Equal(t, 4*bastion.SstoreSetCost, charger.TotalCost())

	charger2 := NewCharger()
	mapping.context.charge = charger2.Charge

	got, err := mapping.Get(key)
	require.NoError(t, err)
	assert.Equal(t, value, got)
	assert.Equal(t, 4*bastion.SloadCost, charger2.TotalCost())
}

func TestMappingCorruptValue(t *testing.T) {
	ctx := newTestContext()
	basePos := bastion.BytesToBytes32([]byte("base"))
	m := NewMapping[bastion.Address, bastion.Address](ctx, basePos)

	key := bastion.BytesToAddress([]byte("k"))
	slot := bastion.Blake2b(key.Bytes(), basePos.Bytes())
	ctx.State().SetRawStorage(ctx.Address(), slot, rlp.RawValue{0xFF})

	val, err := m.Get(key)
	assert.Error(t, err)
	assert.Equal(t, bastion.Address{}, val)
}
