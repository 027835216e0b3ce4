// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package linkedlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/builtin/slots"
	"github.com/provernet/bastion/lvldb"
	"github.com/provernet/bastion/state"
	"github.com/provernet/bastion/test/datagen"
)

func newTestList() *LinkedList {
	store, _ := lvldb.NewMem()
	st := state.New(store)
	charger := slots.NewCharger()
	sctx := slots.NewContext(bastion.Address{1}, st, charger.Charge)

	return New(
		sctx,
		bastion.BytesToBytes32([]byte("list-head")),
		bastion.BytesToBytes32([]byte("list-tail")),
		bastion.BytesToBytes32([]byte("list-count")),
	)
}

func TestEmptyList(t *testing.T) {
	list := newTestList()

	head, err := list.Head()
	require.NoError(t, err)
	assert.True(t, head.IsZero())

	count, err := list.Len()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count.Uint64())

	// removing an address that was never added is a no-op
	require.NoError(t, list.Remove(datagen.RandAddress()))
	count, err = list.Len()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count.Uint64())
}

func TestAddKeepsInsertionOrder(t *testing.T) {
	list := newTestList()

	entries := make([]bastion.Address, 0, 5)
	for range 5 {
		addr := datagen.RandAddress()
		entries = append(entries, addr)
		require.NoError(t, list.Add(addr))
	}

	count, err := list.Len()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), count.Uint64())

	var walked []bastion.Address
	require.NoError(t, list.Iter(func(addr bastion.Address) error {
		walked = append(walked, addr)
		return nil
	}))
	assert.Equal(t, entries, walked)

	head, err := list.Head()
	require.NoError(t, err)
	assert.Equal(t, entries[0], head)

	second, err := list.Next(entries[0])
	require.NoError(t, err)
	assert.Equal(t, entries[1], second)
}

func TestRemove(t *testing.T) {
	list := newTestList()

	a := bastion.BytesToAddress([]byte("a"))
	b := bastion.BytesToAddress([]byte("b"))
	c := bastion.BytesToAddress([]byte("c"))
	for _, addr := range []bastion.Address{a, b, c} {
		require.NoError(t, list.Add(addr))
	}

	// remove the middle entry
	require.NoError(t, list.Remove(b))

	var walked []bastion.Address
	require.NoError(t, list.Iter(func(addr bastion.Address) error {
		walked = append(walked, addr)
		return nil
	}))
	assert.Equal(t, []bastion.Address{a, c}, walked)

	next, err := list.Next(a)
	require.NoError(t, err)
	assert.Equal(t, c, next)

	// remove the head
	require.NoError(t, list.Remove(a))
	head, err := list.Head()
	require.NoError(t, err)
	assert.Equal(t, c, head)

	// remove the last entry
	require.NoError(t, list.Remove(c))
	head, err = list.Head()
	require.NoError(t, err)
	assert.True(t, head.IsZero())

	count, err := list.Len()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count.Uint64())
}

func TestReAddAfterRemove(t *testing.T) {
	list := newTestList()

	a := bastion.BytesToAddress([]byte("a"))
	b := bastion.BytesToAddress([]byte("b"))

	require.NoError(t, list.Add(a))
	require.NoError(t, list.Add(b))
	require.NoError(t, list.Remove(a))
	require.NoError(t, list.Add(a))

	var walked []bastion.Address
	require.NoError(t, list.Iter(func(addr bastion.Address) error {
		walked = append(walked, addr)
		return nil
	}))
	assert.Equal(t, []bastion.Address{b, a}, walked)
}
