// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slots

import (
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/provernet/bastion/bastion"
)

type Key interface {
	Bytes() []byte
}

// Mapping is a key/value storage abstraction over the ledger state.
// Values are RLP encoded; each entry lives at Blake2b(key, basePos).
type Mapping[K Key, V any] struct {
	context *Context
	basePos bastion.Bytes32
}

func NewMapping[K Key, V any](context *Context, pos bastion.Bytes32) *Mapping[K, V] {
	return &Mapping[K, V]{context: context, basePos: pos}
}

func (m *Mapping[K, V]) Get(key K) (value V, err error) {
	position := bastion.Blake2b(key.Bytes(), m.basePos.Bytes())
	err = m.context.state.DecodeStorage(m.context.address, position, func(raw []byte) error {
		if reflect.ValueOf(value).Kind() == reflect.Ptr {
			value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(V)
		}
		if len(raw) == 0 {
			return nil
		}
		words := (uint64(len(raw)) + 31) / 32
		m.context.UseCost(words * bastion.SloadCost)
		return rlp.DecodeBytes(raw, &value)
	})
	return
}

func (m *Mapping[K, V]) Set(key K, value V, newValue bool) error {
	position := bastion.Blake2b(key.Bytes(), m.basePos.Bytes())
	return m.context.state.EncodeStorage(m.context.address, position, func() ([]byte, error) {
		val, err := rlp.EncodeToBytes(value)
		if err != nil {
			return nil, err
		}
		words := (uint64(len(val)) + 31) / 32
		if newValue {
			m.context.UseCost(words * bastion.SstoreSetCost)
		} else {
			m.context.UseCost(words * bastion.SstoreResetCost)
		}
		return val, nil
	})
}

// Delete clears the entry, releasing its storage slot on commit.
func (m *Mapping[K, V]) Delete(key K) error {
	position := bastion.Blake2b(key.Bytes(), m.basePos.Bytes())
	return m.context.state.EncodeStorage(m.context.address, position, func() ([]byte, error) {
		m.context.UseCost(bastion.SstoreResetCost)
		return nil, nil
	})
}
