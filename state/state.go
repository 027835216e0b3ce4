// Copyright (c) 2024 The Bastion developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/kv"
	"github.com/provernet/bastion/stackedmap"
)

const (
	// AccountBucket is the kv bucket holding account records.
	AccountBucket = kv.Bucket("a")
	// StorageBucket is the kv bucket holding storage slots.
	StorageBucket = kv.Bucket("s")
)

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

// Account is the persistent representation of an account.
// RLP encoded objects are stored in the account bucket.
type Account struct {
	Balance *big.Int
}

// IsEmpty returns if the account is regarded empty.
func (a *Account) IsEmpty() bool {
	return a.Balance.Sign() == 0
}

func emptyAccount() *Account {
	return &Account{Balance: &big.Int{}}
}

// storageKey composite key of a storage slot.
type storageKey struct {
	addr bastion.Address
	key  bastion.Bytes32
}

// StorageSlotKey builds the raw kv key of a storage slot.
func StorageSlotKey(addr bastion.Address, key bastion.Bytes32) []byte {
	return append(addr.Bytes(), key[:]...)
}

// State manages the ledger world state, being account balances plus
// per-account storage slots. All mutations are journaled and persisted
// only via Stage/Commit, so state can be reverted to any checkpoint
// taken earlier.
type State struct {
	store kv.Store
	cache map[bastion.Address]*Account // cache of loaded accounts
	sm    *stackedmap.StackedMap       // keeps revisions of state
}

// New create state object.
func New(store kv.Store) *State {
	state := State{
		store: store,
		cache: make(map[bastion.Address]*Account),
	}
	state.sm = stackedmap.New(func(key any) (any, bool, error) {
		return state.cacheGetter(key)
	})
	// the base layer absorbs writes made outside of any checkpoint
	state.sm.Push()
	return &state
}

// cacheGetter implements stackedmap.MapGetter.
func (s *State) cacheGetter(key any) (value any, exist bool, err error) {
	switch k := key.(type) {
	case bastion.Address: // get account
		acc, err := s.loadAccount(k)
		if err != nil {
			return nil, false, err
		}
		return acc, true, nil
	case storageKey: // get storage
		raw, err := s.loadStorage(k)
		if err != nil {
			return nil, false, err
		}
		return raw, true, nil
	}
	panic(fmt.Errorf("unexpected key type %+v", key))
}

// loadAccount loads an account from the cache or the backing store.
// Missing accounts come back empty, never nil.
func (s *State) loadAccount(addr bastion.Address) (*Account, error) {
	if acc, ok := s.cache[addr]; ok {
		return acc, nil
	}
	data, err := AccountBucket.NewGetter(s.store).Get(addr.Bytes())
	if err != nil {
		if !s.store.IsNotFound(err) {
			return nil, err
		}
		acc := emptyAccount()
		s.cache[addr] = acc
		return acc, nil
	}
	var acc Account
	if err := rlp.DecodeBytes(data, &acc); err != nil {
		return nil, err
	}
	s.cache[addr] = &acc
	return &acc, nil
}

func (s *State) loadStorage(k storageKey) (rlp.RawValue, error) {
	data, err := StorageBucket.NewGetter(s.store).Get(StorageSlotKey(k.addr, k.key))
	if err != nil {
		if !s.store.IsNotFound(err) {
			return nil, err
		}
		return rlp.RawValue(nil), nil
	}
	return rlp.RawValue(data), nil
}

func (s *State) getAccount(addr bastion.Address) (*Account, error) {
	v, _, err := s.sm.Get(addr)
	if err != nil {
		return nil, err
	}
	return v.(*Account), nil
}

func (s *State) getAccountCopy(addr bastion.Address) (Account, error) {
	acc, err := s.getAccount(addr)
	if err != nil {
		return Account{}, err
	}
	return *acc, nil
}

func (s *State) updateAccount(addr bastion.Address, acc *Account) {
	s.sm.Put(addr, acc)
}

// GetBalance returns balance for the given address.
func (s *State) GetBalance(addr bastion.Address) (*big.Int, error) {
	acc, err := s.getAccount(addr)
	if err != nil {
		return nil, &Error{err}
	}
	return acc.Balance, nil
}

// SetBalance set balance for the given address.
func (s *State) SetBalance(addr bastion.Address, balance *big.Int) error {
	cpy, err := s.getAccountCopy(addr)
	if err != nil {
		return &Error{err}
	}
	cpy.Balance = balance
	s.updateAccount(addr, &cpy)
	return nil
}

// GetStorage returns storage value for the given address and key.
func (s *State) GetStorage(addr bastion.Address, key bastion.Bytes32) (bastion.Bytes32, error) {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return bastion.Bytes32{}, err
	}
	if len(raw) == 0 {
		return bastion.Bytes32{}, nil
	}
	kind, content, _, err := rlp.Split(raw)
	if err != nil {
		return bastion.Bytes32{}, &Error{err}
	}
	if kind == rlp.List {
		// special case for rlp list, it should be customized storage value
		// return hash of raw data
		return bastion.Blake2b(raw), nil
	}
	return bastion.BytesToBytes32(content), nil
}

// SetStorage set storage value for the given address and key.
func (s *State) SetStorage(addr bastion.Address, key, value bastion.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(addr, key, nil)
		return
	}
	v, _ := rlp.EncodeToBytes(bytes.TrimLeft(value[:], "\x00"))
	s.SetRawStorage(addr, key, v)
}

// GetRawStorage returns storage value in rlp raw for given address and key.
func (s *State) GetRawStorage(addr bastion.Address, key bastion.Bytes32) (rlp.RawValue, error) {
	data, _, err := s.sm.Get(storageKey{addr, key})
	if err != nil {
		return nil, &Error{err}
	}
	return data.(rlp.RawValue), nil
}

// SetRawStorage set storage value in rlp raw.
func (s *State) SetRawStorage(addr bastion.Address, key bastion.Bytes32, raw rlp.RawValue) {
	s.sm.Put(storageKey{addr, key}, raw)
}

// EncodeStorage set storage value encoded by given enc method.
func (s *State) EncodeStorage(addr bastion.Address, key bastion.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage get and decode storage value.
func (s *State) DecodeStorage(addr bastion.Address, key bastion.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo reverts state to the checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(revision)
}

// Stage makes a stage out of the current state ready to be committed.
func (s *State) Stage() *Stage {
	accounts := make(map[bastion.Address]*Account)
	storages := make(map[storageKey]rlp.RawValue)

	s.sm.Journal(func(key, value any) bool {
		switch k := key.(type) {
		case bastion.Address:
			accounts[k] = value.(*Account)
		case storageKey:
			storages[k] = value.(rlp.RawValue)
		}
		return true
	})
	return &Stage{
		store:    s.store,
		accounts: accounts,
		storages: storages,
	}
}
