// Copyright (c) 2024 The Bastion developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/kv"
)

// Stage abstracts the changes collected from a state journal,
// to be committed to the backing store in one batch.
type Stage struct {
	store    kv.Store
	accounts map[bastion.Address]*Account
	storages map[storageKey]rlp.RawValue
}

// Len returns the number of dirty entries staged.
func (stg *Stage) Len() int {
	return len(stg.accounts) + len(stg.storages)
}

// Commit commits the staged changes atomically.
func (stg *Stage) Commit() error {
	bulk := stg.store.Bulk()
	aput := AccountBucket.NewPutter(bulk)
	sput := StorageBucket.NewPutter(bulk)

	for addr, acc := range stg.accounts {
		if acc.IsEmpty() {
			if err := aput.Delete(addr.Bytes()); err != nil {
				return &Error{err}
			}
			continue
		}
		data, err := rlp.EncodeToBytes(acc)
		if err != nil {
			return &Error{err}
		}
		if err := aput.Put(addr.Bytes(), data); err != nil {
			return &Error{err}
		}
	}

	for k, raw := range stg.storages {
		slot := StorageSlotKey(k.addr, k.key)
		if len(raw) == 0 {
			if err := sput.Delete(slot); err != nil {
				return &Error{err}
			}
			continue
		}
		if err := sput.Put(slot, raw); err != nil {
			return &Error{err}
		}
	}

	if err := bulk.Write(); err != nil {
		return &Error{err}
	}
	metricStageCommitCounter().Add(1)
	return nil
}
