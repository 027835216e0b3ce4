// Copyright (c) 2024 The Bastion developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import "github.com/provernet/bastion/kv"

// Stater is the state creator on top of a kv store.
type Stater struct {
	store kv.Store
}

// NewStater create a stater instance.
func NewStater(store kv.Store) *Stater {
	return &Stater{store}
}

// NewState create a fresh state on top of the backing store.
// Journaled but uncommitted changes of previously created states are invisible.
func (st *Stater) NewState() *State {
	return New(st.store)
}
