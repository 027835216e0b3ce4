// Copyright (c) 2024 The Bastion developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package state manages account balances and storage slots.
// It follows the flow as below:
//
//	          o
//	          |
//	 [ revertable state ]
//	          |
//	   [ stacked map ] -> [ journal ] -> [ playback(staging) ] -> [ kv store ]
//	          |
//	  [ account cache ]
//	          |
//	 [ read-only store ]
//
// Every mutating ledger operation runs between a checkpoint and either a
// revert or a commit, so a failed operation leaves no partial effects.
package state
