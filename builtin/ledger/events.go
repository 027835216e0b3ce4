// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"

	"github.com/provernet/bastion/bastion"
)

// EventKind names a ledger event.
type EventKind string

const (
	EventProverRegistered  EventKind = "prover-registered"
	EventStaked            EventKind = "staked"
	EventWithdrawRequested EventKind = "withdraw-requested"
	EventWithdrawCompleted EventKind = "withdraw-completed"
	EventSlashed           EventKind = "slashed"
	EventRewardsAdded      EventKind = "rewards-added"
	EventRewardsClaimed    EventKind = "rewards-claimed"
	EventCommissionClaimed EventKind = "commission-claimed"
	EventCommissionChanged EventKind = "commission-changed"
	EventStatusChanged     EventKind = "status-changed"
)

// Event is one state change of the ledger. Events are delivered to the
// sink only after the whole operation has committed, never for reverted
// operations. The meaning of Amount and Aux depends on the kind:
//
//	prover-registered   self collateral, commission bps
//	staked              deposited value, shares issued
//	withdraw-requested  requested value, request id
//	withdraw-completed  value paid, requests removed
//	slashed             value slashed, new scale bps
//	rewards-added       injected value, commission cut
//	rewards-claimed     value paid, -
//	commission-claimed  value paid, -
//	commission-changed  -, new commission bps
//	status-changed      -, new status
type Event struct {
	Kind   EventKind
	Prover bastion.Address
	Staker bastion.Address
	Amount *big.Int
	Aux    *big.Int
	Tick   uint32
}

// EventSink receives committed ledger events.
type EventSink func(*Event)
