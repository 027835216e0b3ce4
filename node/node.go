// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package node hosts the ledger on a backing store. It serializes all
// operations, commits state after each successful one, journals committed
// events and republishes them to subscribers.
package node

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	lru "github.com/hashicorp/golang-lru"

	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/builtin"
	"github.com/provernet/bastion/builtin/ledger"
	"github.com/provernet/bastion/builtin/slots"
	"github.com/provernet/bastion/eventdb"
	"github.com/provernet/bastion/kv"
	"github.com/provernet/bastion/log"
	"github.com/provernet/bastion/state"
)

var logger = log.WithContext("pkg", "node")

// Node owns the ledger state. All operations hold its lock, so callers from
// any goroutine observe a single serial history. Each successful operation
// is committed to the store before the call returns; events of committed
// operations go to the journal and the feed.
type Node struct {
	mu      sync.Mutex
	state   *state.State
	ledger  *ledger.Ledger
	charger *slots.Charger
	journal *eventdb.EventDB
	now     func() uint32

	// prover summaries are tick-independent, so they stay valid until the
	// next mutation purges them
	summaries *lru.Cache

	feed  event.Feed
	scope event.SubscriptionScope
}

// New creates a node on the store. The journal may be nil to disable event
// journaling. The clock reports the current host tick; nil defaults to unix
// seconds.
func New(store kv.Store, journal *eventdb.EventDB, clock func() uint32) *Node {
	if clock == nil {
		clock = func() uint32 { return uint32(time.Now().Unix()) }
	}
	st := state.New(store)
	charger := slots.NewCharger()
	summaries, _ := lru.New(1024)
	n := &Node{
		state:     st,
		ledger:    builtin.Ledger.WithState(st, charger),
		charger:   charger,
		journal:   journal,
		now:       clock,
		summaries: summaries,
	}
	n.ledger.SetEventSink(n.publish)
	return n
}

// Close terminates all event subscriptions.
func (n *Node) Close() {
	n.scope.Close()
}

// SubscribeEvents registers a channel to receive committed ledger events.
func (n *Node) SubscribeEvents(ch chan *ledger.Event) event.Subscription {
	return n.scope.Track(n.feed.Subscribe(ch))
}

// Now returns the current host tick.
func (n *Node) Now() uint32 {
	return n.now()
}

// StorageOps returns the cumulative storage op count, for diagnostics.
func (n *Node) StorageOps() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.charger.Ops()
}

func (n *Node) publish(ev *ledger.Event) {
	if n.journal != nil {
		if err := n.journal.Append(ev); err != nil {
			logger.Warn("failed to journal event", "kind", ev.Kind, "err", err)
		}
	}
	n.feed.Send(ev)
}

// do runs one ledger operation under the lock and commits on success.
func (n *Node) do(fn func(now uint32) error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := fn(n.now()); err != nil {
		return err
	}
	n.summaries.Purge()
	return n.state.Stage().Commit()
}

// view runs a read under the lock.
func (n *Node) view(fn func() error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return fn()
}

//
// Operations
//

func (n *Node) RegisterProver(id bastion.Address, collateral *big.Int, commissionBps uint32) error {
	return n.do(func(now uint32) error {
		return n.ledger.RegisterProver(id, collateral, commissionBps, now)
	})
}

func (n *Node) Stake(id, staker bastion.Address, value *big.Int) (shares *big.Int, err error) {
	err = n.do(func(now uint32) error {
		shares, err = n.ledger.Stake(id, staker, value, now)
		return err
	})
	return
}

func (n *Node) RequestWithdraw(id, staker bastion.Address, value *big.Int) (requestID uint64, err error) {
	err = n.do(func(now uint32) error {
		requestID, err = n.ledger.RequestWithdraw(id, staker, value, now)
		return err
	})
	return
}

func (n *Node) RequestWithdrawAll(id, staker bastion.Address) (requestID uint64, err error) {
	err = n.do(func(now uint32) error {
		requestID, err = n.ledger.RequestWithdrawAll(id, staker, now)
		return err
	})
	return
}

func (n *Node) CompleteWithdraw(id, staker bastion.Address) (paid *big.Int, err error) {
	err = n.do(func(now uint32) error {
		paid, err = n.ledger.CompleteWithdraw(id, staker, now)
		return err
	})
	return
}

func (n *Node) Slash(caller, id bastion.Address, percentBps uint32) (slashed *big.Int, err error) {
	err = n.do(func(now uint32) error {
		slashed, err = n.ledger.Slash(caller, id, percentBps, now)
		return err
	})
	return
}

func (n *Node) SlashByAmount(caller, id bastion.Address, value *big.Int) (slashed *big.Int, err error) {
	err = n.do(func(now uint32) error {
		slashed, err = n.ledger.SlashByAmount(caller, id, value, now)
		return err
	})
	return
}

func (n *Node) AddRewards(caller, id bastion.Address, value *big.Int) (commission, toStakers *big.Int, err error) {
	err = n.do(func(now uint32) error {
		commission, toStakers, err = n.ledger.AddRewards(caller, id, value, now)
		return err
	})
	return
}

func (n *Node) ClaimRewards(id, staker bastion.Address) (paid *big.Int, err error) {
	err = n.do(func(now uint32) error {
		paid, err = n.ledger.ClaimRewards(id, staker, now)
		return err
	})
	return
}

func (n *Node) ClaimCommission(caller, id bastion.Address) (paid *big.Int, err error) {
	err = n.do(func(now uint32) error {
		paid, err = n.ledger.ClaimCommission(caller, id, now)
		return err
	})
	return
}

func (n *Node) SetCommissionRate(caller, id bastion.Address, commissionBps uint32) error {
	return n.do(func(now uint32) error {
		return n.ledger.SetCommissionRate(caller, id, commissionBps, now)
	})
}

func (n *Node) Retire(caller, id bastion.Address) error {
	return n.do(func(now uint32) error {
		return n.ledger.Retire(caller, id, now)
	})
}

func (n *Node) Unretire(caller, id bastion.Address, value *big.Int) error {
	return n.do(func(now uint32) error {
		return n.ledger.Unretire(caller, id, value, now)
	})
}

func (n *Node) Deactivate(caller, id bastion.Address) error {
	return n.do(func(now uint32) error {
		return n.ledger.Deactivate(caller, id, now)
	})
}

func (n *Node) Reactivate(caller, id bastion.Address) error {
	return n.do(func(now uint32) error {
		return n.ledger.Reactivate(caller, id, now)
	})
}

func (n *Node) PrunePosition(id, staker bastion.Address) error {
	return n.do(func(_ uint32) error {
		return n.ledger.PrunePosition(id, staker)
	})
}

func (n *Node) SetParam(caller bastion.Address, key bastion.Bytes32, value *big.Int) error {
	return n.do(func(_ uint32) error {
		return n.ledger.SetParam(caller, key, value)
	})
}

// Fund credits an account balance directly. Intended for dev mode where no
// external settlement feeds the store.
func (n *Node) Fund(addr bastion.Address, value *big.Int) error {
	return n.do(func(_ uint32) error {
		balance, err := n.state.GetBalance(addr)
		if err != nil {
			return err
		}
		return n.state.SetBalance(addr, new(big.Int).Add(balance, value))
	})
}

//
// Views
//

func (n *Node) Prover(id bastion.Address) (summary *ledger.ProverSummary, err error) {
	err = n.view(func() error {
		if cached, ok := n.summaries.Get(id); ok {
			summary = cached.(*ledger.ProverSummary)
			return nil
		}
		summary, err = n.ledger.GetProverSummary(id)
		if err == nil {
			n.summaries.Add(id, summary)
		}
		return err
	})
	return
}

// Provers lists the summaries of all registered provers in registration
// order.
func (n *Node) Provers() (summaries []*ledger.ProverSummary, err error) {
	err = n.view(func() error {
		id, err := n.ledger.FirstProver()
		if err != nil {
			return err
		}
		for !id.IsZero() {
			summary, err := n.ledger.GetProverSummary(id)
			if err != nil {
				return err
			}
			summaries = append(summaries, summary)
			if id, err = n.ledger.NextProver(id); err != nil {
				return err
			}
		}
		return nil
	})
	return
}

func (n *Node) ProverCount() (count *big.Int, err error) {
	err = n.view(func() error {
		count, err = n.ledger.ProverCount()
		return err
	})
	return
}

func (n *Node) Position(id, staker bastion.Address) (summary *ledger.StakeSummary, err error) {
	err = n.view(func() error {
		summary, err = n.ledger.GetStakeSummary(id, staker)
		return err
	})
	return
}

func (n *Node) Requests(id, staker bastion.Address) (details []*ledger.RequestDetail, err error) {
	err = n.view(func() error {
		details, err = n.ledger.GetRequests(id, staker, n.now())
		return err
	})
	return
}

func (n *Node) Treasury() (summary *ledger.TreasurySummary, err error) {
	err = n.view(func() error {
		summary, err = n.ledger.GetTreasurySummary()
		return err
	})
	return
}

func (n *Node) Balance(addr bastion.Address) (balance *big.Int, err error) {
	err = n.view(func() error {
		balance, err = n.state.GetBalance(addr)
		return err
	})
	return
}
