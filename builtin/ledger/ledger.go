// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/builtin/ledger/pool"
	"github.com/provernet/bastion/builtin/ledger/prover"
	"github.com/provernet/bastion/builtin/ledger/reverts"
	"github.com/provernet/bastion/builtin/ledger/rewards"
	"github.com/provernet/bastion/builtin/ledger/slashing"
	"github.com/provernet/bastion/builtin/ledger/treasury"
	"github.com/provernet/bastion/builtin/ledger/unbonding"
	"github.com/provernet/bastion/builtin/params"
	"github.com/provernet/bastion/builtin/slots"
	"github.com/provernet/bastion/log"
	"github.com/provernet/bastion/state"
)

var logger = log.WithContext("pkg", "ledger")

// SetLogger overrides the package logger.
func SetLogger(l log.Logger) {
	logger = l
}

var bpsDenominator = new(big.Int).SetUint64(uint64(bastion.ScaleMax))

// Ledger is the collateral ledger of the prover network. It owns the
// per-prover collateral pool, the slashing scale, the unbonding queue, the
// reward accrual and the lifecycle records, and is the only mutator of any
// of them. Collateral balances are held on the ledger account and leave it
// only through withdrawals, claims and slashing.
//
// Every public mutating operation is atomic: it opens a state checkpoint
// and reverts it on any error, so a rejected call leaves no partial
// effects. No operation iterates stakers or requests of other callers;
// the only loop anywhere walks the caller's own bounded request list.
type Ledger struct {
	addr     bastion.Address
	treasury bastion.Address
	state    *state.State
	params   *params.Params

	provers     *prover.Service
	pools       *pool.Service
	scales      *slashing.Service
	queues      *unbonding.Service
	rewards     *rewards.Service
	treasurySvc *treasury.Service

	sink   EventSink
	events []*Event
}

// New creates a ledger bound to its account address. The treasury address
// receives slashed value and rounding dust.
func New(addr, treasuryAddr bastion.Address, st *state.State, params *params.Params, charger *slots.Charger) *Ledger {
	sctx := slots.NewContext(addr, st, charger.Charge)
	return &Ledger{
		addr:     addr,
		treasury: treasuryAddr,
		state:    st,
		params:   params,

		provers:     prover.New(sctx),
		pools:       pool.New(sctx),
		scales:      slashing.New(sctx),
		queues:      unbonding.New(sctx),
		rewards:     rewards.New(sctx),
		treasurySvc: treasury.New(sctx),
	}
}

// SetEventSink installs the sink committed events are delivered to.
func (l *Ledger) SetEventSink(sink EventSink) {
	l.sink = sink
}

// Address returns the ledger's account address.
func (l *Ledger) Address() bastion.Address {
	return l.addr
}

//
// Mutating operations
//

// RegisterProver admits a new prover with its bootstrap self-deposit. The
// deposit is priced one-to-one since the fresh pool holds no shares.
func (l *Ledger) RegisterProver(id bastion.Address, selfCollateral *big.Int, commissionBps, now uint32) error {
	return l.run(func() error {
		if selfCollateral == nil || selfCollateral.Sign() <= 0 {
			return reverts.ErrZeroAmount
		}
		minSelf, err := l.params.Get(bastion.KeyMinSelfStake)
		if err != nil {
			return err
		}
		if selfCollateral.Cmp(minSelf) < 0 {
			return reverts.ErrBelowSelfStakeFloor
		}
		if err := l.provers.Register(id, commissionBps, now); err != nil {
			return err
		}
		if err := l.scales.Init(id); err != nil {
			return err
		}
		if err := l.transfer(id, l.addr, selfCollateral); err != nil {
			return err
		}
		if _, err := l.pools.Deposit(id, id, selfCollateral); err != nil {
			return err
		}

		logger.Info("prover registered", "prover", id, "collateral", selfCollateral, "commissionBps", commissionBps)
		l.emit(&Event{
			Kind:   EventProverRegistered,
			Prover: id,
			Staker: id,
			Amount: selfCollateral,
			Aux:    big.NewInt(int64(commissionBps)),
			Tick:   now,
		})
		return nil
	})
}

// Stake deposits value into the prover's pool and issues shares at the
// current exchange rate. Third-party deposits additionally require the
// prover's own collateral to meet the self-stake floor.
func (l *Ledger) Stake(id, staker bastion.Address, value *big.Int, now uint32) (*big.Int, error) {
	var shares *big.Int
	err := l.run(func() error {
		if value == nil || value.Sign() <= 0 {
			return reverts.ErrZeroAmount
		}
		p, err := l.provers.MustGet(id)
		if err != nil {
			return err
		}
		if p.Status != prover.StatusActive {
			return reverts.ErrNotActive
		}
		if staker != id {
			selfValue, err := l.selfCollateral(id)
			if err != nil {
				return err
			}
			minSelf, err := l.params.Get(bastion.KeyMinSelfStake)
			if err != nil {
				return err
			}
			if selfValue.Cmp(minSelf) < 0 {
				return reverts.ErrBelowSelfStakeFloor
			}
		}

		// settle at the pre-deposit share count so the new shares earn
		// nothing retroactively
		pos, err := l.pools.GetPosition(id, staker)
		if err != nil {
			return err
		}
		if err := l.rewards.Settle(id, staker, pos.Shares); err != nil {
			return err
		}

		if err := l.transfer(staker, l.addr, value); err != nil {
			return err
		}
		if shares, err = l.pools.Deposit(id, staker, value); err != nil {
			return err
		}

		l.emit(&Event{
			Kind:   EventStaked,
			Prover: id,
			Staker: staker,
			Amount: value,
			Aux:    shares,
			Tick:   now,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shares, nil
}

// RequestWithdraw burns the shares covering value and files a pending
// withdrawal that matures after the unbonding delay. The amount is recorded
// in raw units, so later slashes shrink the payout without the request ever
// being rewritten. Withdrawing is allowed in every lifecycle state.
func (l *Ledger) RequestWithdraw(id, staker bastion.Address, value *big.Int, now uint32) (uint64, error) {
	var requestID uint64
	err := l.run(func() error {
		var err error
		requestID, err = l.requestWithdraw(id, staker, value, now)
		return err
	})
	if err != nil {
		return 0, err
	}
	return requestID, nil
}

// RequestWithdrawAll files a withdrawal of the staker's entire active
// value. It behaves exactly like RequestWithdraw called with that value.
func (l *Ledger) RequestWithdrawAll(id, staker bastion.Address, now uint32) (uint64, error) {
	var requestID uint64
	err := l.run(func() error {
		pl, err := l.pools.GetPool(id)
		if err != nil {
			return err
		}
		pos, err := l.pools.GetPosition(id, staker)
		if err != nil {
			return err
		}
		value := pl.ValueOfShares(pos.Shares)
		requestID, err = l.requestWithdraw(id, staker, value, now)
		return err
	})
	if err != nil {
		return 0, err
	}
	return requestID, nil
}

func (l *Ledger) requestWithdraw(id, staker bastion.Address, value *big.Int, now uint32) (uint64, error) {
	if value == nil || value.Sign() <= 0 {
		return 0, reverts.ErrZeroAmount
	}
	if _, err := l.provers.MustGet(id); err != nil {
		return 0, err
	}

	pl, err := l.pools.GetPool(id)
	if err != nil {
		return 0, err
	}
	pos, err := l.pools.GetPosition(id, staker)
	if err != nil {
		return 0, err
	}
	activeValue := pl.ValueOfShares(pos.Shares)
	if value.Cmp(activeValue) > 0 {
		return 0, reverts.ErrAmountTooLarge
	}

	// sub-granule requests are rejected unless the whole balance is
	// already below the granule, so slashed-down dust can still exit
	granule, err := l.params.Get(bastion.KeyMinWithdrawGranule)
	if err != nil {
		return 0, err
	}
	if value.Cmp(granule) < 0 && activeValue.Cmp(granule) >= 0 {
		return 0, reverts.ErrBelowGranule
	}

	if err := l.rewards.Settle(id, staker, pos.Shares); err != nil {
		return 0, err
	}
	if _, err := l.pools.Withdraw(id, staker, value); err != nil {
		return 0, err
	}

	scale, err := l.scales.GetScale(id)
	if err != nil {
		return 0, err
	}
	raw := slashing.RawUnits(value, scale)

	// both conversions floor, so the filed amount can fall short of the
	// burned value by a base unit; the shortfall goes to the dust sink
	filed := slashing.Effective(raw, scale)
	if err := l.routeDust(new(big.Int).Sub(value, filed)); err != nil {
		return 0, err
	}

	delay, err := l.params.Get(bastion.KeyUnbondDelay)
	if err != nil {
		return 0, err
	}
	maxPending, err := l.params.Get(bastion.KeyMaxPendingRequests)
	if err != nil {
		return 0, err
	}
	requestID, err := l.queues.Push(id, staker, raw, now+uint32(delay.Uint64()), maxPending.Uint64())
	if err != nil {
		return 0, err
	}

	l.emit(&Event{
		Kind:   EventWithdrawRequested,
		Prover: id,
		Staker: staker,
		Amount: value,
		Aux:    new(big.Int).SetUint64(requestID),
		Tick:   now,
	})

	// the prover's own request may drop its collateral below the floor;
	// evaluated after the emit so the journal orders cause before effect
	if staker == id {
		if err := l.evaluateDeactivation(id, now); err != nil {
			return 0, err
		}
	}
	return requestID, nil
}

// CompleteWithdraw pays out every matured request of the caller at the
// prover's current scale. The gap between the queue total's effective drop
// and the per-request floor payouts goes to the dust sink, keeping
// conservation exact.
func (l *Ledger) CompleteWithdraw(id, staker bastion.Address, now uint32) (*big.Int, error) {
	var paid *big.Int
	err := l.run(func() error {
		if _, err := l.provers.MustGet(id); err != nil {
			return err
		}
		scale, err := l.scales.GetScale(id)
		if err != nil {
			return err
		}
		totalBefore, err := l.queues.TotalRaw(id)
		if err != nil {
			return err
		}

		var rawRemoved *big.Int
		var removed int
		paid, rawRemoved, removed, err = l.queues.CollectDue(id, staker, now, scale)
		if err != nil {
			return err
		}

		totalAfter := new(big.Int).Sub(totalBefore, rawRemoved)
		drop := slashing.Effective(totalBefore, scale)
		drop.Sub(drop, slashing.Effective(totalAfter, scale))
		dust := new(big.Int).Sub(drop, paid)

		if err := l.transfer(l.addr, staker, paid); err != nil {
			return err
		}
		if err := l.routeDust(dust); err != nil {
			return err
		}

		l.emit(&Event{
			Kind:   EventWithdrawCompleted,
			Prover: id,
			Staker: staker,
			Amount: paid,
			Aux:    big.NewInt(int64(removed)),
			Tick:   now,
		})
		return l.evaluateDeactivation(id, now)
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}

// Slash destroys percentBps of the prover's pooled collateral, including
// the in-flight unbonding value, in constant time. Only the slasher role
// may call it; a percentage above the per-call cap is rejected.
func (l *Ledger) Slash(caller, id bastion.Address, percentBps, now uint32) (*big.Int, error) {
	var slashed *big.Int
	err := l.run(func() error {
		if err := l.requireRole(caller, bastion.KeySlasherAddress); err != nil {
			return err
		}
		if _, err := l.provers.MustGet(id); err != nil {
			return err
		}
		if percentBps == 0 {
			return reverts.ErrZeroAmount
		}
		maxBps, err := l.params.Get(bastion.KeyMaxSlashBps)
		if err != nil {
			return err
		}
		if uint64(percentBps) > maxBps.Uint64() {
			return reverts.ErrSlashTooHigh
		}
		slashed, err = l.applySlash(id, percentBps, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return slashed, nil
}

// SlashByAmount destroys collateral worth up to the requested value. The
// derived percentage is clamped to the per-call cap instead of rejected,
// so the actual slashed value may fall short of the request.
func (l *Ledger) SlashByAmount(caller, id bastion.Address, value *big.Int, now uint32) (*big.Int, error) {
	var slashed *big.Int
	err := l.run(func() error {
		if err := l.requireRole(caller, bastion.KeySlasherAddress); err != nil {
			return err
		}
		if _, err := l.provers.MustGet(id); err != nil {
			return err
		}
		if value == nil || value.Sign() <= 0 {
			return reverts.ErrZeroAmount
		}

		pl, err := l.pools.GetPool(id)
		if err != nil {
			return err
		}
		scale, err := l.scales.GetScale(id)
		if err != nil {
			return err
		}
		unbondingValue, err := l.queues.EffectiveTotal(id, scale)
		if err != nil {
			return err
		}
		basis := new(big.Int).Add(pl.Value, unbondingValue)
		if basis.Sign() == 0 {
			return reverts.ErrNoValue
		}

		percent := new(big.Int).Mul(value, bpsDenominator)
		percent.Div(percent, basis)
		maxBps, err := l.params.Get(bastion.KeyMaxSlashBps)
		if err != nil {
			return err
		}
		if percent.Cmp(maxBps) > 0 {
			percent.Set(maxBps)
		}
		if percent.Sign() == 0 {
			return reverts.ErrZeroAmount
		}
		slashed, err = l.applySlash(id, uint32(percent.Uint64()), now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return slashed, nil
}

func (l *Ledger) applySlash(id bastion.Address, percentBps, now uint32) (*big.Int, error) {
	pl, err := l.pools.GetPool(id)
	if err != nil {
		return nil, err
	}
	poolCut := new(big.Int).Mul(pl.Value, big.NewInt(int64(percentBps)))
	poolCut.Div(poolCut, bpsDenominator)

	totalRaw, err := l.queues.TotalRaw(id)
	if err != nil {
		return nil, err
	}

	// one multiplier update reprices every pending request; the cut on
	// the unbonding side is the exact effective delta so not a single
	// base unit leaks
	oldScale, newScale, err := l.scales.ApplyCut(id, percentBps)
	if err != nil {
		return nil, err
	}
	unbondingCut := slashing.Effective(totalRaw, oldScale)
	unbondingCut.Sub(unbondingCut, slashing.Effective(totalRaw, newScale))

	if err := l.pools.SlashValue(id, poolCut); err != nil {
		return nil, err
	}

	slashed := new(big.Int).Add(poolCut, unbondingCut)
	if err := l.treasurySvc.AddSlashed(slashed); err != nil {
		return nil, err
	}
	if err := l.transfer(l.addr, l.treasury, slashed); err != nil {
		return nil, err
	}
	if err := l.evaluateDeactivation(id, now); err != nil {
		return nil, err
	}

	logger.Info("prover slashed", "prover", id, "percentBps", percentBps, "slashed", slashed, "scale", newScale)
	l.emit(&Event{
		Kind:   EventSlashed,
		Prover: id,
		Amount: slashed,
		Aux:    big.NewInt(int64(newScale)),
		Tick:   now,
	})
	return slashed, nil
}

// AddRewards injects reward value for the prover, splitting it between
// commission and the stakers' per-share accumulator. With no shares
// outstanding the whole value becomes commission instead of stranding.
// Only the reward source role may call it.
func (l *Ledger) AddRewards(caller, id bastion.Address, value *big.Int, now uint32) (commission, toStakers *big.Int, err error) {
	err = l.run(func() error {
		if err := l.requireRole(caller, bastion.KeyRewardSourceAddress); err != nil {
			return err
		}
		p, err := l.provers.MustGet(id)
		if err != nil {
			return err
		}
		if value == nil || value.Sign() <= 0 {
			return reverts.ErrZeroAmount
		}

		pl, err := l.pools.GetPool(id)
		if err != nil {
			return err
		}
		if pl.TotalShares.Sign() == 0 {
			commission = new(big.Int).Set(value)
			toStakers = new(big.Int)
		} else {
			commission = new(big.Int).Mul(value, big.NewInt(int64(p.CommissionBps)))
			commission.Div(commission, bpsDenominator)
			toStakers = new(big.Int).Sub(value, commission)
		}

		if err := l.transfer(caller, l.addr, value); err != nil {
			return err
		}
		if commission.Sign() > 0 {
			if err := l.rewards.AddCommission(id, commission); err != nil {
				return err
			}
		}
		if toStakers.Sign() > 0 {
			_, dust, err := l.rewards.Inject(id, toStakers, pl.TotalShares)
			if err != nil {
				return err
			}
			if err := l.routeDust(dust); err != nil {
				return err
			}
		}

		l.emit(&Event{
			Kind:   EventRewardsAdded,
			Prover: id,
			Amount: value,
			Aux:    commission,
			Tick:   now,
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return commission, toStakers, nil
}

// ClaimRewards settles and pays out the staker's accrued rewards.
func (l *Ledger) ClaimRewards(id, staker bastion.Address, now uint32) (*big.Int, error) {
	var paid *big.Int
	err := l.run(func() error {
		if _, err := l.provers.MustGet(id); err != nil {
			return err
		}
		pos, err := l.pools.GetPosition(id, staker)
		if err != nil {
			return err
		}
		if err := l.rewards.Settle(id, staker, pos.Shares); err != nil {
			return err
		}
		if paid, err = l.rewards.CollectPending(id, staker); err != nil {
			return err
		}
		if paid.Sign() == 0 {
			return reverts.ErrNoValue
		}
		if err := l.transfer(l.addr, staker, paid); err != nil {
			return err
		}

		l.emit(&Event{
			Kind:   EventRewardsClaimed,
			Prover: id,
			Staker: staker,
			Amount: paid,
			Tick:   now,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}

// ClaimCommission pays out the prover's accrued commission. Commission is
// untouched by slashing, so the full pre-slash amount remains claimable.
func (l *Ledger) ClaimCommission(caller, id bastion.Address, now uint32) (*big.Int, error) {
	var paid *big.Int
	err := l.run(func() error {
		if caller != id {
			return reverts.ErrUnauthorized
		}
		if _, err := l.provers.MustGet(id); err != nil {
			return err
		}
		var err error
		if paid, err = l.rewards.CollectCommission(id); err != nil {
			return err
		}
		if paid.Sign() == 0 {
			return reverts.ErrNoValue
		}
		if err := l.transfer(l.addr, id, paid); err != nil {
			return err
		}

		l.emit(&Event{
			Kind:   EventCommissionClaimed,
			Prover: id,
			Staker: id,
			Amount: paid,
			Tick:   now,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}

// SetCommissionRate updates the prover's commission for future rewards.
func (l *Ledger) SetCommissionRate(caller, id bastion.Address, commissionBps, now uint32) error {
	return l.run(func() error {
		if caller != id {
			return reverts.ErrUnauthorized
		}
		if err := l.provers.SetCommission(id, commissionBps); err != nil {
			return err
		}
		l.emit(&Event{
			Kind:   EventCommissionChanged,
			Prover: id,
			Aux:    big.NewInt(int64(commissionBps)),
			Tick:   now,
		})
		return nil
	})
}

// Retire exits the prover voluntarily (or administratively). It requires
// the prover's own shares and pending requests to be fully drained, and is
// never entered automatically.
func (l *Ledger) Retire(caller, id bastion.Address, now uint32) error {
	return l.run(func() error {
		executor, err := l.params.GetAddress(bastion.KeyExecutorAddress)
		if err != nil {
			return err
		}
		if caller != id && caller != executor {
			return reverts.ErrUnauthorized
		}
		p, err := l.provers.MustGet(id)
		if err != nil {
			return err
		}
		if p.Status != prover.StatusActive && p.Status != prover.StatusDeactivated {
			return reverts.ErrNotActive
		}

		pos, err := l.pools.GetPosition(id, id)
		if err != nil {
			return err
		}
		pending, err := l.queues.PendingCount(id, id)
		if err != nil {
			return err
		}
		if pos.Shares.Sign() != 0 || pending != 0 {
			return reverts.ErrPositionNotEmpty
		}

		return l.setStatus(id, prover.StatusRetired, now)
	})
}

// Unretire returns a retired prover to service with a fresh self-deposit
// meeting the floor. It is rejected while the scale sits below the
// deactivation threshold.
func (l *Ledger) Unretire(caller, id bastion.Address, value *big.Int, now uint32) error {
	return l.run(func() error {
		if caller != id {
			return reverts.ErrUnauthorized
		}
		p, err := l.provers.MustGet(id)
		if err != nil {
			return err
		}
		if p.Status != prover.StatusRetired {
			return reverts.ErrNotRetired
		}
		scale, err := l.scales.GetScale(id)
		if err != nil {
			return err
		}
		if scale < bastion.DeactivationScaleBps {
			return reverts.ErrInvalidScale
		}
		if value == nil || value.Sign() <= 0 {
			return reverts.ErrZeroAmount
		}
		minSelf, err := l.params.Get(bastion.KeyMinSelfStake)
		if err != nil {
			return err
		}
		if value.Cmp(minSelf) < 0 {
			return reverts.ErrBelowSelfStakeFloor
		}

		if err := l.rewards.Settle(id, id, new(big.Int)); err != nil {
			return err
		}
		if err := l.transfer(id, l.addr, value); err != nil {
			return err
		}
		if _, err := l.pools.Deposit(id, id, value); err != nil {
			return err
		}
		return l.setStatus(id, prover.StatusActive, now)
	})
}

// Deactivate suspends the prover administratively.
func (l *Ledger) Deactivate(caller, id bastion.Address, now uint32) error {
	return l.run(func() error {
		if err := l.requireRole(caller, bastion.KeyExecutorAddress); err != nil {
			return err
		}
		p, err := l.provers.MustGet(id)
		if err != nil {
			return err
		}
		if p.Status != prover.StatusActive {
			return reverts.ErrNotActive
		}
		return l.setStatus(id, prover.StatusDeactivated, now)
	})
}

// Reactivate lifts a deactivation. It is rejected while the scale is still
// below the deactivation threshold or the self-collateral below the floor,
// since the prover would deactivate again on the next evaluation.
func (l *Ledger) Reactivate(caller, id bastion.Address, now uint32) error {
	return l.run(func() error {
		if err := l.requireRole(caller, bastion.KeyExecutorAddress); err != nil {
			return err
		}
		p, err := l.provers.MustGet(id)
		if err != nil {
			return err
		}
		if p.Status != prover.StatusDeactivated {
			return reverts.ErrNotDeactivated
		}
		scale, err := l.scales.GetScale(id)
		if err != nil {
			return err
		}
		if scale < bastion.DeactivationScaleBps {
			return reverts.ErrInvalidScale
		}
		selfValue, err := l.selfCollateral(id)
		if err != nil {
			return err
		}
		minSelf, err := l.params.Get(bastion.KeyMinSelfStake)
		if err != nil {
			return err
		}
		if selfValue.Cmp(minSelf) < 0 {
			return reverts.ErrBelowSelfStakeFloor
		}
		return l.setStatus(id, prover.StatusActive, now)
	})
}

// PrunePosition removes the staker's emptied records with a prover: no
// shares, no pending requests, nothing claimable.
func (l *Ledger) PrunePosition(id, staker bastion.Address) error {
	return l.run(func() error {
		if _, err := l.provers.MustGet(id); err != nil {
			return err
		}
		pos, err := l.pools.GetPosition(id, staker)
		if err != nil {
			return err
		}
		pending, err := l.queues.PendingCount(id, staker)
		if err != nil {
			return err
		}
		claimable, err := l.rewards.Claimable(id, staker, pos.Shares)
		if err != nil {
			return err
		}
		if pos.Shares.Sign() != 0 || pending != 0 || claimable.Sign() != 0 {
			return reverts.ErrPositionNotEmpty
		}

		if err := l.pools.DeletePosition(id, staker); err != nil {
			return err
		}
		if err := l.rewards.DeletePosition(id, staker); err != nil {
			return err
		}
		return l.queues.DeleteQueue(id, staker)
	})
}

// SetParam updates a governance param. Only the executor role may call it;
// role addresses rotate through their param keys the same way.
func (l *Ledger) SetParam(caller bastion.Address, key bastion.Bytes32, value *big.Int) error {
	return l.run(func() error {
		if err := l.requireRole(caller, bastion.KeyExecutorAddress); err != nil {
			return err
		}
		return l.params.Set(key, value)
	})
}

//
// Internals
//

// run executes one atomic operation: checkpoint, do, revert on error.
// Buffered events flush to the sink only after success.
func (l *Ledger) run(fn func() error) error {
	checkpoint := l.state.NewCheckpoint()
	l.events = l.events[:0]
	if err := fn(); err != nil {
		l.state.RevertTo(checkpoint)
		l.events = l.events[:0]
		return err
	}
	if l.sink != nil {
		for _, ev := range l.events {
			l.sink(ev)
		}
	}
	l.events = l.events[:0]
	return nil
}

func (l *Ledger) emit(ev *Event) {
	l.events = append(l.events, ev)
}

// requireRole rejects callers other than the role address stored at key.
// Authorization runs before any other validation.
func (l *Ledger) requireRole(caller bastion.Address, key bastion.Bytes32) error {
	role, err := l.params.GetAddress(key)
	if err != nil {
		return err
	}
	if role.IsZero() || caller != role {
		return reverts.ErrUnauthorized
	}
	return nil
}

// transfer moves collateral between accounts.
func (l *Ledger) transfer(from, to bastion.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	fromBalance, err := l.state.GetBalance(from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return reverts.ErrInsufficientBalance
	}
	if err := l.state.SetBalance(from, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	toBalance, err := l.state.GetBalance(to)
	if err != nil {
		return err
	}
	return l.state.SetBalance(to, new(big.Int).Add(toBalance, amount))
}

// routeDust moves a rounding remainder to the treasury.
func (l *Ledger) routeDust(dust *big.Int) error {
	if dust.Sign() < 0 {
		return errors.New("negative dust")
	}
	if dust.Sign() == 0 {
		return nil
	}
	if err := l.treasurySvc.AddDust(dust); err != nil {
		return err
	}
	return l.transfer(l.addr, l.treasury, dust)
}

// selfCollateral is the current value of the prover's own active shares.
func (l *Ledger) selfCollateral(id bastion.Address) (*big.Int, error) {
	pl, err := l.pools.GetPool(id)
	if err != nil {
		return nil, err
	}
	pos, err := l.pools.GetPosition(id, id)
	if err != nil {
		return nil, err
	}
	return pl.ValueOfShares(pos.Shares), nil
}

// evaluateDeactivation flips an Active prover to Deactivated when its scale
// has dropped below the threshold or its self-collateral below the floor.
// A scale exactly at the threshold stays Active.
func (l *Ledger) evaluateDeactivation(id bastion.Address, now uint32) error {
	p, err := l.provers.Get(id)
	if err != nil {
		return err
	}
	if p.Status != prover.StatusActive {
		return nil
	}

	scale, err := l.scales.GetScale(id)
	if err != nil {
		return err
	}
	deactivate := scale < bastion.DeactivationScaleBps
	if !deactivate {
		selfValue, err := l.selfCollateral(id)
		if err != nil {
			return err
		}
		minSelf, err := l.params.Get(bastion.KeyMinSelfStake)
		if err != nil {
			return err
		}
		deactivate = selfValue.Cmp(minSelf) < 0
	}
	if !deactivate {
		return nil
	}

	logger.Info("prover auto-deactivated", "prover", id, "scale", scale)
	return l.setStatus(id, prover.StatusDeactivated, now)
}

func (l *Ledger) setStatus(id bastion.Address, status prover.Status, now uint32) error {
	if err := l.provers.SetStatus(id, status); err != nil {
		return err
	}
	l.emit(&Event{
		Kind:   EventStatusChanged,
		Prover: id,
		Aux:    big.NewInt(int64(status)),
		Tick:   now,
	})
	return nil
}
