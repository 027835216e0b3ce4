// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ledger

import (
	"fmt"
	"math/big"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/builtin/ledger/reverts"
)

// conservationTracker checks the value identity after every operation:
// pool + unbonding + commission + outstanding + treasury delta must equal
// deposits + rewards - payouts, to the base unit.
type conservationTracker struct {
	env      *testEnv
	id       bastion.Address
	deposits *big.Int
	rewards  *big.Int
	paidOut  *big.Int
}

func newConservationTracker(env *testEnv, id bastion.Address) *conservationTracker {
	return &conservationTracker{
		env:      env,
		id:       id,
		deposits: new(big.Int),
		rewards:  new(big.Int),
		paidOut:  new(big.Int),
	}
}

func (c *conservationTracker) check(t *testing.T) {
	t.Helper()
	total, err := c.env.ledger.conservationTotal(c.id)
	require.NoError(t, err)
	treasury, err := c.env.ledger.GetTreasurySummary()
	require.NoError(t, err)

	lhs := new(big.Int).Add(total, treasury.Balance)
	rhs := new(big.Int).Add(c.deposits, c.rewards)
	rhs.Sub(rhs, c.paidOut)
	require.Equal(t, rhs, lhs)

	// the ledger account holds exactly what the books say it should
	assert.Equal(t, total, c.env.balance(ledgerAddr))
}

func TestConservationAcrossInterleavedOps(t *testing.T) {
	env := newTestEnv(t)
	id := env.register(tokens(1000), 1)
	track := newConservationTracker(env, id)
	track.deposits.Add(track.deposits, tokens(1000))
	track.check(t)

	staker := env.stake(id, tokens(333), 2)
	track.deposits.Add(track.deposits, tokens(333))
	track.check(t)

	other := env.stake(id, tokens(77), 2)
	track.deposits.Add(track.deposits, tokens(77))
	track.check(t)

	env.fund(env.rewarder, tokens(1000))
	_, _, err := env.ledger.AddRewards(env.rewarder, id, tokens(91), 3)
	require.NoError(t, err)
	track.rewards.Add(track.rewards, tokens(91))
	track.check(t)

	_, err = env.ledger.RequestWithdraw(id, staker, tokens(111), 4)
	require.NoError(t, err)
	track.check(t)

	_, err = env.ledger.Slash(env.slasher, id, 1700, 5)
	require.NoError(t, err)
	track.check(t)

	_, err = env.ledger.RequestWithdrawAll(id, other, 6)
	require.NoError(t, err)
	track.check(t)

	_, err = env.ledger.SlashByAmount(env.slasher, id, tokens(123), 7)
	require.NoError(t, err)
	track.check(t)

	_, _, err = env.ledger.AddRewards(env.rewarder, id, tokens(37), 8)
	require.NoError(t, err)
	track.rewards.Add(track.rewards, tokens(37))
	track.check(t)

	paid, err := env.ledger.CompleteWithdraw(id, staker, 4+testDelay)
	require.NoError(t, err)
	track.paidOut.Add(track.paidOut, paid)
	track.check(t)

	paid, err = env.ledger.ClaimRewards(id, staker, 15)
	require.NoError(t, err)
	track.paidOut.Add(track.paidOut, paid)
	track.check(t)

	paid, err = env.ledger.ClaimCommission(id, id, 15)
	require.NoError(t, err)
	track.paidOut.Add(track.paidOut, paid)
	track.check(t)

	paid, err = env.ledger.CompleteWithdraw(id, other, 6+testDelay)
	require.NoError(t, err)
	track.paidOut.Add(track.paidOut, paid)
	track.check(t)
}

func TestConservationRandomized(t *testing.T) {
	env := newTestEnv(t)
	id := env.register(tokens(5000), 1)
	track := newConservationTracker(env, id)
	track.deposits.Add(track.deposits, tokens(5000))

	stakers := []bastion.Address{
		env.stake(id, tokens(400), 1),
		env.stake(id, tokens(250), 1),
		env.stake(id, tokens(125), 1),
	}
	track.deposits.Add(track.deposits, tokens(775))
	env.fund(env.rewarder, tokens(100000))

	fuzzer := fuzz.NewWithSeed(42)
	now := uint32(2)
	for i := 0; i < 200; i++ {
		now++
		var pick, amount uint16
		fuzzer.Fuzz(&pick)
		fuzzer.Fuzz(&amount)
		value := new(big.Int).Mul(big.NewInt(int64(amount%500)+1), bastion.OneToken)
		staker := stakers[int(pick)%len(stakers)]

		switch pick % 6 {
		case 0:
			env.fund(staker, value)
			_, err := env.ledger.Stake(id, staker, value, now)
			if err != nil {
				require.True(t, reverts.IsRevertErr(err))
			} else {
				track.deposits.Add(track.deposits, value)
			}
		case 1:
			_, err := env.ledger.RequestWithdraw(id, staker, value, now)
			if err != nil {
				require.True(t, reverts.IsRevertErr(err))
			}
		case 2:
			paid, err := env.ledger.CompleteWithdraw(id, staker, now)
			if err != nil {
				require.ErrorIs(t, err, reverts.ErrNoReadyRequests)
			} else {
				track.paidOut.Add(track.paidOut, paid)
			}
		case 3:
			_, err := env.ledger.Slash(env.slasher, id, uint32(amount%300)+1, now)
			if err != nil {
				require.True(t, reverts.IsRevertErr(err))
			}
		case 4:
			_, _, err := env.ledger.AddRewards(env.rewarder, id, value, now)
			require.NoError(t, err)
			track.rewards.Add(track.rewards, value)
		case 5:
			paid, err := env.ledger.ClaimRewards(id, staker, now)
			if err != nil {
				require.ErrorIs(t, err, reverts.ErrNoValue)
			} else {
				track.paidOut.Add(track.paidOut, paid)
			}
		}
		track.check(t)
	}
}

// TestSlashCostIndependentOfStakerCount measures the storage op cost of a
// slash with growing staker and pending-request counts. The cost must not
// grow with either.
func TestSlashCostIndependentOfStakerCount(t *testing.T) {
	costs := make([]uint64, 0, 3)
	for _, stakerCount := range []int{10, 100, 1000} {
		t.Run(fmt.Sprintf("%d stakers", stakerCount), func(t *testing.T) {
			env := newTestEnv(t)
			id := env.register(tokens(1_000_000), 1)
			now := uint32(2)
			for i := 0; i < stakerCount; i++ {
				staker := env.stake(id, tokens(10), now)
				_, err := env.ledger.RequestWithdraw(id, staker, tokens(4), now)
				require.NoError(t, err)
			}

			before := env.charger.TotalCost()
			_, err := env.ledger.Slash(env.slasher, id, 100, now+1)
			require.NoError(t, err)
			costs = append(costs, env.charger.TotalCost()-before)
		})
	}

	require.Len(t, costs, 3)
	assert.Equal(t, costs[0], costs[1])
	assert.Equal(t, costs[0], costs[2])
}

func TestScaleIsMonotonicallyNonIncreasing(t *testing.T) {
	env := newTestEnv(t)
	id := env.register(tokens(1000), 1)

	fuzzer := fuzz.NewWithSeed(7)
	last, err := env.ledger.GetScale(id)
	require.NoError(t, err)
	assert.Equal(t, bastion.ScaleMax, last)

	for i := 0; i < 100; i++ {
		var cut uint16
		fuzzer.Fuzz(&cut)
		_, err := env.ledger.Slash(env.slasher, id, uint32(cut%700)+1, uint32(2+i))
		if err != nil {
			require.ErrorIs(t, err, reverts.ErrScaleFloor)
		}
		scale, err := env.ledger.GetScale(id)
		require.NoError(t, err)
		assert.LessOrEqual(t, scale, last)
		assert.GreaterOrEqual(t, scale, bastion.MinScaleFloor)
		last = scale
	}
}
