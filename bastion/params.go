// Copyright (c) 2024 The Bastion developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package bastion

import "math/big"

// Constants of the collateral ledger.
const (
	// ScaleMax is the slashing scale of a freshly registered prover,
	// in basis points. A prover's scale only ever decreases from here.
	ScaleMax uint32 = 10000

	// MinScaleFloor is the lowest scale a prover may reach. A slash that
	// would push the scale below this floor is rejected outright.
	MinScaleFloor uint32 = 100

	// DeactivationScaleBps is the scale below which a prover is
	// automatically deactivated.
	DeactivationScaleBps uint32 = 5000

	// MaxCommissionBps caps the commission rate a prover may declare.
	MaxCommissionBps uint32 = 10000

	// RewardPrecision scales the per-share reward accumulator.
	RewardPrecision uint64 = 1e12
)

// Storage op costs charged by the slot layer. Slash cost bounds are
// asserted against these in ops tests.
const (
	SloadCost       uint64 = 200
	SstoreSetCost   uint64 = 20000
	SstoreResetCost uint64 = 5000
)

// OneToken is one whole collateral token in base units.
var OneToken = big.NewInt(1e18)

// Keys of governance params.
var (
	KeyExecutorAddress     = BytesToBytes32([]byte("executor-address"))
	KeySlasherAddress      = BytesToBytes32([]byte("slasher-address"))
	KeyRewardSourceAddress = BytesToBytes32([]byte("reward-source-address"))

	KeyUnbondDelay        = BytesToBytes32([]byte("unbond-delay"))
	KeyMinSelfStake       = BytesToBytes32([]byte("min-self-stake"))
	KeyMaxSlashBps        = BytesToBytes32([]byte("max-slash-bps"))
	KeyMinWithdrawGranule = BytesToBytes32([]byte("min-withdraw-granule"))
	KeyMaxPendingRequests = BytesToBytes32([]byte("max-pending-requests"))

	InitialUnbondDelay        = big.NewInt(8640) // host ticks
	InitialMinSelfStake       = new(big.Int).Mul(big.NewInt(25_000), big.NewInt(1e18))
	InitialMaxSlashBps        = big.NewInt(6000)
	InitialMinWithdrawGranule = big.NewInt(1e18)
	InitialMaxPendingRequests = big.NewInt(10)
)
