// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package provers

import (
	"github.com/provernet/bastion/api/restutil"
	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/builtin/ledger"
)

// ProverSummary is the wire form of a prover's aggregate view.
type ProverSummary struct {
	ID                bastion.Address  `json:"id"`
	Status            string           `json:"status"`
	CommissionBps     uint32           `json:"commissionBps"`
	ScaleBps          uint32           `json:"scaleBps"`
	RegisteredAt      uint32           `json:"registeredAt"`
	Stakers           uint64           `json:"stakers"`
	PoolValue         *restutil.Amount `json:"poolValue"`
	TotalShares       *restutil.Amount `json:"totalShares"`
	SelfCollateral    *restutil.Amount `json:"selfCollateral"`
	UnbondingValue    *restutil.Amount `json:"unbondingValue"`
	PendingCommission *restutil.Amount `json:"pendingCommission"`
}

func convertProverSummary(s *ledger.ProverSummary) *ProverSummary {
	return &ProverSummary{
		ID:                s.ID,
		Status:            s.Status.String(),
		CommissionBps:     s.CommissionBps,
		ScaleBps:          s.ScaleBps,
		RegisteredAt:      s.RegisteredAt,
		Stakers:           s.Stakers,
		PoolValue:         restutil.NewAmount(s.PoolValue),
		TotalShares:       restutil.NewAmount(s.TotalShares),
		SelfCollateral:    restutil.NewAmount(s.SelfCollateral),
		UnbondingValue:    restutil.NewAmount(s.UnbondingValue),
		PendingCommission: restutil.NewAmount(s.PendingCommission),
	}
}

// StakeSummary is the wire form of a staker's position.
type StakeSummary struct {
	Shares           *restutil.Amount `json:"shares"`
	ActiveValue      *restutil.Amount `json:"activeValue"`
	PendingValue     *restutil.Amount `json:"pendingValue"`
	PendingRequests  int              `json:"pendingRequests"`
	ClaimableRewards *restutil.Amount `json:"claimableRewards"`
}

func convertStakeSummary(s *ledger.StakeSummary) *StakeSummary {
	return &StakeSummary{
		Shares:           restutil.NewAmount(s.Shares),
		ActiveValue:      restutil.NewAmount(s.ActiveValue),
		PendingValue:     restutil.NewAmount(s.PendingValue),
		PendingRequests:  s.PendingRequests,
		ClaimableRewards: restutil.NewAmount(s.ClaimableRewards),
	}
}

// RequestDetail is the wire form of a pending withdrawal request.
type RequestDetail struct {
	ID      uint64           `json:"id"`
	Value   *restutil.Amount `json:"value"`
	ReadyAt uint32           `json:"readyAt"`
	Mature  bool             `json:"mature"`
}

func convertRequests(details []*ledger.RequestDetail) []*RequestDetail {
	converted := make([]*RequestDetail, 0, len(details))
	for _, d := range details {
		converted = append(converted, &RequestDetail{
			ID:      d.ID,
			Value:   restutil.NewAmount(d.Value),
			ReadyAt: d.ReadyAt,
			Mature:  d.Mature,
		})
	}
	return converted
}

// RegisterRequest admits a new prover.
type RegisterRequest struct {
	Collateral    *restutil.Amount `json:"collateral"`
	CommissionBps uint32           `json:"commissionBps"`
}

// StakeRequest deposits value for the staker in the path.
type StakeRequest struct {
	Value *restutil.Amount `json:"value"`
}

// StakeResult reports the shares issued by a deposit.
type StakeResult struct {
	Shares *restutil.Amount `json:"shares"`
}

// WithdrawRequest files a withdrawal; All withdraws the entire position.
type WithdrawRequest struct {
	Value *restutil.Amount `json:"value,omitempty"`
	All   bool             `json:"all,omitempty"`
}

// WithdrawFiled reports the assigned request id.
type WithdrawFiled struct {
	RequestID uint64 `json:"requestID"`
}

// Paid reports a paid-out value.
type Paid struct {
	Paid *restutil.Amount `json:"paid"`
}

// SlashRequest punishes the prover. Exactly one of PercentBps and Amount
// must be set.
type SlashRequest struct {
	Caller     bastion.Address  `json:"caller"`
	PercentBps uint32           `json:"percentBps,omitempty"`
	Amount     *restutil.Amount `json:"amount,omitempty"`
}

// SlashResult reports the destroyed value.
type SlashResult struct {
	Slashed *restutil.Amount `json:"slashed"`
}

// RewardsRequest injects reward value.
type RewardsRequest struct {
	Caller bastion.Address  `json:"caller"`
	Value  *restutil.Amount `json:"value"`
}

// RewardsResult reports the commission split of an injection.
type RewardsResult struct {
	Commission *restutil.Amount `json:"commission"`
	ToStakers  *restutil.Amount `json:"toStakers"`
}

// CommissionRequest updates the commission rate.
type CommissionRequest struct {
	Caller        bastion.Address `json:"caller"`
	CommissionBps uint32          `json:"commissionBps"`
}

// StatusRequest drives the prover lifecycle. Value is required for the
// unretire action only.
type StatusRequest struct {
	Caller bastion.Address  `json:"caller"`
	Action string           `json:"action"` // retire | unretire | deactivate | reactivate
	Value  *restutil.Amount `json:"value,omitempty"`
}
