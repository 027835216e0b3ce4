// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package provers exposes the prover ledger over REST. Reads return the
// ledger views; writes forward host-authenticated callers to the ledger
// operations.
package provers

import (
	"math/big"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/provernet/bastion/api/restutil"
	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/builtin/ledger"
	"github.com/provernet/bastion/builtin/ledger/reverts"
)

// Host is the serialized ledger host the resource drives.
type Host interface {
	RegisterProver(id bastion.Address, collateral *big.Int, commissionBps uint32) error
	Stake(id, staker bastion.Address, value *big.Int) (*big.Int, error)
	RequestWithdraw(id, staker bastion.Address, value *big.Int) (uint64, error)
	RequestWithdrawAll(id, staker bastion.Address) (uint64, error)
	CompleteWithdraw(id, staker bastion.Address) (*big.Int, error)
	Slash(caller, id bastion.Address, percentBps uint32) (*big.Int, error)
	SlashByAmount(caller, id bastion.Address, value *big.Int) (*big.Int, error)
	AddRewards(caller, id bastion.Address, value *big.Int) (commission, toStakers *big.Int, err error)
	ClaimRewards(id, staker bastion.Address) (*big.Int, error)
	ClaimCommission(caller, id bastion.Address) (*big.Int, error)
	SetCommissionRate(caller, id bastion.Address, commissionBps uint32) error
	Retire(caller, id bastion.Address) error
	Unretire(caller, id bastion.Address, value *big.Int) error
	Deactivate(caller, id bastion.Address) error
	Reactivate(caller, id bastion.Address) error
	PrunePosition(id, staker bastion.Address) error

	Prover(id bastion.Address) (*ledger.ProverSummary, error)
	Provers() ([]*ledger.ProverSummary, error)
	Position(id, staker bastion.Address) (*ledger.StakeSummary, error)
	Requests(id, staker bastion.Address) ([]*ledger.RequestDetail, error)
}

type Provers struct {
	host Host
}

func New(host Host) *Provers {
	return &Provers{host}
}

// convertError maps ledger rejections onto http statuses. Anything that is
// not a revert is an internal error.
func convertError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, reverts.ErrUnknownProver):
		return restutil.NotFound(err)
	case errors.Is(err, reverts.ErrUnauthorized):
		return restutil.Forbidden(err)
	case reverts.IsRevertErr(err):
		return restutil.BadRequest(err)
	default:
		return err
	}
}

func (p *Provers) handleGetProvers(w http.ResponseWriter, _ *http.Request) error {
	summaries, err := p.host.Provers()
	if err != nil {
		return err
	}
	converted := make([]*ProverSummary, 0, len(summaries))
	for _, s := range summaries {
		converted = append(converted, convertProverSummary(s))
	}
	return restutil.WriteJSON(w, converted)
}

func (p *Provers) handleGetProver(w http.ResponseWriter, r *http.Request) error {
	id, err := restutil.PathAddress(r, "address")
	if err != nil {
		return err
	}
	summary, err := p.host.Prover(id)
	if err != nil {
		return convertError(err)
	}
	return restutil.WriteJSON(w, convertProverSummary(summary))
}

func (p *Provers) handleRegister(w http.ResponseWriter, r *http.Request) error {
	id, err := restutil.PathAddress(r, "address")
	if err != nil {
		return err
	}
	var req RegisterRequest
	if err := restutil.ParseJSON(r.Body, &req); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := p.host.RegisterProver(id, req.Collateral.Big(), req.CommissionBps); err != nil {
		return convertError(err)
	}
	summary, err := p.host.Prover(id)
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, convertProverSummary(summary))
}

func (p *Provers) handleGetStake(w http.ResponseWriter, r *http.Request) error {
	id, err := restutil.PathAddress(r, "address")
	if err != nil {
		return err
	}
	staker, err := restutil.PathAddress(r, "staker")
	if err != nil {
		return err
	}
	summary, err := p.host.Position(id, staker)
	if err != nil {
		return convertError(err)
	}
	return restutil.WriteJSON(w, convertStakeSummary(summary))
}

func (p *Provers) handleStake(w http.ResponseWriter, r *http.Request) error {
	id, err := restutil.PathAddress(r, "address")
	if err != nil {
		return err
	}
	staker, err := restutil.PathAddress(r, "staker")
	if err != nil {
		return err
	}
	var req StakeRequest
	if err := restutil.ParseJSON(r.Body, &req); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	shares, err := p.host.Stake(id, staker, req.Value.Big())
	if err != nil {
		return convertError(err)
	}
	return restutil.WriteJSON(w, &StakeResult{Shares: restutil.NewAmount(shares)})
}

func (p *Provers) handlePrune(w http.ResponseWriter, r *http.Request) error {
	id, err := restutil.PathAddress(r, "address")
	if err != nil {
		return err
	}
	staker, err := restutil.PathAddress(r, "staker")
	if err != nil {
		return err
	}
	if err := p.host.PrunePosition(id, staker); err != nil {
		return convertError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (p *Provers) handleGetRequests(w http.ResponseWriter, r *http.Request) error {
	id, err := restutil.PathAddress(r, "address")
	if err != nil {
		return err
	}
	staker, err := restutil.PathAddress(r, "staker")
	if err != nil {
		return err
	}
	details, err := p.host.Requests(id, staker)
	if err != nil {
		return convertError(err)
	}
	return restutil.WriteJSON(w, convertRequests(details))
}

func (p *Provers) handleRequestWithdraw(w http.ResponseWriter, r *http.Request) error {
	id, err := restutil.PathAddress(r, "address")
	if err != nil {
		return err
	}
	staker, err := restutil.PathAddress(r, "staker")
	if err != nil {
		return err
	}
	var req WithdrawRequest
	if err := restutil.ParseJSON(r.Body, &req); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}

	var requestID uint64
	if req.All {
		if req.Value != nil {
			return restutil.BadRequest(errors.New("value and all are exclusive"))
		}
		requestID, err = p.host.RequestWithdrawAll(id, staker)
	} else {
		requestID, err = p.host.RequestWithdraw(id, staker, req.Value.Big())
	}
	if err != nil {
		return convertError(err)
	}
	return restutil.WriteJSON(w, &WithdrawFiled{RequestID: requestID})
}

func (p *Provers) handleCompleteWithdraw(w http.ResponseWriter, r *http.Request) error {
	id, err := restutil.PathAddress(r, "address")
	if err != nil {
		return err
	}
	staker, err := restutil.PathAddress(r, "staker")
	if err != nil {
		return err
	}
	paid, err := p.host.CompleteWithdraw(id, staker)
	if err != nil {
		return convertError(err)
	}
	return restutil.WriteJSON(w, &Paid{Paid: restutil.NewAmount(paid)})
}

func (p *Provers) handleClaimRewards(w http.ResponseWriter, r *http.Request) error {
	id, err := restutil.PathAddress(r, "address")
	if err != nil {
		return err
	}
	staker, err := restutil.PathAddress(r, "staker")
	if err != nil {
		return err
	}
	paid, err := p.host.ClaimRewards(id, staker)
	if err != nil {
		return convertError(err)
	}
	return restutil.WriteJSON(w, &Paid{Paid: restutil.NewAmount(paid)})
}

func (p *Provers) handleSlash(w http.ResponseWriter, r *http.Request) error {
	id, err := restutil.PathAddress(r, "address")
	if err != nil {
		return err
	}
	var req SlashRequest
	if err := restutil.ParseJSON(r.Body, &req); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	if (req.PercentBps == 0) == (req.Amount == nil) {
		return restutil.BadRequest(errors.New("exactly one of percentBps and amount required"))
	}

	var slashed *big.Int
	if req.Amount != nil {
		slashed, err = p.host.SlashByAmount(req.Caller, id, req.Amount.Big())
	} else {
		slashed, err = p.host.Slash(req.Caller, id, req.PercentBps)
	}
	if err != nil {
		return convertError(err)
	}
	return restutil.WriteJSON(w, &SlashResult{Slashed: restutil.NewAmount(slashed)})
}

func (p *Provers) handleAddRewards(w http.ResponseWriter, r *http.Request) error {
	id, err := restutil.PathAddress(r, "address")
	if err != nil {
		return err
	}
	var req RewardsRequest
	if err := restutil.ParseJSON(r.Body, &req); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	commission, toStakers, err := p.host.AddRewards(req.Caller, id, req.Value.Big())
	if err != nil {
		return convertError(err)
	}
	return restutil.WriteJSON(w, &RewardsResult{
		Commission: restutil.NewAmount(commission),
		ToStakers:  restutil.NewAmount(toStakers),
	})
}

func (p *Provers) handleSetCommission(w http.ResponseWriter, r *http.Request) error {
	id, err := restutil.PathAddress(r, "address")
	if err != nil {
		return err
	}
	var req CommissionRequest
	if err := restutil.ParseJSON(r.Body, &req); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	if err := p.host.SetCommissionRate(req.Caller, id, req.CommissionBps); err != nil {
		return convertError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (p *Provers) handleClaimCommission(w http.ResponseWriter, r *http.Request) error {
	id, err := restutil.PathAddress(r, "address")
	if err != nil {
		return err
	}
	var req struct {
		Caller bastion.Address `json:"caller"`
	}
	if err := restutil.ParseJSON(r.Body, &req); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	paid, err := p.host.ClaimCommission(req.Caller, id)
	if err != nil {
		return convertError(err)
	}
	return restutil.WriteJSON(w, &Paid{Paid: restutil.NewAmount(paid)})
}

func (p *Provers) handleStatus(w http.ResponseWriter, r *http.Request) error {
	id, err := restutil.PathAddress(r, "address")
	if err != nil {
		return err
	}
	var req StatusRequest
	if err := restutil.ParseJSON(r.Body, &req); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}

	switch req.Action {
	case "retire":
		err = p.host.Retire(req.Caller, id)
	case "unretire":
		err = p.host.Unretire(req.Caller, id, req.Value.Big())
	case "deactivate":
		err = p.host.Deactivate(req.Caller, id)
	case "reactivate":
		err = p.host.Reactivate(req.Caller, id)
	default:
		return restutil.BadRequest(errors.Errorf("unknown action %q", req.Action))
	}
	if err != nil {
		return convertError(err)
	}
	summary, err := p.host.Prover(id)
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, convertProverSummary(summary))
}

func (p *Provers) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("provers_get_all").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleGetProvers))
	sub.Path("/{address}").
		Methods(http.MethodGet).
		Name("provers_get_prover").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleGetProver))
	sub.Path("/{address}").
		Methods(http.MethodPost).
		Name("provers_register").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleRegister))
	sub.Path("/{address}/stakes/{staker}").
		Methods(http.MethodGet).
		Name("provers_get_stake").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleGetStake))
	sub.Path("/{address}/stakes/{staker}").
		Methods(http.MethodPost).
		Name("provers_stake").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleStake))
	sub.Path("/{address}/stakes/{staker}").
		Methods(http.MethodDelete).
		Name("provers_prune_stake").
		HandlerFunc(restutil.WrapHandlerFunc(p.handlePrune))
	sub.Path("/{address}/stakes/{staker}/requests").
		Methods(http.MethodGet).
		Name("provers_get_requests").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleGetRequests))
	sub.Path("/{address}/stakes/{staker}/requests").
		Methods(http.MethodPost).
		Name("provers_request_withdraw").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleRequestWithdraw))
	sub.Path("/{address}/stakes/{staker}/withdrawals").
		Methods(http.MethodPost).
		Name("provers_complete_withdraw").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleCompleteWithdraw))
	sub.Path("/{address}/stakes/{staker}/rewards").
		Methods(http.MethodPost).
		Name("provers_claim_rewards").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleClaimRewards))
	sub.Path("/{address}/slashes").
		Methods(http.MethodPost).
		Name("provers_slash").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleSlash))
	sub.Path("/{address}/rewards").
		Methods(http.MethodPost).
		Name("provers_add_rewards").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleAddRewards))
	sub.Path("/{address}/commission").
		Methods(http.MethodPost).
		Name("provers_set_commission").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleSetCommission))
	sub.Path("/{address}/commission/claims").
		Methods(http.MethodPost).
		Name("provers_claim_commission").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleClaimCommission))
	sub.Path("/{address}/status").
		Methods(http.MethodPost).
		Name("provers_set_status").
		HandlerFunc(restutil.WrapHandlerFunc(p.handleStatus))
}
