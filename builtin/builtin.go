// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin

import (
	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/builtin/ledger"
	"github.com/provernet/bastion/builtin/params"
	"github.com/provernet/bastion/builtin/slots"
	"github.com/provernet/bastion/state"
)

// Builtin accounts binding. Each account owns a disjoint slice of ledger
// state: Params the governance values, Ledger the collateral books and the
// pooled balance, Treasury the slashed value and rounding dust.
var (
	Params   = &paramsAccount{bastion.BytesToAddress([]byte("Params"))}
	Ledger   = &ledgerAccount{bastion.BytesToAddress([]byte("Ledger"))}
	Treasury = &treasuryAccount{bastion.BytesToAddress([]byte("Treasury"))}
)

type (
	paramsAccount   struct{ Address bastion.Address }
	ledgerAccount   struct{ Address bastion.Address }
	treasuryAccount struct{ Address bastion.Address }
)

func (p *paramsAccount) WithState(st *state.State) *params.Params {
	return params.New(p.Address, st)
}

func (l *ledgerAccount) WithState(st *state.State, charger *slots.Charger) *ledger.Ledger {
	return ledger.New(l.Address, Treasury.Address, st, Params.WithState(st), charger)
}
