// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package node exposes host-level views: tick, prover count, treasury.
package node

import (
	"math/big"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/provernet/bastion/api/restutil"
	"github.com/provernet/bastion/builtin/ledger"
)

// Host is the ledger host the resource reads from.
type Host interface {
	Now() uint32
	ProverCount() (*big.Int, error)
	Treasury() (*ledger.TreasurySummary, error)
	StorageOps() uint64
}

// Status is the host status view.
type Status struct {
	Tick       uint32 `json:"tick"`
	Provers    uint64 `json:"provers"`
	StorageOps uint64 `json:"storageOps"`
}

// TreasurySummary is the wire form of the treasury view.
type TreasurySummary struct {
	Slashed *restutil.Amount `json:"slashed"`
	Dust    *restutil.Amount `json:"dust"`
	Balance *restutil.Amount `json:"balance"`
}

type Node struct {
	host Host
}

func New(host Host) *Node {
	return &Node{host}
}

func (n *Node) handleStatus(w http.ResponseWriter, _ *http.Request) error {
	count, err := n.host.ProverCount()
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, &Status{
		Tick:       n.host.Now(),
		Provers:    count.Uint64(),
		StorageOps: n.host.StorageOps(),
	})
}

func (n *Node) handleTreasury(w http.ResponseWriter, _ *http.Request) error {
	summary, err := n.host.Treasury()
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, &TreasurySummary{
		Slashed: restutil.NewAmount(summary.Slashed),
		Dust:    restutil.NewAmount(summary.Dust),
		Balance: restutil.NewAmount(summary.Balance),
	})
}

func (n *Node) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/status").
		Methods(http.MethodGet).
		Name("node_get_status").
		HandlerFunc(restutil.WrapHandlerFunc(n.handleStatus))
	sub.Path("/treasury").
		Methods(http.MethodGet).
		Name("node_get_treasury").
		HandlerFunc(restutil.WrapHandlerFunc(n.handleTreasury))
}
