// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package events exposes the committed event journal over REST.
package events

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/provernet/bastion/api/restutil"
	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/builtin/ledger"
	"github.com/provernet/bastion/eventdb"
)

// Entry is the wire form of one journal entry.
type Entry struct {
	Seq    uint64           `json:"seq"`
	Kind   ledger.EventKind `json:"kind"`
	Prover bastion.Address  `json:"prover"`
	Staker bastion.Address  `json:"staker"`
	Amount *restutil.Amount `json:"amount"`
	Aux    *restutil.Amount `json:"aux"`
	Tick   uint32           `json:"tick"`
}

func convertEntry(e *eventdb.Entry) *Entry {
	return &Entry{
		Seq:    e.Seq,
		Kind:   e.Kind,
		Prover: e.Prover,
		Staker: e.Staker,
		Amount: restutil.NewAmount(e.Amount),
		Aux:    restutil.NewAmount(e.Aux),
		Tick:   e.Tick,
	}
}

type Events struct {
	db    *eventdb.EventDB
	limit uint64
}

// New creates the resource. Queries are capped at limit entries.
func New(db *eventdb.EventDB, limit uint64) *Events {
	return &Events{db, limit}
}

func (e *Events) handleFilter(w http.ResponseWriter, r *http.Request) error {
	var filter eventdb.Filter
	if err := restutil.ParseJSON(r.Body, &filter); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	if filter.Limit > e.limit {
		return restutil.Forbidden(errors.Errorf("limit exceeds the maximum allowed value of %d", e.limit))
	}
	if filter.Limit == 0 {
		filter.Limit = e.limit
	}

	entries, err := e.db.Query(&filter)
	if err != nil {
		return err
	}
	converted := make([]*Entry, 0, len(entries))
	for _, entry := range entries {
		converted = append(converted, convertEntry(entry))
	}
	return restutil.WriteJSON(w, converted)
}

func (e *Events) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodPost).
		Name("events_filter").
		HandlerFunc(restutil.WrapHandlerFunc(e.handleFilter))
}
