// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provernet/bastion/builtin/ledger"
	"github.com/provernet/bastion/eventdb"
	"github.com/provernet/bastion/test/datagen"
)

func newTestServer(t *testing.T, limit uint64) (*httptest.Server, *eventdb.EventDB) {
	db, err := eventdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	router := mux.NewRouter()
	New(db, limit).Mount(router, "/events")
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, db
}

func queryEvents(t *testing.T, url string, filter *eventdb.Filter) (int, []*Entry) {
	t.Helper()
	data, err := json.Marshal(filter)
	require.NoError(t, err)
	res, err := http.Post(url+"/events", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer res.Body.Close()

	var entries []*Entry
	if res.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(res.Body).Decode(&entries))
	}
	return res.StatusCode, entries
}

func TestFilterEvents(t *testing.T) {
	server, db := newTestServer(t, 100)

	prover := datagen.RandAddress()
	require.NoError(t, db.Append(&ledger.Event{Kind: ledger.EventProverRegistered, Prover: prover, Staker: prover, Amount: big.NewInt(7), Tick: 1}))
	require.NoError(t, db.Append(&ledger.Event{Kind: ledger.EventSlashed, Prover: prover, Amount: big.NewInt(3), Tick: 2}))
	require.NoError(t, db.Append(&ledger.Event{Kind: ledger.EventSlashed, Prover: datagen.RandAddress(), Amount: big.NewInt(5), Tick: 3}))

	status, entries := queryEvents(t, server.URL, &eventdb.Filter{})
	require.Equal(t, http.StatusOK, status)
	require.Len(t, entries, 3)
	assert.Equal(t, big.NewInt(7), entries[0].Amount.Big())

	kind := ledger.EventSlashed
	status, entries = queryEvents(t, server.URL, &eventdb.Filter{Kind: &kind, Prover: &prover})
	require.Equal(t, http.StatusOK, status)
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(2), entries[0].Seq)
}

func TestFilterLimit(t *testing.T) {
	server, db := newTestServer(t, 2)

	for i := 0; i < 5; i++ {
		require.NoError(t, db.Append(&ledger.Event{Kind: ledger.EventStaked, Prover: datagen.RandAddress(), Tick: uint32(i)}))
	}

	// default limit applies when unset
	status, entries := queryEvents(t, server.URL, &eventdb.Filter{})
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, entries, 2)

	status, _ = queryEvents(t, server.URL, &eventdb.Filter{Limit: 3})
	assert.Equal(t, http.StatusForbidden, status)
}
