// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/eventdb"
	"github.com/provernet/bastion/genesis"
	"github.com/provernet/bastion/lvldb"
	"github.com/provernet/bastion/node"
	"github.com/provernet/bastion/state"
	"github.com/provernet/bastion/test/datagen"
)

func newAPIServer(t *testing.T) (*httptest.Server, *node.Node) {
	store, err := lvldb.NewMem()
	require.NoError(t, err)
	journal, err := eventdb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })

	st := state.New(store)
	require.NoError(t, (&genesis.Config{
		Params: genesis.Params{MinSelfStake: (*genesis.Amount)(bastion.OneToken)},
		Roles: genesis.Roles{
			Executor:     datagen.RandAddress(),
			Slasher:      datagen.RandAddress(),
			RewardSource: datagen.RandAddress(),
		},
	}).Apply(st))
	require.NoError(t, st.Stage().Commit())

	host := node.New(store, journal, nil)
	t.Cleanup(host.Close)

	handler, closer := New(host, journal, Options{
		AllowedOrigins: "*",
		EventsLimit:    100,
		EnableMetrics:  true,
	})
	t.Cleanup(closer)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, host
}

func TestRouterEndToEnd(t *testing.T) {
	server, host := newAPIServer(t)

	id := datagen.RandAddress()
	collateral := new(big.Int).Mul(big.NewInt(5), bastion.OneToken)
	require.NoError(t, host.Fund(id, collateral))
	require.NoError(t, host.RegisterProver(id, collateral, 500))

	res, err := http.Get(server.URL + "/node/status")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var status struct {
		Provers uint64 `json:"provers"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&status))
	assert.Equal(t, uint64(1), status.Provers)

	res, err = http.Get(server.URL + "/provers/" + id.String())
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	// the register event reached the journal through the host sink
	res, err = http.Post(server.URL+"/events", "application/json", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var entries []struct {
		Kind string `json:"kind"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "prover-registered", entries[0].Kind)
}

func TestUnknownRoute(t *testing.T) {
	server, _ := newAPIServer(t)

	res, err := http.Get(server.URL + "/nowhere")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}
