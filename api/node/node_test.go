// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provernet/bastion/builtin/ledger"
)

type stubHost struct{}

func (stubHost) Now() uint32                     { return 42 }
func (stubHost) ProverCount() (*big.Int, error)  { return big.NewInt(3), nil }
func (stubHost) StorageOps() uint64              { return 7 }
func (stubHost) Treasury() (*ledger.TreasurySummary, error) {
	return &ledger.TreasurySummary{
		Slashed: big.NewInt(100),
		Dust:    big.NewInt(1),
		Balance: big.NewInt(101),
	}, nil
}

func TestStatusAndTreasury(t *testing.T) {
	router := mux.NewRouter()
	New(stubHost{}).Mount(router, "/node")
	server := httptest.NewServer(router)
	defer server.Close()

	res, err := http.Get(server.URL + "/node/status")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var status Status
	require.NoError(t, json.NewDecoder(res.Body).Decode(&status))
	assert.Equal(t, uint32(42), status.Tick)
	assert.Equal(t, uint64(3), status.Provers)
	assert.Equal(t, uint64(7), status.StorageOps)

	res, err = http.Get(server.URL + "/node/treasury")
	require.NoError(t, err)
	defer res.Body.Close()

	var treasury TreasurySummary
	require.NoError(t, json.NewDecoder(res.Body).Decode(&treasury))
	assert.Equal(t, big.NewInt(100), treasury.Slashed.Big())
	assert.Equal(t, big.NewInt(101), treasury.Balance.Big())
}
