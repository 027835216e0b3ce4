// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provernet/bastion/metrics"
	"github.com/provernet/bastion/test/datagen"
)

func init() {
	metrics.InitializePrometheusMetrics()
}

func TestMetricsMiddleware(t *testing.T) {
	server, _ := newAPIServer(t)

	// two lookups of an unknown prover, counted under the route name
	missing := datagen.RandAddress()
	for i := 0; i < 2; i++ {
		res, err := http.Get(server.URL + "/provers/" + missing.String())
		require.NoError(t, err)
		res.Body.Close()
		require.Equal(t, http.StatusNotFound, res.StatusCode)
	}

	rec := httptest.NewRecorder()
	metrics.HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	parser := expfmt.TextParser{}
	families, err := parser.TextToMetricFamilies(rec.Body)
	require.NoError(t, err)

	family := families["bastion_metrics_api_request_count"]
	require.NotNil(t, family, "request counter family should be exposed")

	var count float64
	for _, m := range family.GetMetric() {
		labels := map[string]string{}
		for _, l := range m.GetLabel() {
			labels[l.GetName()] = l.GetValue()
		}
		if labels["path"] == "provers_get_prover" && labels["code"] == "404" {
			assert.Equal(t, "GET", labels["method"])
			count = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(2), count)

	family = families["bastion_metrics_api_duration_ms"]
	require.NotNil(t, family, "duration histogram family should be exposed")

	var samples uint64
	for _, m := range family.GetMetric() {
		labels := map[string]string{}
		for _, l := range m.GetLabel() {
			labels[l.GetName()] = l.GetValue()
		}
		if labels["path"] == "provers_get_prover" && labels["code"] == "404" {
			samples = m.GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, uint64(2), samples)
}

func TestMetricsMiddlewareAllowsUpgrade(t *testing.T) {
	server, _ := newAPIServer(t)

	// the response writer wrapper must keep hijacking available
	u := "ws" + strings.TrimPrefix(server.URL, "http") + "/subscriptions/events"
	conn, res, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	if res != nil {
		res.Body.Close()
	}
	conn.Close()
}
