// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"net/http/pprof"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/provernet/bastion/api/events"
	nodeapi "github.com/provernet/bastion/api/node"
	"github.com/provernet/bastion/api/provers"
	"github.com/provernet/bastion/api/subscriptions"
	"github.com/provernet/bastion/eventdb"
	"github.com/provernet/bastion/log"
	"github.com/provernet/bastion/node"
)

var logger = log.WithContext("pkg", "api")

type Options struct {
	AllowedOrigins  string
	EventsLimit     uint64
	PprofOn         bool
	EnableReqLogger bool
	EnableMetrics   bool
}

// New return api router. The journal may be nil, which disables the events
// endpoint. The returned closer terminates hijacked subscription conns.
func New(host *node.Node, journal *eventdb.EventDB, opts Options) (http.HandlerFunc, func()) {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	provers.New(host).
		Mount(router, "/provers")
	nodeapi.New(host).
		Mount(router, "/node")
	if journal != nil {
		events.New(journal, opts.EventsLimit).
			Mount(router, "/events")
	}
	subs := subscriptions.New(host, origins)
	subs.Mount(router, "/subscriptions")

	if opts.PprofOn {
		router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		router.HandleFunc("/debug/pprof/profile", pprof.Profile)
		router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		router.HandleFunc("/debug/pprof/trace", pprof.Trace)
		router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
	}

	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}),
	)(handler)

	if opts.EnableReqLogger {
		handler = RequestLoggerHandler(handler, logger)
	}

	return handler.ServeHTTP, subs.Close // subscriptions handles hijacked conns, which need to be closed
}
