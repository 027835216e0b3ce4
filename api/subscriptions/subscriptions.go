// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package subscriptions streams committed ledger events over websocket.
package subscriptions

import (
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/provernet/bastion/api/restutil"
	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/builtin/ledger"
	"github.com/provernet/bastion/log"
)

var logger = log.WithContext("pkg", "subscriptions")

const (
	pingPeriod   = 10 * time.Second
	writeTimeout = 10 * time.Second

	// events buffered per subscriber; a consumer this far behind is cut off
	subBacklog = 512
)

// Host is the event source.
type Host interface {
	SubscribeEvents(ch chan *ledger.Event) event.Subscription
}

// Event is the wire form of one streamed ledger event.
type Event struct {
	Kind   ledger.EventKind `json:"kind"`
	Prover bastion.Address  `json:"prover"`
	Staker bastion.Address  `json:"staker"`
	Amount *restutil.Amount `json:"amount"`
	Aux    *restutil.Amount `json:"aux"`
	Tick   uint32           `json:"tick"`
}

func convertEvent(ev *ledger.Event) *Event {
	return &Event{
		Kind:   ev.Kind,
		Prover: ev.Prover,
		Staker: ev.Staker,
		Amount: restutil.NewAmount(ev.Amount),
		Aux:    restutil.NewAmount(ev.Aux),
		Tick:   ev.Tick,
	}
}

type Subscriptions struct {
	host      Host
	upgrader  websocket.Upgrader
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates the resource. Connections from origins outside allowedOrigins
// are rejected; "*" allows all.
func New(host Host, allowedOrigins []string) *Subscriptions {
	return &Subscriptions{
		host: host,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
		done: make(chan struct{}),
	}
}

// Close terminates all open subscription connections.
func (s *Subscriptions) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	s.wg.Wait()
}

func (s *Subscriptions) handleSubscribeEvents(w http.ResponseWriter, r *http.Request) error {
	var proverFilter *bastion.Address
	if q := r.URL.Query().Get("prover"); q != "" {
		addr, err := bastion.ParseAddress(q)
		if err != nil {
			return restutil.BadRequest(errors.WithMessage(err, "prover"))
		}
		proverFilter = addr
	}
	var kindFilter *ledger.EventKind
	if q := r.URL.Query().Get("kind"); q != "" {
		kind := ledger.EventKind(q)
		kindFilter = &kind
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already responded
		logger.Debug("failed to upgrade subscription", "err", err)
		return nil
	}
	defer conn.Close()

	s.wg.Add(1)
	defer s.wg.Done()

	ch := make(chan *ledger.Event, subBacklog)
	sub := s.host.SubscribeEvents(ch)
	defer sub.Unsubscribe()

	// read pump, detects the client closing the connection
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return nil
		case <-closed:
			return nil
		case err := <-sub.Err():
			return err
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case ev := <-ch:
			if proverFilter != nil && *proverFilter != ev.Prover {
				continue
			}
			if kindFilter != nil && *kindFilter != ev.Kind {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(convertEvent(ev)); err != nil {
				return nil
			}
		}
	}
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/events").
		Methods(http.MethodGet).
		Name("subscriptions_events").
		HandlerFunc(restutil.WrapHandlerFunc(s.handleSubscribeEvents))
}
