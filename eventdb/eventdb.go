// Copyright (c) 2025 The Bastion developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

import (
	"database/sql"
	"math/big"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/provernet/bastion/bastion"
	"github.com/provernet/bastion/builtin/ledger"
)

const eventTableSchema = `CREATE TABLE IF NOT EXISTS event (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	prover BLOB NOT NULL,
	staker BLOB,
	amount TEXT,
	aux TEXT,
	tick INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS event_prover_i ON event(prover, tick);
CREATE INDEX IF NOT EXISTS event_kind_i ON event(kind);`

// OrderType sorts query results by sequence.
type OrderType string

const (
	ASC  OrderType = "ASC"
	DESC OrderType = "DESC"
)

// Entry is one journaled ledger event with its assigned sequence number.
type Entry struct {
	Seq    uint64           `json:"seq"`
	Kind   ledger.EventKind `json:"kind"`
	Prover bastion.Address  `json:"prover"`
	Staker bastion.Address  `json:"staker"`
	Amount *big.Int         `json:"amount"`
	Aux    *big.Int         `json:"aux"`
	Tick   uint32           `json:"tick"`
}

// Filter narrows a journal query.
type Filter struct {
	Prover   *bastion.Address  `json:"prover"`
	Kind     *ledger.EventKind `json:"kind"`
	FromTick *uint32           `json:"fromTick"`
	ToTick   *uint32           `json:"toTick"`
	Order    OrderType         `json:"order"` // default asc
	Offset   uint64            `json:"offset"`
	Limit    uint64            `json:"limit"` // 0 means unlimited
}

// EventDB is the append-only journal of committed ledger events.
type EventDB struct {
	path string
	db   *sql.DB
}

// New opens (creating if needed) a journal at path.
func New(path string) (*EventDB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open event db")
	}
	if _, err := db.Exec(eventTableSchema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to init event db schema")
	}
	return &EventDB{path: path, db: db}, nil
}

// NewMem creates an in-memory journal.
func NewMem() (*EventDB, error) {
	return New(":memory:")
}

// Path returns the journal's file path.
func (db *EventDB) Path() string {
	return db.path
}

// Append journals one committed ledger event.
func (db *EventDB) Append(ev *ledger.Event) error {
	_, err := db.db.Exec(
		"INSERT INTO event(kind, prover, staker, amount, aux, tick) VALUES (?, ?, ?, ?, ?, ?);",
		string(ev.Kind),
		ev.Prover.Bytes(),
		ev.Staker.Bytes(),
		bigValue(ev.Amount),
		bigValue(ev.Aux),
		ev.Tick,
	)
	return errors.Wrap(err, "failed to append event")
}

// Query returns journal entries matching the filter in sequence order.
func (db *EventDB) Query(filter *Filter) ([]*Entry, error) {
	stmt := "SELECT seq, kind, prover, staker, amount, aux, tick FROM event WHERE 1"
	var args []any
	if filter == nil {
		filter = &Filter{}
	}
	if filter.Prover != nil {
		stmt += " AND prover = ?"
		args = append(args, filter.Prover.Bytes())
	}
	if filter.Kind != nil {
		stmt += " AND kind = ?"
		args = append(args, string(*filter.Kind))
	}
	if filter.FromTick != nil {
		stmt += " AND tick >= ?"
		args = append(args, *filter.FromTick)
	}
	if filter.ToTick != nil {
		stmt += " AND tick <= ?"
		args = append(args, *filter.ToTick)
	}
	if filter.Order == DESC {
		stmt += " ORDER BY seq DESC"
	} else {
		stmt += " ORDER BY seq ASC"
	}
	if filter.Limit > 0 {
		stmt += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	} else if filter.Offset > 0 {
		stmt += " LIMIT -1 OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := db.db.Query(stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query events")
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var (
			entry       Entry
			kind        string
			prover      []byte
			staker      []byte
			amount, aux string
		)
		if err := rows.Scan(&entry.Seq, &kind, &prover, &staker, &amount, &aux, &entry.Tick); err != nil {
			return nil, errors.Wrap(err, "failed to scan event")
		}
		entry.Kind = ledger.EventKind(kind)
		entry.Prover = bastion.BytesToAddress(prover)
		entry.Staker = bastion.BytesToAddress(staker)
		if entry.Amount, err = parseBig(amount); err != nil {
			return nil, err
		}
		if entry.Aux, err = parseBig(aux); err != nil {
			return nil, err
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// Close closes the journal.
func (db *EventDB) Close() error {
	return db.db.Close()
}

func bigValue(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseBig(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.Errorf("malformed stored amount %q", s)
	}
	return v, nil
}
