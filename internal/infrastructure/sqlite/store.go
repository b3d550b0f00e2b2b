/*
Package sqlite is the local persistence backend: users, operators, slot
snapshots and the order ledger in one SQLite file.

It implements user.Repository, user.OperatorRepository,
meal.SlotSnapshotStore and meal.OrderLedger. The Postgres package implements
the same interfaces for production; the schema is the same modulo types.

KEYS:

	slot_snapshots: (user_id, slot_id, order_date)
	order_outcomes: (user_id, order_date, slot_label)

Both reference users(id) with ON DELETE CASCADE, so removing a user removes
everything recorded for it.

Dates are stored as "2006-01-02" text and timestamps as UTC
"2006-01-02 15:04:05" text, so lexical order is chronological order.

Use ":memory:" for tests; the pool is then pinned to one connection so every
query sees the same database.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/meal-scheduler/internal/domain/meal"
	"github.com/example/meal-scheduler/internal/domain/user"
)

const (
	dateLayout = "2006-01-02"
	tsLayout   = "2006-01-02 15:04:05"
)

type Store struct {
	db *sql.DB
}

var (
	_ user.Repository         = (*Store)(nil)
	_ user.OperatorRepository = (*Store)(nil)
	_ meal.SlotSnapshotStore  = (*Store)(nil)
	_ meal.OrderLedger        = (*Store)(nil)
)

// New opens (creating if needed) the database at path and migrates it.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsnFor(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if strings.HasPrefix(path, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return s, nil
}

// dsnFor adds the connection options every store needs to path, keeping any
// query the caller already set.
func dsnFor(path string) string {
	const opts = "_foreign_keys=on&_busy_timeout=5000"
	if strings.Contains(path, "?") {
		return path + "&" + opts
	}
	return path + "?" + opts
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

const schema = `
CREATE TABLE IF NOT EXISTS operators (
	id TEXT PRIMARY KEY,
	username TEXT UNIQUE NOT NULL,
	password_hash BLOB NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT UNIQUE NOT NULL,
	password_enc TEXT NOT NULL DEFAULT '',
	address_id TEXT NOT NULL DEFAULT '',
	active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	last_run_at TEXT
);

CREATE TABLE IF NOT EXISTS slot_snapshots (
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	slot_id TEXT NOT NULL,
	order_date TEXT NOT NULL,
	label TEXT NOT NULL,
	target_time TEXT NOT NULL,
	status TEXT NOT NULL,
	address_id TEXT NOT NULL DEFAULT '',
	last_updated TEXT NOT NULL,
	PRIMARY KEY (user_id, slot_id, order_date)
);

CREATE INDEX IF NOT EXISTS idx_slot_snapshots_user_date
	ON slot_snapshots(user_id, order_date, target_time);

CREATE TABLE IF NOT EXISTS order_outcomes (
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	order_date TEXT NOT NULL,
	slot_label TEXT NOT NULL,
	dish_name TEXT NOT NULL DEFAULT '',
	success INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	recorded_at TEXT NOT NULL,
	PRIMARY KEY (user_id, order_date, slot_label)
);
`

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func fmtDate(t time.Time) string { return t.Format(dateLayout) }

func fmtTS(t time.Time) string { return t.UTC().Format(tsLayout) }

func parseDate(s string) (time.Time, error) { return time.Parse(dateLayout, s) }

func parseTS(s string) (time.Time, error) { return time.Parse(tsLayout, s) }
