package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"gitlab.com/tozd/go/errors"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.Base("not found")

type DB struct {
	conn    *sql.DB
	timeout time.Duration
}

func Open(path string, timeout time.Duration) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	// one writer keeps sqlite from returning SQLITE_BUSY under concurrent handlers
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, errors.WithStack(err)
	}
	if _, err := conn.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = conn.Close()
		return nil, errors.WithStack(err)
	}

	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	db := &DB{conn: conn, timeout: timeout}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) Ping(ctx context.Context) error {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	return errors.WithStack(d.conn.PingContext(ctx))
}

func (d *DB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d.timeout)
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS rules (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  regexPattern TEXT NOT NULL,
  outputFormat TEXT NOT NULL,
  priority INTEGER NOT NULL DEFAULT 0,
  isActive INTEGER NOT NULL DEFAULT 1,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_rules_priority ON rules(isActive, priority);

CREATE TABLE IF NOT EXISTS manual_abbreviations (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  orderNumber TEXT NOT NULL UNIQUE,
  abbreviation TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS order_replacements (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  originalOrderNumber TEXT NOT NULL UNIQUE,
  replacementOrderNumber TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS exclusions (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  orderNumber TEXT NOT NULL UNIQUE,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return errors.WithStack(err)
}
