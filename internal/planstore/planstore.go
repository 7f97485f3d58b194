// Package planstore keeps the history of compiled plans in SQLite.
package planstore

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS plans (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	checksum    TEXT    NOT NULL,
	env         TEXT    NOT NULL DEFAULT '',
	root        TEXT    NOT NULL DEFAULT '',
	models      INTEGER NOT NULL DEFAULT 0,
	mixins      INTEGER NOT NULL DEFAULT 0,
	boot        INTEGER NOT NULL DEFAULT 0,
	body        TEXT    NOT NULL,
	compiled_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_plans_checksum ON plans(checksum);
CREATE INDEX IF NOT EXISTS idx_plans_compiled_at ON plans(compiled_at);
`

// PlanStore defines the plan history operations.
// Consumers should depend on this interface rather than the concrete *DB type.
type PlanStore interface {
	Save(rec Record, body []byte) (Record, bool, error)
	Latest() (*Record, []byte, error)
	Get(id int64) (*Record, []byte, error)
	List(limit, offset int) ([]Record, int, error)
	Close() error
}

// Verify *DB satisfies PlanStore at compile time.
var _ PlanStore = (*DB)(nil)

// DB wraps a sql.DB with plan-history operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("planstore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("planstore: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("planstore: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
