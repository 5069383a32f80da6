// Package sqlite stores templates and their variables in SQLite through
// database/sql and the pure-Go modernc.org/sqlite driver (no cgo).
//
// Two tables: templates, and template_variables with a cascading foreign
// key to it. Every multi-statement write runs through withTx.
//
// PRAGMAS AND THE POOL:
// PRAGMA settings are per connection. Running "PRAGMA foreign_keys=ON" once
// only configures whichever pooled connection happened to run it, so the
// settings we depend on (foreign keys for ON DELETE CASCADE, busy timeout)
// are passed in the DSN and applied by the driver to every new connection.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	// The driver registers itself with database/sql as "sqlite" in init().
	// We also use its Error type to read SQLite's extended result codes.
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB connection pool and provides repository methods.
// It implements repository.TemplateRepository (see template.go).
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/templates.db"  → file-based database (persistent)
//   - ":memory:"           → in-memory database (tests; lost on close)
func New(dbPath string) (*DB, error) {
	memory := dbPath == ":memory:"

	conn, err := sql.Open("sqlite", dsn(dbPath, memory))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" is a separate, empty database.
	// One connection keeps the whole pool looking at the same data.
	if memory {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// dsn appends the per-connection pragmas to dbPath.
func dsn(dbPath string, memory bool) string {
	pragmas := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
	}
	// WAL lets readers proceed while a writer holds the lock.
	// It has no meaning for an in-memory database.
	if !memory {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}

	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + strings.Join(pragmas, "&")
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// migrate creates the schema. CREATE ... IF NOT EXISTS makes it safe to run
// on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS templates (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			name        TEXT NOT NULL UNIQUE,
			content     TEXT NOT NULL,
			created_at  DATETIME NOT NULL,
			updated_at  DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_templates_updated_at ON templates(updated_at);
	`)
	if err != nil {
		return fmt.Errorf("creating templates table: %w", err)
	}

	// ON DELETE CASCADE: variables never outlive their template.
	// UNIQUE (template_id, key): keys are unique per template, not globally.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS template_variables (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			template_id    INTEGER NOT NULL REFERENCES templates(id) ON DELETE CASCADE,
			key            TEXT NOT NULL,
			type           TEXT NOT NULL CHECK (type IN ('string', 'number', 'boolean', 'date')),
			fallback_value TEXT,
			is_required    INTEGER NOT NULL DEFAULT 0,
			UNIQUE (template_id, key),
			CHECK (is_required = 0 OR fallback_value IS NULL)
		);
		CREATE INDEX IF NOT EXISTS idx_template_variables_template_id ON template_variables(template_id);
	`)
	if err != nil {
		return fmt.Errorf("creating template_variables table: %w", err)
	}

	return nil
}

// withTx runs fn inside a transaction. If fn returns an error (or panics)
// the transaction is rolled back; otherwise it is committed.
//
// Inside fn, use ONLY tx. Touching db.conn while a transaction is open can
// deadlock when the pool has a single connection (":memory:").
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			// The rollback error is secondary; fn's error is what matters.
			tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is SQLite's
// SQLITE_CONSTRAINT_UNIQUE (extended result code 2067). The message check
// covers connections that only report the primary code.
func isUniqueViolation(err error) bool {
	var se *sqlitedrv.Error
	if !errors.As(err, &se) {
		return false
	}
	if se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
		strings.Contains(se.Error(), "UNIQUE constraint failed")
}
