package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Dialect names the SQL flavour a bound store talks to.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSqlite   Dialect = "sqlite"
)

// Initialize the bounds schema. Safe to run repeatedly.
func InitSchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	var statements []string
	switch dialect {
	case DialectPostgres:
		statements = []string{`
	CREATE TABLE IF NOT EXISTS bounds (
		instance TEXT PRIMARY KEY,
		cost DOUBLE PRECISION NOT NULL,
		optimal BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMPTZ NOT NULL,
		run_id TEXT NOT NULL DEFAULT ''
	);
	`, `
	CREATE INDEX IF NOT EXISTS idx_bounds_optimal
	ON bounds(optimal);
	`}
	case DialectSqlite:
		statements = []string{`
	CREATE TABLE IF NOT EXISTS bounds (
		instance TEXT PRIMARY KEY,
		cost REAL NOT NULL,
		optimal INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL,
		run_id TEXT NOT NULL DEFAULT ''
	);
	`, `
	CREATE INDEX IF NOT EXISTS idx_bounds_optimal
	ON bounds(optimal);
	`}
	default:
		return fmt.Errorf("init schema: unsupported dialect %q", dialect)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
