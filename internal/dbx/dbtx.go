// Package dbx provides a tiny DB abstraction shared by storage code:
// a minimal interface (DBTX) implemented by both *sql.DB and *sql.Tx,
// so repositories can run against either a plain handle or a
// transaction.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql used by the key-value store.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
