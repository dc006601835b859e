// Package dbx holds the small database seam shared by user repositories.
// DBTX is satisfied by *sql.DB and *sql.Tx; a nil DBTX means the repository
// is not backed by SQL at all (the in-memory store).
package dbx

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is the subset of database/sql used by repositories.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Handle returns db as a DBTX, or a nil interface when db is nil.
func Handle(db *sql.DB) DBTX {
	if db == nil {
		return nil
	}
	return db
}

// WithTx runs fn inside a transaction on db: commit when fn succeeds,
// rollback on error or panic (the panic is rethrown). A nil db runs fn
// directly with a nil handle.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	if db == nil {
		return fn(ctx, nil)
	}

	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("commit tx: %w", cerr)
		}
	}()

	return fn(ctx, tx)
}
