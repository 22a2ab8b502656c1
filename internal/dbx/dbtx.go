// Package dbx provides tiny DB abstractions shared by repositories:
// a minimal interface (DBTX) implemented by both *sql.DB and *sql.Tx,
// and a helper to run functions inside a transaction.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql used by our repos.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ReadCommitted is the isolation used by account mutations. Uniqueness is
// enforced by the insert path, so a stronger level is not required.
var ReadCommitted = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

// Tx is what distinguishes a transactional handle from a pool: *sql.Tx
// implements it, *sql.DB does not.
type Tx interface {
	DBTX
	Commit() error
	Rollback() error
}

// InTx reports whether db is a transactional handle. Operations whose effects
// must share the caller's commit (inserts, task enqueues) check it.
func InTx(db DBTX) bool {
	_, ok := db.(Tx)
	return ok
}

// TxRunner runs fn inside one transaction. Services hold one instead of
// calling WithTx directly so tests can substitute an in-memory transaction.
type TxRunner func(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error

// NewTxRunner returns a TxRunner that opens transactions on db with opts.
func NewTxRunner(db *sql.DB, opts *sql.TxOptions) TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
		return WithTx(ctx, db, opts, fn)
	}
}

// WithTx begins a transaction, runs fn with a transactional handle, and then
// commits on success or rolls back on error/panic. Panics are rethrown.
//
// Typical use:
//
//	err := dbx.WithTx(ctx, db, dbx.ReadCommitted, func(ctx context.Context, tx dbx.DBTX) error {
//	    if err := accounts(tx).Insert(ctx, acc); err != nil {
//	        return err
//	    }
//	    return queue.Add(ctx, tx, opts)
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
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
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}
