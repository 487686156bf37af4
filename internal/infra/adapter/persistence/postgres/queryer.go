package postgres

import (
	"context"
	"database/sql"
)

// Queryer is the subset of *sql.DB and *sql.Tx every repository in this
// package depends on. Accepting it instead of a concrete *sql.DB lets
// the same repository implementations run either against the pool
// directly or against a single transaction, which WithTx below uses to
// compose the multi-step persist in usecase/orchestrator.
type Queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var (
	_ Queryer = (*sql.DB)(nil)
	_ Queryer = (*sql.Tx)(nil)
)

// WithTx runs fn inside a new transaction against db, committing on a
// nil return and rolling back otherwise (including on panic, which is
// re-panicked after rollback).
func WithTx(ctx context.Context, db *sql.DB, fn func(ctx context.Context, tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
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
