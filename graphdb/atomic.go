package graphdb

import (
	"context"
	"database/sql"
)

// Cursor executes statements inside a unit of work. *sql.Tx satisfies it.
type Cursor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Work is a deferred unit of work. Nothing runs until it is handed to Atomic.
type Work func(ctx context.Context, cur Cursor) error

// Chain flattens several units into one so they commit or roll back together.
func Chain(works ...Work) Work {
	return func(ctx context.Context, cur Cursor) error {
		for _, w := range works {
			if err := w(ctx, cur); err != nil {
				return err
			}
		}
		return nil
	}
}

type atomicKey struct{}

// Atomic runs work on a dedicated connection inside one transaction, with
// foreign key checking on. It commits when work returns nil and rolls back
// otherwise, including on panic.
func (s *Store) Atomic(ctx context.Context, work Work) error {
	_, err := atomically(ctx, s, nil, func(ctx context.Context, cur Cursor) (struct{}, error) {
		return struct{}{}, work(ctx, cur)
	})
	return err
}

func view[T any](ctx context.Context, s *Store, fn func(ctx context.Context, cur Cursor) (T, error)) (T, error) {
	return atomically(ctx, s, &sql.TxOptions{ReadOnly: true}, fn)
}

func atomically[T any](ctx context.Context, s *Store, opts *sql.TxOptions, fn func(ctx context.Context, cur Cursor) (T, error)) (T, error) {
	var zero T

	if ctx.Value(atomicKey{}) != nil {
		return zero, ErrNestedAtomic
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return zero, &ConnectionError{Err: err}
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return zero, &ConnectionError{Err: err}
	}

	tx, err := conn.BeginTx(ctx, opts)
	if err != nil {
		return zero, &TransactionError{Err: err}
	}

	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	result, err := fn(context.WithValue(ctx, atomicKey{}, true), tx)
	if err != nil {
		return zero, &TransactionError{Err: err}
	}

	if err := tx.Commit(); err != nil {
		return zero, &TransactionError{Err: err}
	}
	committed = true

	return result, nil
}
