package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// TxFunc is a function that runs within a transaction.
type TxFunc func(*sql.Tx) error

// WithTransaction executes fn within a read-write transaction.
// It commits on success and rolls back on error or panic, re-raising the panic.
func (db *DB) WithTransaction(ctx context.Context, fn TxFunc) error {
	return db.runTx(ctx, false, fn)
}

// WithReadTransaction executes fn within a transaction that is always rolled
// back, so multi-statement reads observe a single point-in-time snapshot.
func (db *DB) WithReadTransaction(ctx context.Context, fn TxFunc) error {
	return db.runTx(ctx, true, fn)
}

func (db *DB) runTx(ctx context.Context, readOnly bool, fn TxFunc) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil || readOnly {
			if rbErr := tx.Rollback(); rbErr != nil && err != nil {
				err = fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
			}
		} else {
			err = tx.Commit()
			if err != nil {
				err = fmt.Errorf("failed to commit transaction: %w", err)
			}
		}
	}()

	return fn(tx)
}
