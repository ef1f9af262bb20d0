package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// SafeTx is a bun.Tx whose Rollback is a no-op once Commit succeeded.
//
// When the bun.IDB a write begins on is itself a transaction, bun issues
// savepoints, and ROLLBACK TO SAVEPOINT after RELEASE SAVEPOINT aborts the
// outer transaction. Deferring Rollback on a SafeTx is always safe.
type SafeTx struct {
	bun.Tx
	committed bool
}

func BeginSafeTx(ctx context.Context, db bun.IDB) (*SafeTx, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &SafeTx{Tx: tx}, nil
}

func (tx *SafeTx) Commit() error {
	if tx.committed {
		return nil
	}
	if err := tx.Tx.Commit(); err != nil {
		return err
	}
	tx.committed = true
	return nil
}

func (tx *SafeTx) Rollback() error {
	if tx.committed {
		return nil
	}
	return tx.Tx.Rollback()
}

// RunInTx commits when fn returns nil and rolls back otherwise. Every store
// write goes through here so a failed write leaves no partial rows.
func RunInTx(ctx context.Context, db bun.IDB, fn func(tx bun.IDB) error) error {
	tx, err := BeginSafeTx(ctx, db)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
