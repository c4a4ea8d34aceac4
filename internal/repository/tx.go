package repository

import (
	"context"
	"fmt"

	"loyaltix/internal/database"
)

// PostgresTransactor runs units of work in a database transaction.
// Lock keys map to transaction-scoped advisory locks, released on commit or rollback.
type PostgresTransactor struct {
	db *database.DB
}

func NewPostgresTransactor(db *database.DB) *PostgresTransactor {
	return &PostgresTransactor{db: db}
}

func (t *PostgresTransactor) WithinTx(ctx context.Context, locks []LockKey, fn func(ctx context.Context, stores Stores) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, key := range SortLocks(locks) {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, string(key)); err != nil {
			return fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
	}

	stores := Stores{
		Ledger:  &AccountRepository{db: tx},
		Events:  &EventRepository{db: tx},
		Tickets: &TicketRepository{db: tx},
	}
	if err := fn(ctx, stores); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
