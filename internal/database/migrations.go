package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createIDSequence,
		createLoyaltyAccountsTable,
		createPointsTransactionsTable,
		createEventsTable,
		createTicketsTable,
		createTicketsUserIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createIDSequence = `
CREATE SEQUENCE IF NOT EXISTS entity_id_seq START WITH 1;`

const createLoyaltyAccountsTable = `
CREATE TABLE IF NOT EXISTS loyalty_accounts (
    user_id BIGINT PRIMARY KEY,
    points BIGINT NOT NULL DEFAULT 0 CHECK (points >= 0),
    tier VARCHAR(16) NOT NULL DEFAULT 'Bronze'
        CHECK (tier IN ('Bronze', 'Silver', 'Gold', 'Platinum')),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createPointsTransactionsTable = `
CREATE TABLE IF NOT EXISTS points_transactions (
    user_id BIGINT NOT NULL REFERENCES loyalty_accounts(user_id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    points BIGINT NOT NULL,
    description TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (user_id, seq)
);`

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id BIGINT PRIMARY KEY,
    title VARCHAR(500) NOT NULL DEFAULT '',
    ticket_price BIGINT NOT NULL CHECK (ticket_price >= 0),
    total_tickets BIGINT NOT NULL CHECK (total_tickets > 0),
    tickets_sold BIGINT NOT NULL DEFAULT 0
        CHECK (tickets_sold >= 0 AND tickets_sold <= total_tickets),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createTicketsTable = `
CREATE TABLE IF NOT EXISTS tickets (
    id BIGINT PRIMARY KEY,
    event_id BIGINT NOT NULL REFERENCES events(id),
    user_id BIGINT NOT NULL,
    purchase_date TIMESTAMPTZ NOT NULL,
    seat_number VARCHAR(64) NOT NULL,
    price BIGINT NOT NULL CHECK (price >= 0)
);`

const createTicketsUserIndex = `
CREATE INDEX IF NOT EXISTS idx_tickets_user_id ON tickets(user_id);`
