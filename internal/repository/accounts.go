package repository

import (
	"context"
	"database/sql"
	"fmt"

	"loyaltix/internal/database"
	"loyaltix/internal/models"
)

type AccountRepository struct {
	db querier
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Get(ctx context.Context, userID int64) (*models.LoyaltyAccount, error) {
	account := &models.LoyaltyAccount{}
	query := `
		SELECT user_id, points, tier, created_at, updated_at
		FROM loyalty_accounts
		WHERE user_id = $1`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&account.UserID,
		&account.Points,
		&account.Tier,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	history, err := r.history(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	account.History = history

	return account, nil
}

func (r *AccountRepository) history(ctx context.Context, userID int64) ([]models.PointsTransaction, error) {
	query := `
		SELECT seq, points, description, created_at
		FROM points_transactions
		WHERE user_id = $1
		ORDER BY seq`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := []models.PointsTransaction{}
	for rows.Next() {
		var t models.PointsTransaction
		if err := rows.Scan(&t.Seq, &t.Points, &t.Description, &t.Timestamp); err != nil {
			return nil, err
		}
		history = append(history, t)
	}

	return history, rows.Err()
}

// Put upserts the account row and appends history entries not yet stored.
// History is append-only, so only entries past the stored maximum seq are written.
// Several statements are issued; run it inside WithinTx when atomicity matters.
func (r *AccountRepository) Put(ctx context.Context, account *models.LoyaltyAccount) error {
	upsert := `
		INSERT INTO loyalty_accounts (user_id, points, tier, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			points = EXCLUDED.points,
			tier = EXCLUDED.tier,
			updated_at = EXCLUDED.updated_at`

	if _, err := r.db.ExecContext(ctx, upsert,
		account.UserID,
		account.Points,
		account.Tier,
		account.CreatedAt,
		account.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}

	var maxSeq int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), -1) FROM points_transactions WHERE user_id = $1`,
		account.UserID,
	).Scan(&maxSeq); err != nil {
		return fmt.Errorf("failed to read history position: %w", err)
	}

	insert := `
		INSERT INTO points_transactions (user_id, seq, points, description, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	for _, t := range account.History {
		if t.Seq <= maxSeq {
			continue
		}
		if _, err := r.db.ExecContext(ctx, insert,
			account.UserID,
			t.Seq,
			t.Points,
			t.Description,
			t.Timestamp,
		); err != nil {
			return fmt.Errorf("failed to append history entry %d: %w", t.Seq, err)
		}
	}

	return nil
}

func (r *AccountRepository) Contains(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM loyalty_accounts WHERE user_id = $1)`,
		userID,
	).Scan(&exists)
	return exists, err
}

func (r *AccountRepository) List(ctx context.Context, afterUserID int64, limit int) ([]models.LoyaltyAccount, error) {
	query := `
		SELECT user_id, points, tier, created_at, updated_at
		FROM loyalty_accounts
		WHERE user_id > $1
		ORDER BY user_id`
	args := []interface{}{afterUserID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.LoyaltyAccount
	for rows.Next() {
		var a models.LoyaltyAccount
		if err := rows.Scan(&a.UserID, &a.Points, &a.Tier, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}
