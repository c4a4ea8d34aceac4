package repository

import (
	"context"
	"database/sql"

	"loyaltix/internal/database"
	"loyaltix/internal/models"
)

type TicketRepository struct {
	db querier
}

func NewTicketRepository(db *database.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

const ticketColumns = `id, event_id, user_id, purchase_date, seat_number, price`

func (r *TicketRepository) Get(ctx context.Context, ticketID int64) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, ticketID).Scan(
		&ticket.ID,
		&ticket.EventID,
		&ticket.UserID,
		&ticket.PurchaseDate,
		&ticket.SeatNumber,
		&ticket.Price,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return ticket, err
}

func (r *TicketRepository) Put(ctx context.Context, ticket *models.Ticket) error {
	query := `
		INSERT INTO tickets (` + ticketColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			seat_number = EXCLUDED.seat_number,
			price = EXCLUDED.price`

	_, err := r.db.ExecContext(ctx, query,
		ticket.ID,
		ticket.EventID,
		ticket.UserID,
		ticket.PurchaseDate,
		ticket.SeatNumber,
		ticket.Price,
	)
	return err
}

func (r *TicketRepository) ListByUser(ctx context.Context, userID int64) ([]models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE user_id = $1 ORDER BY id`
	return r.query(ctx, query, userID)
}

// List pages through all tickets by ID; limit <= 0 means no limit
func (r *TicketRepository) List(ctx context.Context, afterID int64, limit int) ([]models.Ticket, error) {
	if limit <= 0 {
		query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id > $1 ORDER BY id`
		return r.query(ctx, query, afterID)
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id > $1 ORDER BY id LIMIT $2`
	return r.query(ctx, query, afterID, limit)
}

func (r *TicketRepository) query(ctx context.Context, query string, args ...interface{}) ([]models.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var t models.Ticket
		if err := rows.Scan(
			&t.ID,
			&t.EventID,
			&t.UserID,
			&t.PurchaseDate,
			&t.SeatNumber,
			&t.Price,
		); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}

	return tickets, rows.Err()
}
