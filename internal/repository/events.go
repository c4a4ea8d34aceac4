package repository

import (
	"context"
	"database/sql"

	"loyaltix/internal/database"
	"loyaltix/internal/models"
)

// querier is satisfied by both *database.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type EventRepository struct {
	db querier
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Get(ctx context.Context, eventID int64) (*models.Event, error) {
	event := &models.Event{}
	query := `
		SELECT id, title, ticket_price, total_tickets, tickets_sold, created_at, updated_at
		FROM events
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, eventID).Scan(
		&event.ID,
		&event.Title,
		&event.TicketPrice,
		&event.TotalTickets,
		&event.TicketsSold,
		&event.CreatedAt,
		&event.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return event, err
}

// Put inserts the event or overwrites its counters
func (r *EventRepository) Put(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (id, title, ticket_price, total_tickets, tickets_sold, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			ticket_price = EXCLUDED.ticket_price,
			total_tickets = EXCLUDED.total_tickets,
			tickets_sold = EXCLUDED.tickets_sold,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.Title,
		event.TicketPrice,
		event.TotalTickets,
		event.TicketsSold,
		event.CreatedAt,
		event.UpdatedAt,
	)
	return err
}
