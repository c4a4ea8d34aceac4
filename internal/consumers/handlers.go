package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/stan.go"

	"loyaltix/internal/models"
	"loyaltix/internal/repository"
)

// TicketIndexer puts purchased tickets into the search index
type TicketIndexer interface {
	IndexTicket(ctx context.Context, ticket *models.Ticket) error
}

type Handlers struct {
	repos   *repository.Repositories
	indexer TicketIndexer
}

// NewHandlers; indexer may be nil when search is disabled
func NewHandlers(repos *repository.Repositories, indexer TicketIndexer) *Handlers {
	return &Handlers{
		repos:   repos,
		indexer: indexer,
	}
}

// ack acknowledges m only when processing succeeded; otherwise it is redelivered after AckWait
func ack(m *stan.Msg, subject string, err error) {
	if err != nil {
		slog.Error("Failed to process message", "subject", subject, "sequence", m.Sequence, "error", err)
		return
	}
	if err := m.Ack(); err != nil {
		slog.Error("Failed to ack message", "subject", subject, "sequence", m.Sequence, "error", err)
	}
}

func (h *Handlers) HandleTicketPurchased(m *stan.Msg) {
	ack(m, models.EventTicketPurchased, h.processTicketPurchased(context.Background(), m.Data))
}

func (h *Handlers) HandlePointsAwarded(m *stan.Msg) {
	ack(m, models.EventPointsAwarded, h.processPointsAwarded(m.Data))
}

func (h *Handlers) HandlePointsRedeemed(m *stan.Msg) {
	ack(m, models.EventPointsRedeemed, h.processPointsRedeemed(m.Data))
}

func (h *Handlers) HandleTierCorrected(m *stan.Msg) {
	ack(m, models.EventTierCorrected, h.processTierCorrected(m.Data))
}

// processTicketPurchased indexes the stored ticket, not the message copy
func (h *Handlers) processTicketPurchased(ctx context.Context, data []byte) error {
	var event models.TicketPurchasedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		// poison message, redelivery will not help
		slog.Error("Failed to unmarshal ticket purchased event", "error", err)
		return nil
	}

	slog.Info("Processing ticket purchased event",
		"ticket_id", event.TicketID, "event_id", event.EventID, "user_id", event.UserID, "price", event.Price)

	if h.indexer == nil {
		return nil
	}

	ticket, err := h.repos.Tickets.Get(ctx, event.TicketID)
	if err != nil {
		return fmt.Errorf("failed to get ticket %d: %w", event.TicketID, err)
	}
	if ticket == nil {
		slog.Warn("Ticket from event not found, skipping", "ticket_id", event.TicketID)
		return nil
	}

	if err := h.indexer.IndexTicket(ctx, ticket); err != nil {
		return fmt.Errorf("failed to index ticket %d: %w", ticket.ID, err)
	}
	return nil
}

func (h *Handlers) processPointsAwarded(data []byte) error {
	var event models.PointsAwardedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		slog.Error("Failed to unmarshal points awarded event", "error", err)
		return nil
	}

	fields := []any{
		"user_id", event.UserID,
		"points_earned", event.PointsEarned,
		"balance", event.Balance,
		"tier", event.Tier,
	}
	if event.TicketID != nil {
		fields = append(fields, "ticket_id", *event.TicketID)
	}
	slog.Info("Points awarded", fields...)
	return nil
}

func (h *Handlers) processPointsRedeemed(data []byte) error {
	var event models.PointsRedeemedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		slog.Error("Failed to unmarshal points redeemed event", "error", err)
		return nil
	}

	slog.Info("Points redeemed",
		"user_id", event.UserID, "points", event.Points, "balance", event.Balance, "tier", event.Tier)
	return nil
}

func (h *Handlers) processTierCorrected(data []byte) error {
	var event models.TierCorrectedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		slog.Error("Failed to unmarshal tier corrected event", "error", err)
		return nil
	}

	slog.Warn("Loyalty tier corrected",
		"user_id", event.UserID, "points", event.Points, "old_tier", event.OldTier, "new_tier", event.NewTier)
	return nil
}
