package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"loyaltix/internal/clock"
	apperrors "loyaltix/internal/errors"
	"loyaltix/internal/loyalty"
	"loyaltix/internal/messaging"
	"loyaltix/internal/metrics"
	"loyaltix/internal/models"
	"loyaltix/internal/pricing"
	"loyaltix/internal/repository"
	"loyaltix/internal/tracing"
)

// PurchaseResult is everything a purchase changed
type PurchaseResult struct {
	Ticket       models.Ticket
	Account      models.LoyaltyAccount
	Event        models.Event
	PointsEarned uint64
}

type TicketService struct {
	repos     *repository.Repositories
	publisher messaging.Publisher
	accounts  *accountCache
	clock     clock.Clock
	metrics   *metrics.Metrics
}

func NewTicketService(repos *repository.Repositories, publisher messaging.Publisher, accounts *accountCache, clk clock.Clock, m *metrics.Metrics) *TicketService {
	return &TicketService{
		repos:     repos,
		publisher: publisher,
		accounts:  accounts,
		clock:     clk,
		metrics:   m,
	}
}

// Purchase sells one ticket at the buyer's current price and credits the earned points.
// The ticket, the sold counter and the ledger entry are written in one transaction:
// on any error none of them is changed.
func (s *TicketService) Purchase(ctx context.Context, eventID, userID int64, seatNumber string) (result *PurchaseResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "tickets.purchase",
		attribute.Int64("event_id", eventID),
		attribute.Int64("user_id", userID),
	)
	defer func() { tracing.End(span, err) }()

	now := s.clock.Now()
	locks := []repository.LockKey{repository.EventLock(eventID), repository.UserLock(userID)}

	err = s.repos.Tx.WithinTx(ctx, locks, func(ctx context.Context, st repository.Stores) error {
		event, err := st.Events.Get(ctx, eventID)
		if err != nil {
			return fmt.Errorf("failed to get event: %w", err)
		}
		if event == nil {
			return fmt.Errorf("event %d: %w", eventID, apperrors.ErrNotFound)
		}
		if event.SoldOut() {
			return fmt.Errorf("event %d sold %d of %d: %w", eventID, event.TicketsSold, event.TotalTickets, apperrors.ErrEventFull)
		}

		account, err := st.Ledger.Get(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get account: %w", err)
		}
		tier := models.TierNone
		if account != nil {
			tier = account.Tier
		}

		price, err := pricing.FinalPrice(*event, tier)
		if err != nil {
			return err
		}

		ticketID, err := s.repos.IDs.NextID(ctx)
		if err != nil {
			return fmt.Errorf("failed to allocate ticket id: %w", err)
		}

		ticket := models.Ticket{
			ID:           ticketID,
			EventID:      eventID,
			UserID:       userID,
			PurchaseDate: now,
			SeatNumber:   seatNumber,
			Price:        price,
		}
		if err := st.Tickets.Put(ctx, &ticket); err != nil {
			return fmt.Errorf("failed to save ticket: %w", err)
		}

		event.TicketsSold++
		event.UpdatedAt = now
		if err := st.Events.Put(ctx, event); err != nil {
			return fmt.Errorf("failed to update event: %w", err)
		}

		account, earned, err := creditPurchase(ctx, st.Ledger, account, userID, price, now)
		if err != nil {
			return fmt.Errorf("failed to credit points: %w", err)
		}

		result = &PurchaseResult{
			Ticket:       ticket,
			Account:      *account,
			Event:        *event,
			PointsEarned: earned,
		}
		return nil
	})
	s.metrics.Purchases.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("failed to purchase ticket: %w", err)
	}

	s.metrics.PurchaseRevenue.Add(float64(result.Ticket.Price))
	s.metrics.PointsAwarded.Add(float64(result.PointsEarned))
	s.accounts.invalidate(ctx, userID)

	publish(ctx, s.publisher, models.EventTicketPurchased, models.TicketPurchasedEvent{
		TicketID:    result.Ticket.ID,
		EventID:     eventID,
		UserID:      userID,
		SeatNumber:  seatNumber,
		Price:       result.Ticket.Price,
		TicketsSold: result.Event.TicketsSold,
		Timestamp:   now,
	})
	ticketID := result.Ticket.ID
	publish(ctx, s.publisher, models.EventPointsAwarded, models.PointsAwardedEvent{
		UserID:         userID,
		PurchaseAmount: result.Ticket.Price,
		PointsEarned:   result.PointsEarned,
		Balance:        result.Account.Points,
		Tier:           result.Account.Tier,
		TicketID:       &ticketID,
		Timestamp:      now,
	})

	return result, nil
}

// Quote previews the price userID would pay right now; nothing is written
func (s *TicketService) Quote(ctx context.Context, eventID, userID int64) (*models.PriceQuoteResponse, error) {
	event, err := s.repos.Events.Get(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, fmt.Errorf("event %d: %w", eventID, apperrors.ErrNotFound)
	}

	tier := models.TierNone
	if userID != 0 {
		account, err := s.repos.Ledger.Get(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to get account: %w", err)
		}
		if account != nil {
			tier = account.Tier
		}
	}

	q, err := pricing.QuoteFor(*event, tier)
	if err != nil {
		return nil, err
	}

	return &models.PriceQuoteResponse{
		EventID:         eventID,
		UserID:          userID,
		Tier:            q.Tier,
		BasePrice:       q.BasePrice,
		DynamicPrice:    q.DynamicPrice,
		DiscountPercent: q.DiscountPercent,
		FinalPrice:      q.FinalPrice,
		PointsToEarn:    loyalty.PointsForPurchase(q.FinalPrice),
	}, nil
}

func (s *TicketService) GetTicket(ctx context.Context, ticketID int64) (*models.Ticket, error) {
	ticket, err := s.repos.Tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	if ticket == nil {
		return nil, fmt.Errorf("ticket %d: %w", ticketID, apperrors.ErrNotFound)
	}
	return ticket, nil
}

func (s *TicketService) ListTickets(ctx context.Context, userID int64) ([]models.Ticket, error) {
	tickets, err := s.repos.Tickets.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	if tickets == nil {
		tickets = []models.Ticket{}
	}
	return tickets, nil
}
