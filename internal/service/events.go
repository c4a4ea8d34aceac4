package service

import (
	"context"
	"fmt"
	"math"

	"loyaltix/internal/clock"
	apperrors "loyaltix/internal/errors"
	"loyaltix/internal/models"
	"loyaltix/internal/pricing"
	"loyaltix/internal/repository"
)

type EventService struct {
	repos *repository.Repositories
	clock clock.Clock
}

func NewEventService(repos *repository.Repositories, clk clock.Clock) *EventService {
	return &EventService{
		repos: repos,
		clock: clk,
	}
}

// Create registers an event; zero capacity or more sold than capacity is rejected
func (s *EventService) Create(ctx context.Context, req *models.CreateEventRequest) (*models.Event, error) {
	now := s.clock.Now()
	event := &models.Event{
		Title:        req.Title,
		TicketPrice:  req.TicketPrice,
		TotalTickets: req.TotalTickets,
		TicketsSold:  req.TicketsSold,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := pricing.ValidateCapacity(*event); err != nil {
		return nil, err
	}
	// BIGINT columns
	if event.TicketPrice > math.MaxInt64 || event.TotalTickets > math.MaxInt64 {
		return nil, fmt.Errorf("ticket price or capacity too large: %w", apperrors.ErrPriceOverflow)
	}

	id, err := s.repos.IDs.NextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate event id: %w", err)
	}
	event.ID = id

	err = s.repos.Tx.WithinTx(ctx, []repository.LockKey{repository.EventLock(id)}, func(ctx context.Context, st repository.Stores) error {
		return st.Events.Put(ctx, event)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return event, nil
}

func (s *EventService) Get(ctx context.Context, eventID int64) (*models.Event, error) {
	event, err := s.repos.Events.Get(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, fmt.Errorf("event %d: %w", eventID, apperrors.ErrNotFound)
	}
	return event, nil
}
