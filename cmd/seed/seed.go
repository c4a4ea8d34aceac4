package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"loyaltix/internal/models"
	"loyaltix/internal/pricing"
	"loyaltix/internal/service"
)

// SeedFile - содержимое YAML файла с начальными данными
type SeedFile struct {
	Events   []SeedEvent   `yaml:"events"`
	Accounts []SeedAccount `yaml:"accounts"`
}

type SeedEvent struct {
	Title        string `yaml:"title"`
	TicketPrice  uint64 `yaml:"ticket_price"`
	TotalTickets uint64 `yaml:"total_tickets"`
	TicketsSold  uint64 `yaml:"tickets_sold"`
}

// SeedAccount начисляет баллы так, будто пользователь потратил Amount
type SeedAccount struct {
	UserID int64  `yaml:"user_id"`
	Amount uint64 `yaml:"amount"`
}

type Summary struct {
	Events   int
	Accounts int
}

// parseSeedFile читает YAML и отклоняет файл целиком, если хоть одна запись некорректна
func parseSeedFile(r io.Reader) (*SeedFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var seed SeedFile
	if err := dec.Decode(&seed); err != nil {
		if errors.Is(err, io.EOF) {
			return &seed, nil
		}
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	for i, e := range seed.Events {
		ev := models.Event{TicketPrice: e.TicketPrice, TotalTickets: e.TotalTickets, TicketsSold: e.TicketsSold}
		if err := pricing.ValidateCapacity(ev); err != nil {
			return nil, fmt.Errorf("events[%d] %q: %w", i, e.Title, err)
		}
	}
	for i, a := range seed.Accounts {
		if a.UserID <= 0 {
			return nil, fmt.Errorf("accounts[%d]: user_id must be positive", i)
		}
	}

	return &seed, nil
}

func applySeed(ctx context.Context, services *service.Services, seed *SeedFile) (Summary, error) {
	var summary Summary

	for _, e := range seed.Events {
		event, err := services.Events.Create(ctx, &models.CreateEventRequest{
			Title:        e.Title,
			TicketPrice:  e.TicketPrice,
			TotalTickets: e.TotalTickets,
			TicketsSold:  e.TicketsSold,
		})
		if err != nil {
			return summary, fmt.Errorf("failed to create event %q: %w", e.Title, err)
		}
		slog.Info("Created event", "event_id", event.ID, "title", event.Title, "total_tickets", event.TotalTickets)
		summary.Events++
	}

	for _, a := range seed.Accounts {
		account, err := services.Loyalty.Award(ctx, a.UserID, a.Amount)
		if err != nil {
			return summary, fmt.Errorf("failed to award user %d: %w", a.UserID, err)
		}
		slog.Info("Awarded points", "user_id", a.UserID, "points", account.Points, "tier", account.Tier)
		summary.Accounts++
	}

	return summary, nil
}
