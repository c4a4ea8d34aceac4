package models

import (
	"time"
)

// Tier is a loyalty level derived from the point total
type Tier string

const (
	TierNone     Tier = ""
	TierBronze   Tier = "Bronze"
	TierSilver   Tier = "Silver"
	TierGold     Tier = "Gold"
	TierPlatinum Tier = "Platinum"
)

// Valid reports whether t is one of the four loyalty tiers
func (t Tier) Valid() bool {
	switch t {
	case TierBronze, TierSilver, TierGold, TierPlatinum:
		return true
	}
	return false
}

// LoyaltyAccount represents a user's loyalty ledger
type LoyaltyAccount struct {
	UserID    int64               `json:"user_id" db:"user_id"`
	Points    uint64              `json:"points" db:"points"`
	Tier      Tier                `json:"tier" db:"tier"`
	History   []PointsTransaction `json:"history"` // Not from accounts table, filled separately
	CreatedAt time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt time.Time           `json:"updated_at" db:"updated_at"`
}

// Clone returns a copy that does not share the history slice
func (a *LoyaltyAccount) Clone() *LoyaltyAccount {
	if a == nil {
		return nil
	}
	cp := *a
	cp.History = append([]PointsTransaction(nil), a.History...)
	return &cp
}

// PointsTransaction is a single ledger entry, positive for earn and negative for redeem
type PointsTransaction struct {
	Seq         int       `json:"seq" db:"seq"`
	Timestamp   time.Time `json:"timestamp" db:"created_at"`
	Points      int64     `json:"points" db:"points"`
	Description string    `json:"description" db:"description"`
}

// Event represents an event with capacity and demand counters
type Event struct {
	ID           int64     `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	TicketPrice  uint64    `json:"ticket_price" db:"ticket_price"`
	TotalTickets uint64    `json:"total_tickets" db:"total_tickets"`
	TicketsSold  uint64    `json:"tickets_sold" db:"tickets_sold"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// SoldOut reports whether no tickets are left
func (e *Event) SoldOut() bool {
	return e.TicketsSold >= e.TotalTickets
}

// Ticket represents a purchased ticket
type Ticket struct {
	ID           int64     `json:"id" db:"id"`
	EventID      int64     `json:"event_id" db:"event_id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	PurchaseDate time.Time `json:"purchase_date" db:"purchase_date"`
	SeatNumber   string    `json:"seat_number" db:"seat_number"`
	Price        uint64    `json:"price" db:"price"`
}
