package models

import "time"

// NATS Event Types
const (
	EventTicketPurchased = "ticket.purchased"
	EventPointsAwarded   = "points.awarded"
	EventPointsRedeemed  = "points.redeemed"
	EventTierCorrected   = "loyalty.tier_corrected"
)

// TicketPurchasedEvent represents a completed ticket sale
type TicketPurchasedEvent struct {
	TicketID    int64     `json:"ticket_id"`
	EventID     int64     `json:"event_id"`
	UserID      int64     `json:"user_id"`
	SeatNumber  string    `json:"seat_number"`
	Price       uint64    `json:"price"`
	TicketsSold uint64    `json:"tickets_sold"`
	Timestamp   time.Time `json:"timestamp"`
}

// PointsAwardedEvent represents points credited to an account
type PointsAwardedEvent struct {
	UserID         int64     `json:"user_id"`
	PurchaseAmount uint64    `json:"purchase_amount"`
	PointsEarned   uint64    `json:"points_earned"`
	Balance        uint64    `json:"balance"`
	Tier           Tier      `json:"tier"`
	TicketID       *int64    `json:"ticket_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// PointsRedeemedEvent represents points redeemed from an account
type PointsRedeemedEvent struct {
	UserID    int64     `json:"user_id"`
	Points    uint64    `json:"points"`
	Balance   uint64    `json:"balance"`
	Tier      Tier      `json:"tier"`
	Timestamp time.Time `json:"timestamp"`
}

// TierCorrectedEvent is published by the ledger audit when a stored tier disagreed with the point total
type TierCorrectedEvent struct {
	UserID    int64     `json:"user_id"`
	Points    uint64    `json:"points"`
	OldTier   Tier      `json:"old_tier"`
	NewTier   Tier      `json:"new_tier"`
	Timestamp time.Time `json:"timestamp"`
}
