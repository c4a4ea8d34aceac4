// Package loyalty holds the point accrual rules and the ledger mutations.
// Everything here is pure: callers load and persist accounts themselves.
package loyalty

import (
	"fmt"
	"math"
	"time"

	apperrors "loyaltix/internal/errors"
	"loyaltix/internal/models"
)

const (
	silverThreshold   = 2000
	goldThreshold     = 5000
	platinumThreshold = 10000

	// MaxPoints is the largest balance an account may hold (BIGINT column)
	MaxPoints = uint64(math.MaxInt64)
)

// PointsForPurchase returns the points earned for spending amount.
// Base rate is 1 point per 10 units; bonus brackets do not stack.
func PointsForPurchase(amount uint64) uint64 {
	base := amount / 10

	var bonus uint64
	switch {
	case amount >= 1000:
		bonus = base / 2
	case amount >= 500:
		bonus = base / 4
	case amount >= 200:
		bonus = base / 10
	}

	return base + bonus
}

// TierForPoints derives the tier from a point total
func TierForPoints(points uint64) models.Tier {
	switch {
	case points >= platinumThreshold:
		return models.TierPlatinum
	case points >= goldThreshold:
		return models.TierGold
	case points >= silverThreshold:
		return models.TierSilver
	default:
		return models.TierBronze
	}
}

// Discount returns the percentage of the dynamic price a tier pays.
// Unknown tiers, including TierNone for buyers without an account, pay full price.
func Discount(tier models.Tier) uint64 {
	switch tier {
	case models.TierPlatinum:
		return 80
	case models.TierGold:
		return 85
	case models.TierSilver:
		return 90
	case models.TierBronze:
		return 95
	default:
		return 100
	}
}

// NewAccount returns the default account handed out on first award
func NewAccount(userID int64, at time.Time) *models.LoyaltyAccount {
	return &models.LoyaltyAccount{
		UserID:    userID,
		Tier:      models.TierBronze,
		History:   []models.PointsTransaction{},
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// PurchaseDescription is the ledger label for points earned on a purchase
func PurchaseDescription(amount uint64) string {
	return fmt.Sprintf("Points earned from purchase: %d", amount)
}

// RedemptionDescription is the ledger label for redeemed points
const RedemptionDescription = "Points redemption"

// Credit adds points to the account and appends an earn entry.
// The account is left untouched on error.
func Credit(account *models.LoyaltyAccount, points uint64, description string, at time.Time) error {
	if points > MaxPoints-account.Points {
		return fmt.Errorf("credit %d to balance %d: %w", points, account.Points, apperrors.ErrPointsOverflow)
	}

	account.Points += points
	appendEntry(account, int64(points), description, at)
	return nil
}

// Debit removes points from the account and appends a negative entry.
// Fails with ErrInsufficientBalance without touching the account.
func Debit(account *models.LoyaltyAccount, points uint64, description string, at time.Time) error {
	if account.Points < points {
		return fmt.Errorf("redeem %d from balance %d: %w", points, account.Points, apperrors.ErrInsufficientBalance)
	}

	account.Points -= points
	appendEntry(account, -int64(points), description, at)
	return nil
}

// appendEntry records a ledger entry and re-derives the tier, which must happen on every mutation
func appendEntry(account *models.LoyaltyAccount, delta int64, description string, at time.Time) {
	account.History = append(account.History, models.PointsTransaction{
		Seq:         len(account.History),
		Timestamp:   at,
		Points:      delta,
		Description: description,
	})
	account.Tier = TierForPoints(account.Points)
	account.UpdatedAt = at
}

// Consistent reports whether the stored tier matches the point total
func Consistent(account *models.LoyaltyAccount) bool {
	return account.Tier == TierForPoints(account.Points)
}
