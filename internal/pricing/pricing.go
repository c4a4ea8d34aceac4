// Package pricing computes demand-adjusted, tier-discounted ticket prices.
//
// The demand multiplier is sold/total + 0.5. Prices are computed with exact
// integer arithmetic and truncated at both steps, so results do not depend on
// floating point behaviour:
//
//	dynamic = floor(price * (2*sold + total) / (2*total))
//	final   = floor(dynamic * discount / 100)
package pricing

import (
	"fmt"
	"math/big"

	apperrors "loyaltix/internal/errors"
	"loyaltix/internal/loyalty"
	"loyaltix/internal/models"
)

// Quote is the breakdown of a ticket price
type Quote struct {
	Tier            models.Tier
	BasePrice       uint64
	DynamicPrice    uint64
	DiscountPercent uint64
	FinalPrice      uint64
}

// FinalPrice returns the price a buyer with the given tier pays for event.
// Pass models.TierNone for buyers without a loyalty account.
func FinalPrice(event models.Event, tier models.Tier) (uint64, error) {
	q, err := QuoteFor(event, tier)
	if err != nil {
		return 0, err
	}
	return q.FinalPrice, nil
}

// QuoteFor returns the full price breakdown for event and tier
func QuoteFor(event models.Event, tier models.Tier) (Quote, error) {
	if err := ValidateCapacity(event); err != nil {
		return Quote{}, err
	}

	dynamic, err := DynamicPrice(event.TicketPrice, event.TicketsSold, event.TotalTickets)
	if err != nil {
		return Quote{}, err
	}

	pct := loyalty.Discount(tier)
	final := new(big.Int).SetUint64(dynamic)
	final.Mul(final, new(big.Int).SetUint64(pct))
	final.Quo(final, big.NewInt(100))

	return Quote{
		Tier:            tier,
		BasePrice:       event.TicketPrice,
		DynamicPrice:    dynamic,
		DiscountPercent: pct,
		FinalPrice:      final.Uint64(), // pct <= 100, so final <= dynamic
	}, nil
}

// DynamicPrice scales price by the demand multiplier sold/total + 0.5, truncating toward zero
func DynamicPrice(price, sold, total uint64) (uint64, error) {
	if total == 0 {
		return 0, fmt.Errorf("zero total tickets: %w", apperrors.ErrInvalidCapacity)
	}

	num := new(big.Int).SetUint64(sold)
	num.Lsh(num, 1)
	num.Add(num, new(big.Int).SetUint64(total))
	num.Mul(num, new(big.Int).SetUint64(price))

	den := new(big.Int).SetUint64(total)
	den.Lsh(den, 1)

	num.Quo(num, den)
	if !num.IsUint64() {
		return 0, fmt.Errorf("dynamic price for base %d: %w", price, apperrors.ErrPriceOverflow)
	}
	return num.Uint64(), nil
}

// ValidateCapacity rejects events whose counters make the demand ratio undefined
func ValidateCapacity(event models.Event) error {
	if event.TotalTickets == 0 {
		return fmt.Errorf("event %d has no tickets: %w", event.ID, apperrors.ErrInvalidCapacity)
	}
	if event.TicketsSold > event.TotalTickets {
		return fmt.Errorf("event %d sold %d of %d: %w", event.ID, event.TicketsSold, event.TotalTickets, apperrors.ErrInvalidCapacity)
	}
	return nil
}
