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
	"loyaltix/internal/repository"
	"loyaltix/internal/tracing"
)

type LoyaltyService struct {
	repos     *repository.Repositories
	publisher messaging.Publisher
	accounts  *accountCache
	clock     clock.Clock
	metrics   *metrics.Metrics
}

func NewLoyaltyService(repos *repository.Repositories, publisher messaging.Publisher, accounts *accountCache, clk clock.Clock, m *metrics.Metrics) *LoyaltyService {
	return &LoyaltyService{
		repos:     repos,
		publisher: publisher,
		accounts:  accounts,
		clock:     clk,
		metrics:   m,
	}
}

// Award credits the points earned for a purchase of amount, opening the account if needed
func (s *LoyaltyService) Award(ctx context.Context, userID int64, amount uint64) (account *models.LoyaltyAccount, err error) {
	ctx, span := tracing.StartSpan(ctx, "loyalty.award",
		attribute.Int64("user_id", userID),
		attribute.Int64("amount", int64(amount)),
	)
	defer func() { tracing.End(span, err) }()

	var earned uint64
	now := s.clock.Now()
	err = s.repos.Tx.WithinTx(ctx, []repository.LockKey{repository.UserLock(userID)}, func(ctx context.Context, st repository.Stores) error {
		existing, err := st.Ledger.Get(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get account: %w", err)
		}

		account, earned, err = creditPurchase(ctx, st.Ledger, existing, userID, amount, now)
		return err
	})
	s.metrics.LedgerOps.WithLabelValues("award", metrics.Result(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("failed to award points: %w", err)
	}

	s.metrics.PointsAwarded.Add(float64(earned))
	s.accounts.invalidate(ctx, userID)
	publish(ctx, s.publisher, models.EventPointsAwarded, models.PointsAwardedEvent{
		UserID:         userID,
		PurchaseAmount: amount,
		PointsEarned:   earned,
		Balance:        account.Points,
		Tier:           account.Tier,
		Timestamp:      now,
	})

	return account, nil
}

// Redeem debits points from an existing account.
// A failed redeem leaves the account untouched, so retrying it is safe.
func (s *LoyaltyService) Redeem(ctx context.Context, userID int64, points uint64) (account *models.LoyaltyAccount, err error) {
	ctx, span := tracing.StartSpan(ctx, "loyalty.redeem",
		attribute.Int64("user_id", userID),
		attribute.Int64("points", int64(points)),
	)
	defer func() { tracing.End(span, err) }()

	now := s.clock.Now()
	err = s.repos.Tx.WithinTx(ctx, []repository.LockKey{repository.UserLock(userID)}, func(ctx context.Context, st repository.Stores) error {
		existing, err := st.Ledger.Get(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to get account: %w", err)
		}
		if existing == nil {
			return fmt.Errorf("account %d: %w", userID, apperrors.ErrNotFound)
		}

		if err := loyalty.Debit(existing, points, loyalty.RedemptionDescription, now); err != nil {
			return err
		}
		if err := st.Ledger.Put(ctx, existing); err != nil {
			return fmt.Errorf("failed to save account: %w", err)
		}

		account = existing
		return nil
	})
	s.metrics.LedgerOps.WithLabelValues("redeem", metrics.Result(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("failed to redeem points: %w", err)
	}

	s.metrics.PointsRedeemed.Add(float64(points))
	s.accounts.invalidate(ctx, userID)
	publish(ctx, s.publisher, models.EventPointsRedeemed, models.PointsRedeemedEvent{
		UserID:    userID,
		Points:    points,
		Balance:   account.Points,
		Tier:      account.Tier,
		Timestamp: now,
	})

	return account, nil
}

// Get returns the account with its history, served from cache when possible
func (s *LoyaltyService) Get(ctx context.Context, userID int64) (*models.LoyaltyAccount, error) {
	if account := s.accounts.get(ctx, userID); account != nil {
		return account, nil
	}

	account, err := s.repos.Ledger.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %d: %w", userID, apperrors.ErrNotFound)
	}

	s.accounts.set(ctx, account)
	return account, nil
}
