package service

import (
	"context"
	"fmt"
	"time"

	"loyaltix/internal/cache"
	"loyaltix/internal/clock"
	"loyaltix/internal/logger"
	"loyaltix/internal/loyalty"
	"loyaltix/internal/messaging"
	"loyaltix/internal/metrics"
	"loyaltix/internal/models"
	"loyaltix/internal/repository"
)

type Services struct {
	Events  *EventService
	Tickets *TicketService
	Loyalty *LoyaltyService
}

// NewServices wires the services; accountCache may be nil to disable caching
func NewServices(repos *repository.Repositories, publisher messaging.Publisher, accountCache cache.Cache, cacheTTL time.Duration, clk clock.Clock, m *metrics.Metrics) *Services {
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}
	accounts := newAccountCache(accountCache, cacheTTL, m)

	return &Services{
		Events:  NewEventService(repos, clk),
		Tickets: NewTicketService(repos, publisher, accounts, clk, m),
		Loyalty: NewLoyaltyService(repos, publisher, accounts, clk, m),
	}
}

// creditPurchase credits the points earned for amount and stores the account.
// account may be nil, in which case a fresh Bronze account is opened.
func creditPurchase(ctx context.Context, ledger repository.LedgerStore, account *models.LoyaltyAccount, userID int64, amount uint64, now time.Time) (*models.LoyaltyAccount, uint64, error) {
	if account == nil {
		account = loyalty.NewAccount(userID, now)
	}

	earned := loyalty.PointsForPurchase(amount)
	if err := loyalty.Credit(account, earned, loyalty.PurchaseDescription(amount), now); err != nil {
		return nil, 0, err
	}

	if err := ledger.Put(ctx, account); err != nil {
		return nil, 0, fmt.Errorf("failed to save account: %w", err)
	}

	return account, earned, nil
}

// publish is best effort: the change is already committed, so failures are only logged
func publish(ctx context.Context, publisher messaging.Publisher, subject string, payload interface{}) {
	if err := publisher.Publish(subject, payload); err != nil {
		logger.WithContext(ctx).Error("Failed to publish event", "subject", subject, "error", err)
	}
}

// accountCache keeps account snapshots for GET /api/loyalty/:user_id
type accountCache struct {
	cache   cache.Cache
	ttl     time.Duration
	metrics *metrics.Metrics
}

func newAccountCache(c cache.Cache, ttl time.Duration, m *metrics.Metrics) *accountCache {
	if c == nil || ttl <= 0 {
		return &accountCache{metrics: m}
	}
	return &accountCache{cache: c, ttl: ttl, metrics: m}
}

func (a *accountCache) get(ctx context.Context, userID int64) *models.LoyaltyAccount {
	if a.cache == nil {
		return nil
	}

	var account models.LoyaltyAccount
	err := cache.GetJSON(ctx, a.cache, cache.AccountKey(userID), &account)
	switch {
	case err == nil:
		a.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return &account
	case err == cache.ErrNotFound:
		a.metrics.CacheLookups.WithLabelValues("miss").Inc()
	default:
		a.metrics.CacheLookups.WithLabelValues("error").Inc()
		logger.WithContext(ctx).Warn("Account cache lookup failed", "user_id", userID, "error", err)
	}
	return nil
}

func (a *accountCache) set(ctx context.Context, account *models.LoyaltyAccount) {
	if a.cache == nil {
		return
	}
	if err := cache.SetJSON(ctx, a.cache, cache.AccountKey(account.UserID), account, a.ttl); err != nil {
		logger.WithContext(ctx).Warn("Failed to cache account", "user_id", account.UserID, "error", err)
	}
}

func (a *accountCache) invalidate(ctx context.Context, userID int64) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Delete(ctx, cache.AccountKey(userID)); err != nil {
		logger.WithContext(ctx).Warn("Failed to invalidate cached account", "user_id", userID, "error", err)
	}
}
