package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyaltix/internal/cache"
	"loyaltix/internal/clock"
	apperrors "loyaltix/internal/errors"
	"loyaltix/internal/loyalty"
	"loyaltix/internal/metrics"
	"loyaltix/internal/models"
	"loyaltix/internal/repository"
)

type published struct {
	subject string
	payload interface{}
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *recordingPublisher) Publish(subject string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{subject: subject, payload: data})
	return nil
}

func (p *recordingPublisher) subjects() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, m := range p.msgs {
		out = append(out, m.subject)
	}
	return out
}

type fixture struct {
	svc       *Services
	repos     *repository.Repositories
	publisher *recordingPublisher
	clock     *clock.Manual
	metrics   *metrics.Metrics
	cache     *cache.InMemoryCache
}

var start = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repos:     repository.NewMemoryRepositories(),
		publisher: &recordingPublisher{},
		clock:     clock.NewManual(start),
		metrics:   metrics.New(),
		cache:     cache.NewInMemoryCache(),
	}
	f.svc = NewServices(f.repos, f.publisher, f.cache, time.Minute, f.clock, f.metrics)
	return f
}

func (f *fixture) event(t *testing.T, price, total, sold uint64) *models.Event {
	t.Helper()
	ev, err := f.svc.Events.Create(context.Background(), &models.CreateEventRequest{
		Title: "concert", TicketPrice: price, TotalTickets: total, TicketsSold: sold,
	})
	require.NoError(t, err)
	return ev
}

func (f *fixture) account(t *testing.T, userID int64, points uint64) {
	t.Helper()
	a := loyalty.NewAccount(userID, start)
	require.NoError(t, loyalty.Credit(a, points, "seed", start))
	require.NoError(t, f.repos.Ledger.Put(context.Background(), a))
}

func TestAwardCreatesAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	account, err := f.svc.Loyalty.Award(ctx, 1, 1000)
	require.NoError(t, err)

	assert.Equal(t, uint64(150), account.Points)
	assert.Equal(t, models.TierBronze, account.Tier)
	require.Len(t, account.History, 1)
	assert.Equal(t, "Points earned from purchase: 1000", account.History[0].Description)
	assert.Equal(t, start, account.History[0].Timestamp)
	assert.Equal(t, []string{models.EventPointsAwarded}, f.publisher.subjects())
	assert.Equal(t, float64(150), testutil.ToFloat64(f.metrics.PointsAwarded))
}

func TestAwardZeroAmount(t *testing.T) {
	f := newFixture(t)

	account, err := f.svc.Loyalty.Award(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), account.Points)
	assert.Len(t, account.History, 1)
}

func TestAwardPromotesTier(t *testing.T) {
	f := newFixture(t)
	f.account(t, 1, 1950)

	account, err := f.svc.Loyalty.Award(context.Background(), 1, 500)
	require.NoError(t, err)
	assert.Equal(t, uint64(2012), account.Points)
	assert.Equal(t, models.TierSilver, account.Tier)
	assert.True(t, loyalty.Consistent(account))
}

func TestRedeem(t *testing.T) {
	f := newFixture(t)
	f.account(t, 1, 5100)
	ctx := context.Background()

	account, err := f.svc.Loyalty.Redeem(ctx, 1, 200)
	require.NoError(t, err)
	assert.Equal(t, uint64(4900), account.Points)
	assert.Equal(t, models.TierSilver, account.Tier)
	assert.Equal(t, int64(-200), account.History[len(account.History)-1].Points)
	assert.Equal(t, []string{models.EventPointsRedeemed}, f.publisher.subjects())
}

func TestRedeemUnknownAccount(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Loyalty.Redeem(context.Background(), 99, 1)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	ok, err := f.repos.Ledger.Contains(context.Background(), 99)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedeemInsufficientIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.account(t, 1, 100)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Loyalty.Redeem(ctx, 1, 101)
		assert.True(t, errors.Is(err, apperrors.ErrInsufficientBalance))
	}

	account, err := f.repos.Ledger.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), account.Points)
	assert.Len(t, account.History, 1)
	assert.Empty(t, f.publisher.subjects())
	assert.Equal(t, float64(3), testutil.ToFloat64(f.metrics.LedgerOps.WithLabelValues("redeem", metrics.ResultError)))
}

func TestGetCachesAndInvalidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Loyalty.Get(ctx, 1)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	_, err = f.svc.Loyalty.Award(ctx, 1, 100)
	require.NoError(t, err)

	first, err := f.svc.Loyalty.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), first.Points)

	second, err := f.svc.Loyalty.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, first.Points, second.Points)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.CacheLookups.WithLabelValues("hit")))

	_, err = f.svc.Loyalty.Award(ctx, 1, 100)
	require.NoError(t, err)

	third, err := f.svc.Loyalty.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), third.Points)
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("nats down")

	account, err := f.svc.Loyalty.Award(context.Background(), 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint64(150), account.Points)
}

func TestPurchase(t *testing.T) {
	f := newFixture(t)
	f.account(t, 7, 5000)
	ev := f.event(t, 100, 100, 50)
	ctx := context.Background()

	f.clock.Advance(time.Hour)
	res, err := f.svc.Tickets.Purchase(ctx, ev.ID, 7, "A1")
	require.NoError(t, err)

	assert.Equal(t, uint64(85), res.Ticket.Price)
	assert.Equal(t, "A1", res.Ticket.SeatNumber)
	assert.Equal(t, start.Add(time.Hour), res.Ticket.PurchaseDate)
	assert.Equal(t, uint64(51), res.Event.TicketsSold)
	assert.Equal(t, uint64(8), res.PointsEarned)
	assert.Equal(t, uint64(5008), res.Account.Points)
	assert.Equal(t, "Points earned from purchase: 85", res.Account.History[len(res.Account.History)-1].Description)

	stored, err := f.svc.Tickets.GetTicket(ctx, res.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Ticket, *stored)

	stored2, err := f.svc.Events.Get(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(51), stored2.TicketsSold)

	assert.Equal(t, []string{models.EventTicketPurchased, models.EventPointsAwarded}, f.publisher.subjects())
	assert.Equal(t, float64(85), testutil.ToFloat64(f.metrics.PurchaseRevenue))
}

func TestPurchaseWithoutAccountPaysFullPrice(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 100, 100, 0)

	res, err := f.svc.Tickets.Purchase(context.Background(), ev.ID, 3, "B2")
	require.NoError(t, err)
	assert.Equal(t, uint64(50), res.Ticket.Price)
	assert.Equal(t, uint64(5), res.Account.Points)
	assert.Equal(t, models.TierBronze, res.Account.Tier)
}

func TestPurchaseMissingEvent(t *testing.T) {
	f := newFixture(t)
	f.account(t, 1, 10)
	ctx := context.Background()

	_, err := f.svc.Tickets.Purchase(ctx, 12345, 1, "A1")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	tickets, err := f.svc.Tickets.ListTickets(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, tickets)

	account, err := f.repos.Ledger.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), account.Points)
	assert.Len(t, account.History, 1)
	assert.Empty(t, f.publisher.subjects())
}

func TestPurchaseSoldOut(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 100, 2, 1)
	ctx := context.Background()

	_, err := f.svc.Tickets.Purchase(ctx, ev.ID, 1, "A1")
	require.NoError(t, err)

	_, err = f.svc.Tickets.Purchase(ctx, ev.ID, 2, "A2")
	assert.True(t, errors.Is(err, apperrors.ErrEventFull))

	stored, err := f.svc.Events.Get(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stored.TicketsSold)

	ok, err := f.repos.Ledger.Contains(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPurchaseRollsBackWhenCreditFails(t *testing.T) {
	f := newFixture(t)
	f.account(t, 1, loyalty.MaxPoints)
	ev := f.event(t, 1000, 10, 0)
	ctx := context.Background()

	_, err := f.svc.Tickets.Purchase(ctx, ev.ID, 1, "A1")
	assert.True(t, errors.Is(err, apperrors.ErrPointsOverflow))

	stored, err := f.svc.Events.Get(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stored.TicketsSold)

	tickets, err := f.svc.Tickets.ListTickets(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, tickets)

	account, err := f.repos.Ledger.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, loyalty.MaxPoints, account.Points)
	assert.Len(t, account.History, 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Purchases.WithLabelValues(metrics.ResultError)))
}

func TestConcurrentPurchasesNeverOversell(t *testing.T) {
	f := newFixture(t)
	ev := f.event(t, 100, 10, 0)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	sold, full := 0, 0
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			_, err := f.svc.Tickets.Purchase(ctx, ev.ID, user, "GA")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				sold++
			case errors.Is(err, apperrors.ErrEventFull):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(int64(i%5 + 1))
	}
	wg.Wait()

	assert.Equal(t, 10, sold)
	assert.Equal(t, 20, full)

	stored, err := f.svc.Events.Get(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), stored.TicketsSold)

	// the ledger agrees with the tickets
	for user := int64(1); user <= 5; user++ {
		tickets, err := f.svc.Tickets.ListTickets(ctx, user)
		require.NoError(t, err)
		account, err := f.repos.Ledger.Get(ctx, user)
		require.NoError(t, err)
		if account == nil {
			assert.Empty(t, tickets)
			continue
		}
		assert.Len(t, account.History, len(tickets))
		var sum int64
		for _, e := range account.History {
			sum += e.Points
		}
		assert.Equal(t, int64(account.Points), sum)
	}
}

func TestQuote(t *testing.T) {
	f := newFixture(t)
	f.account(t, 1, 10000)
	ev := f.event(t, 200, 4, 2)
	ctx := context.Background()

	q, err := f.svc.Tickets.Quote(ctx, ev.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.TierPlatinum, q.Tier)
	assert.Equal(t, uint64(200), q.DynamicPrice)
	assert.Equal(t, uint64(160), q.FinalPrice)
	assert.Equal(t, uint64(16), q.PointsToEarn)

	q, err = f.svc.Tickets.Quote(ctx, ev.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(200), q.FinalPrice)

	_, err = f.svc.Tickets.Quote(ctx, 999, 1)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	stored, err := f.svc.Events.Get(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stored.TicketsSold)
}

func TestCreateEventValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Events.Create(ctx, &models.CreateEventRequest{TicketPrice: 10, TotalTickets: 0})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCapacity))

	_, err = f.svc.Events.Create(ctx, &models.CreateEventRequest{TicketPrice: 10, TotalTickets: 5, TicketsSold: 6})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidCapacity))

	a := f.event(t, 10, 5, 0)
	b := f.event(t, 10, 5, 5)
	assert.Greater(t, b.ID, a.ID)

	_, err = f.svc.Events.Get(ctx, 424242)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestGetTicketMissing(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Tickets.GetTicket(context.Background(), 1)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
