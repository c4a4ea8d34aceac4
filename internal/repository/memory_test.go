package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyaltix/internal/models"
)

func TestMemoryLedgerGetMissing(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()

	account, err := repos.Ledger.Get(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, account)

	ok, err := repos.Ledger.Contains(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryLedgerReturnsCopies(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()

	account := &models.LoyaltyAccount{UserID: 1, Points: 10, Tier: models.TierBronze,
		History: []models.PointsTransaction{{Seq: 0, Points: 10, Description: "seed"}}}
	require.NoError(t, repos.Ledger.Put(ctx, account))

	account.Points = 999
	account.History[0].Points = 999

	got, err := repos.Ledger.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), got.Points)
	assert.Equal(t, int64(10), got.History[0].Points)
}

func TestWithinTxCommits(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()

	err := repos.Tx.WithinTx(ctx, []LockKey{EventLock(1)}, func(ctx context.Context, s Stores) error {
		if err := s.Events.Put(ctx, &models.Event{ID: 1, TicketPrice: 100, TotalTickets: 10}); err != nil {
			return err
		}
		// writes are visible inside the transaction
		ev, err := s.Events.Get(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, ev)
		return s.Tickets.Put(ctx, &models.Ticket{ID: 5, EventID: 1, UserID: 9})
	})
	require.NoError(t, err)

	ev, err := repos.Events.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, uint64(10), ev.TotalTickets)

	tickets, err := repos.Tickets.ListByUser(ctx, 9)
	require.NoError(t, err)
	assert.Len(t, tickets, 1)
}

func TestWithinTxRollsBack(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()
	boom := errors.New("boom")

	err := repos.Tx.WithinTx(ctx, nil, func(ctx context.Context, s Stores) error {
		if err := s.Ledger.Put(ctx, &models.LoyaltyAccount{UserID: 3, Points: 50}); err != nil {
			return err
		}
		if err := s.Tickets.Put(ctx, &models.Ticket{ID: 1, UserID: 3}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	account, err := repos.Ledger.Get(ctx, 3)
	require.NoError(t, err)
	assert.Nil(t, account)

	ticket, err := repos.Tickets.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, ticket)
}

func TestWithinTxSerializesSameKey(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()
	require.NoError(t, repos.Ledger.Put(ctx, &models.LoyaltyAccount{UserID: 1}))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repos.Tx.WithinTx(ctx, []LockKey{UserLock(1)}, func(ctx context.Context, s Stores) error {
				a, err := s.Ledger.Get(ctx, 1)
				if err != nil {
					return err
				}
				a.Points++
				return s.Ledger.Put(ctx, a)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	a, err := repos.Ledger.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), a.Points)
}

func TestWithinTxOppositeLockOrder(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_ = repos.Tx.WithinTx(ctx, []LockKey{UserLock(1), EventLock(1)}, func(context.Context, Stores) error { return nil })
			}()
			go func() {
				defer wg.Done()
				_ = repos.Tx.WithinTx(ctx, []LockKey{EventLock(1), UserLock(1)}, func(context.Context, Stores) error { return nil })
			}()
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("transactions deadlocked")
	}
}

func TestSortLocks(t *testing.T) {
	got := SortLocks([]LockKey{UserLock(2), EventLock(1), UserLock(2), UserLock(1)})
	assert.Equal(t, []LockKey{"event:1", "user:1", "user:2"}, got)
}

func TestLedgerListPages(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()
	for _, id := range []int64{5, 1, 3, 2, 4} {
		require.NoError(t, repos.Ledger.Put(ctx, &models.LoyaltyAccount{UserID: id,
			History: []models.PointsTransaction{{Seq: 0}}}))
	}

	page, err := repos.Ledger.List(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(1), page[0].UserID)
	assert.Equal(t, int64(2), page[1].UserID)
	assert.Nil(t, page[0].History)

	page, err = repos.Ledger.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 3)
}

func TestCounterIDSource(t *testing.T) {
	ids := NewCounterIDSource(10)
	ctx := context.Background()

	a, _ := ids.NextID(ctx)
	b, _ := ids.NextID(ctx)
	assert.Equal(t, int64(11), a)
	assert.Equal(t, int64(12), b)
}

func TestSnowflakeIDSourceIncreasing(t *testing.T) {
	ids, err := NewSnowflakeIDSource(1)
	require.NoError(t, err)
	ctx := context.Background()

	prev, _ := ids.NextID(ctx)
	for i := 0; i < 100; i++ {
		next, _ := ids.NextID(ctx)
		assert.Greater(t, next, prev)
		prev = next
	}

	_, err = NewSnowflakeIDSource(5000)
	assert.Error(t, err)
}

func TestNewIDSourceKinds(t *testing.T) {
	ids, err := NewIDSource(IDSourceSnowflake, 3, nil)
	require.NoError(t, err)
	_, ok := ids.(*SnowflakeIDSource)
	assert.True(t, ok)

	_, err = NewIDSource(IDSourceSnowflake, -1, nil)
	assert.Error(t, err)

	_, err = NewIDSource("uuid", 0, nil)
	assert.Error(t, err)
}
