package repository

import (
	"context"
	"fmt"
	"sort"

	"loyaltix/internal/database"
	"loyaltix/internal/models"
)

// LedgerStore maps user IDs to loyalty accounts.
// Get returns (nil, nil) when the account does not exist.
type LedgerStore interface {
	Get(ctx context.Context, userID int64) (*models.LoyaltyAccount, error)
	Put(ctx context.Context, account *models.LoyaltyAccount) error
	Contains(ctx context.Context, userID int64) (bool, error)
	// List returns accounts ordered by user ID, without history
	List(ctx context.Context, afterUserID int64, limit int) ([]models.LoyaltyAccount, error)
}

// EventStore is the contract with the event catalog: read counters, write them back
type EventStore interface {
	Get(ctx context.Context, eventID int64) (*models.Event, error)
	Put(ctx context.Context, event *models.Event) error
}

// TicketStore maps ticket IDs to tickets
type TicketStore interface {
	Get(ctx context.Context, ticketID int64) (*models.Ticket, error)
	Put(ctx context.Context, ticket *models.Ticket) error
	ListByUser(ctx context.Context, userID int64) ([]models.Ticket, error)
	List(ctx context.Context, afterID int64, limit int) ([]models.Ticket, error)
}

// IDSource hands out unique, increasing identifiers for new records
type IDSource interface {
	NextID(ctx context.Context) (int64, error)
}

// Stores groups the three stores, either bound to a transaction or not
type Stores struct {
	Ledger  LedgerStore
	Events  EventStore
	Tickets TicketStore
}

// Transactor runs fn against stores bound to a single transaction.
// Writes made through those stores are committed only if fn returns nil.
// The given lock keys are held for the whole transaction.
type Transactor interface {
	WithinTx(ctx context.Context, locks []LockKey, fn func(ctx context.Context, stores Stores) error) error
}

// LockKey names a critical section
type LockKey string

func UserLock(userID int64) LockKey {
	return LockKey(fmt.Sprintf("user:%d", userID))
}

func EventLock(eventID int64) LockKey {
	return LockKey(fmt.Sprintf("event:%d", eventID))
}

// SortLocks returns the keys deduplicated in acquisition order.
// Every implementation takes locks in this order so two transactions never wait on each other in a cycle.
func SortLocks(keys []LockKey) []LockKey {
	out := make([]LockKey, 0, len(keys))
	seen := make(map[LockKey]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type Repositories struct {
	Stores
	Tx  Transactor
	IDs IDSource
}

func NewRepositories(db *database.DB, ids IDSource) *Repositories {
	return &Repositories{
		Stores: Stores{
			Ledger:  NewAccountRepository(db),
			Events:  NewEventRepository(db),
			Tickets: NewTicketRepository(db),
		},
		Tx:  NewPostgresTransactor(db),
		IDs: ids,
	}
}

func NewMemoryRepositories() *Repositories {
	store := NewMemoryStore()
	return &Repositories{
		Stores: store.Stores(),
		Tx:     store,
		IDs:    NewCounterIDSource(0),
	}
}
