package repository

import (
	"context"
	"sort"
	"sync"

	"loyaltix/internal/models"
)

// MemoryStore keeps all records in process memory.
// Transactions stage their writes and apply them in one step on commit.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[int64]*models.LoyaltyAccount
	events   map[int64]models.Event
	tickets  map[int64]models.Ticket

	locks keyedMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[int64]*models.LoyaltyAccount),
		events:   make(map[int64]models.Event),
		tickets:  make(map[int64]models.Ticket),
	}
}

// Stores returns stores that write straight to the maps
func (s *MemoryStore) Stores() Stores {
	return s.bind(nil)
}

func (s *MemoryStore) WithinTx(ctx context.Context, locks []LockKey, fn func(ctx context.Context, stores Stores) error) error {
	unlock := s.locks.lock(locks)
	defer unlock()

	tx := &memTx{
		accounts: make(map[int64]*models.LoyaltyAccount),
		events:   make(map[int64]models.Event),
		tickets:  make(map[int64]models.Ticket),
	}

	if err := fn(ctx, s.bind(tx)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.commit(tx)
	return nil
}

func (s *MemoryStore) bind(tx *memTx) Stores {
	return Stores{
		Ledger:  &memLedger{s: s, tx: tx},
		Events:  &memEvents{s: s, tx: tx},
		Tickets: &memTickets{s: s, tx: tx},
	}
}

func (s *MemoryStore) commit(tx *memTx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, a := range tx.accounts {
		s.accounts[id] = a
	}
	for id, e := range tx.events {
		s.events[id] = e
	}
	for id, t := range tx.tickets {
		s.tickets[id] = t
	}
}

// memTx holds writes staged by one transaction
type memTx struct {
	accounts map[int64]*models.LoyaltyAccount
	events   map[int64]models.Event
	tickets  map[int64]models.Ticket
}

type memLedger struct {
	s  *MemoryStore
	tx *memTx
}

func (l *memLedger) Get(ctx context.Context, userID int64) (*models.LoyaltyAccount, error) {
	if l.tx != nil {
		if a, ok := l.tx.accounts[userID]; ok {
			return a.Clone(), nil
		}
	}

	l.s.mu.RLock()
	defer l.s.mu.RUnlock()
	return l.s.accounts[userID].Clone(), nil
}

func (l *memLedger) Put(ctx context.Context, account *models.LoyaltyAccount) error {
	if l.tx != nil {
		l.tx.accounts[account.UserID] = account.Clone()
		return nil
	}

	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.s.accounts[account.UserID] = account.Clone()
	return nil
}

func (l *memLedger) Contains(ctx context.Context, userID int64) (bool, error) {
	a, err := l.Get(ctx, userID)
	return a != nil, err
}

func (l *memLedger) List(ctx context.Context, afterUserID int64, limit int) ([]models.LoyaltyAccount, error) {
	merged := make(map[int64]*models.LoyaltyAccount)

	l.s.mu.RLock()
	for id, a := range l.s.accounts {
		merged[id] = a
	}
	l.s.mu.RUnlock()

	if l.tx != nil {
		for id, a := range l.tx.accounts {
			merged[id] = a
		}
	}

	var result []models.LoyaltyAccount
	for id, a := range merged {
		if id <= afterUserID {
			continue
		}
		cp := *a
		cp.History = nil
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

type memEvents struct {
	s  *MemoryStore
	tx *memTx
}

func (e *memEvents) Get(ctx context.Context, eventID int64) (*models.Event, error) {
	if e.tx != nil {
		if ev, ok := e.tx.events[eventID]; ok {
			return &ev, nil
		}
	}

	e.s.mu.RLock()
	defer e.s.mu.RUnlock()
	ev, ok := e.s.events[eventID]
	if !ok {
		return nil, nil
	}
	return &ev, nil
}

func (e *memEvents) Put(ctx context.Context, event *models.Event) error {
	if e.tx != nil {
		e.tx.events[event.ID] = *event
		return nil
	}

	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	e.s.events[event.ID] = *event
	return nil
}

type memTickets struct {
	s  *MemoryStore
	tx *memTx
}

func (t *memTickets) Get(ctx context.Context, ticketID int64) (*models.Ticket, error) {
	if t.tx != nil {
		if tk, ok := t.tx.tickets[ticketID]; ok {
			return &tk, nil
		}
	}

	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	tk, ok := t.s.tickets[ticketID]
	if !ok {
		return nil, nil
	}
	return &tk, nil
}

func (t *memTickets) Put(ctx context.Context, ticket *models.Ticket) error {
	if t.tx != nil {
		t.tx.tickets[ticket.ID] = *ticket
		return nil
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.tickets[ticket.ID] = *ticket
	return nil
}

func (t *memTickets) ListByUser(ctx context.Context, userID int64) ([]models.Ticket, error) {
	all := t.snapshot()

	var result []models.Ticket
	for _, tk := range all {
		if tk.UserID == userID {
			result = append(result, tk)
		}
	}
	return result, nil
}

func (t *memTickets) List(ctx context.Context, afterID int64, limit int) ([]models.Ticket, error) {
	all := t.snapshot()

	var result []models.Ticket
	for _, tk := range all {
		if tk.ID > afterID {
			result = append(result, tk)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// snapshot returns base and staged tickets ordered by ID
func (t *memTickets) snapshot() []models.Ticket {
	merged := make(map[int64]models.Ticket)

	t.s.mu.RLock()
	for id, tk := range t.s.tickets {
		merged[id] = tk
	}
	t.s.mu.RUnlock()

	if t.tx != nil {
		for id, tk := range t.tx.tickets {
			merged[id] = tk
		}
	}

	result := make([]models.Ticket, 0, len(merged))
	for _, tk := range merged {
		result = append(result, tk)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// keyedMutex is a set of mutexes created on demand and dropped when unused
type keyedMutex struct {
	mu    sync.Mutex
	locks map[LockKey]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

// lock acquires every key in SortLocks order and returns the release func
func (k *keyedMutex) lock(keys []LockKey) func() {
	keys = SortLocks(keys)
	held := make([]*refMutex, 0, len(keys))

	for _, key := range keys {
		k.mu.Lock()
		if k.locks == nil {
			k.locks = make(map[LockKey]*refMutex)
		}
		m, ok := k.locks[key]
		if !ok {
			m = &refMutex{}
			k.locks[key] = m
		}
		m.refs++
		k.mu.Unlock()

		m.Lock()
		held = append(held, m)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()

			k.mu.Lock()
			held[i].refs--
			if held[i].refs == 0 {
				delete(k.locks, keys[i])
			}
			k.mu.Unlock()
		}
	}
}
