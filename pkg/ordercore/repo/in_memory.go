package repo

import (
	"context"
	"sync"

	"github.com/openquant/ordercore/pkg/ordercore/model"
)

// Map-backed stores for dev mode and tests. Each holds value copies so
// callers never share mutable records through the store.

type InMemoryOrderStore struct {
	mu     sync.RWMutex
	orders map[string]model.Order
}

func NewInMemoryOrderStore() *InMemoryOrderStore {
	return &InMemoryOrderStore{orders: make(map[string]model.Order)}
}

func (s *InMemoryOrderStore) Save(_ context.Context, order *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = *order
	return nil
}

func (s *InMemoryOrderStore) FindByID(_ context.Context, id string) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	return &order, nil
}

func (s *InMemoryOrderStore) FindPending(_ context.Context) ([]*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pending []*model.Order
	for _, order := range s.orders {
		switch order.Status {
		case model.OrderStatusPending, model.OrderStatusOpen,
			model.OrderStatusTriggerPending, model.OrderStatusPartial:
			o := order
			pending = append(pending, &o)
		}
	}
	return pending, nil
}

type InMemoryFillStore struct {
	mu    sync.RWMutex
	fills map[string][]model.Fill // broker order id -> fills
}

func NewInMemoryFillStore() *InMemoryFillStore {
	return &InMemoryFillStore{fills: make(map[string][]model.Fill)}
}

func (s *InMemoryFillStore) Save(_ context.Context, fill *model.Fill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fills[fill.BrokerOrderID] = append(s.fills[fill.BrokerOrderID], *fill)
	return nil
}

func (s *InMemoryFillStore) FindByOrderID(_ context.Context, brokerOrderID string) ([]*model.Fill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.fills[brokerOrderID]
	fills := make([]*model.Fill, 0, len(stored))
	for i := range stored {
		f := stored[i]
		fills = append(fills, &f)
	}
	return fills, nil
}

type InMemoryJournalStore struct {
	mu      sync.RWMutex
	entries []model.JournalEntry
}

func NewInMemoryJournalStore() *InMemoryJournalStore {
	return &InMemoryJournalStore{}
}

func (s *InMemoryJournalStore) Save(_ context.Context, entry *model.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *InMemoryJournalStore) Update(_ context.Context, entry *model.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		if s.entries[i].GroupID == entry.GroupID && s.entries[i].LegIndex == entry.LegIndex {
			s.entries[i] = *entry
			return nil
		}
	}
	return nil
}

func (s *InMemoryJournalStore) FindAllPendingOrExecuting(_ context.Context) ([]*model.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pending []*model.JournalEntry
	for i := range s.entries {
		if s.entries[i].Status == model.JournalPending || s.entries[i].Status == model.JournalInProgress {
			e := s.entries[i]
			pending = append(pending, &e)
		}
	}
	return pending, nil
}

// Entries returns a snapshot of every journal row, for tests and dev tools.
func (s *InMemoryJournalStore) Entries() []model.JournalEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.JournalEntry, len(s.entries))
	copy(out, s.entries)
	return out
}
