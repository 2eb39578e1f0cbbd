package ordercore

import (
	"context"

	"github.com/openquant/ordercore/pkg/ordercore/model"
)

// OrderStore is the real-time order record store. FindByID returns
// (nil, nil) when the order does not exist.
type OrderStore interface {
	Save(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id string) (*model.Order, error)
	FindPending(ctx context.Context) ([]*model.Order, error)
}

// FillStore keeps the append-only fill rows, keyed by broker order id.
type FillStore interface {
	Save(ctx context.Context, fill *model.Fill) error
	FindByOrderID(ctx context.Context, brokerOrderID string) ([]*model.Fill, error)
}

// JournalStore persists the multi-leg write-ahead journal.
// FindAllPendingOrExecuting serves the external crash-recovery scan.
type JournalStore interface {
	Save(ctx context.Context, entry *model.JournalEntry) error
	Update(ctx context.Context, entry *model.JournalEntry) error
	FindAllPendingOrExecuting(ctx context.Context) ([]*model.JournalEntry, error)
}
