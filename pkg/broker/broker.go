// Package broker defines the gateway to the exchange-facing order network.
package broker

import (
	"context"

	"github.com/openquant/ordercore/pkg/ordercore/model"
)

// Gateway places, modifies and cancels orders at the broker. Every call is
// synchronous from the caller's point of view; a rejection surfaces as an
// error carrying the broker's reason text.
type Gateway interface {
	// PlaceOrder submits the order and returns the broker-assigned id.
	PlaceOrder(ctx context.Context, order *model.Order) (string, error)
	// ModifyOrder amends an open order in place.
	ModifyOrder(ctx context.Context, brokerOrderID string, mod *model.Modification) error
	// CancelOrder cancels an open order.
	CancelOrder(ctx context.Context, brokerOrderID string) error
	// GetOrders returns the broker's current view of today's orders.
	GetOrders(ctx context.Context) ([]model.Order, error)
	// GetOrderHistory returns the broker-side state transitions of one order.
	GetOrderHistory(ctx context.Context, brokerOrderID string) ([]model.Order, error)
}
