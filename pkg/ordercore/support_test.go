package ordercore

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/openquant/ordercore/pkg/ordercore/idempotency"
	"github.com/openquant/ordercore/pkg/ordercore/model"
)

// fakeGateway is a scriptable broker for tests.
type fakeGateway struct {
	mu        sync.Mutex
	placed    []*model.Order
	modified  []string
	cancelled []string

	placeErr  error
	modifyErr error
	cancelErr error

	nextID int
}

func (g *fakeGateway) PlaceOrder(_ context.Context, order *model.Order) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.placeErr != nil {
		return "", g.placeErr
	}
	cp := *order
	g.placed = append(g.placed, &cp)
	g.nextID++
	return "BRK-" + strconv.Itoa(g.nextID), nil
}

func (g *fakeGateway) ModifyOrder(_ context.Context, brokerOrderID string, _ *model.Modification) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.modifyErr != nil {
		return g.modifyErr
	}
	g.modified = append(g.modified, brokerOrderID)
	return nil
}

func (g *fakeGateway) CancelOrder(_ context.Context, brokerOrderID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancelErr != nil {
		return g.cancelErr
	}
	g.cancelled = append(g.cancelled, brokerOrderID)
	return nil
}

func (g *fakeGateway) GetOrders(context.Context) ([]model.Order, error) {
	return nil, nil
}

func (g *fakeGateway) GetOrderHistory(context.Context, string) ([]model.Order, error) {
	return nil, nil
}

func (g *fakeGateway) placedCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.placed)
}

// captureRecorder collects decisions for assertions.
type captureRecorder struct {
	mu        sync.Mutex
	decisions []*model.Decision
}

func (r *captureRecorder) Record(_ context.Context, d *model.Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions = append(r.decisions, d)
}

func (r *captureRecorder) byKind(kind string) []*model.Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Decision
	for _, d := range r.decisions {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

func newTestGuard() *idempotency.Guard {
	return idempotency.NewGuard(idempotency.NewMemoryKV(), zap.NewNop())
}
