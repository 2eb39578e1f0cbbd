package ordercore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/openquant/ordercore/pkg/ordercore/model"
	"github.com/openquant/ordercore/pkg/ordercore/queue"
	"github.com/openquant/ordercore/pkg/ordercore/repo"
	"github.com/openquant/ordercore/pkg/ordercore/tag"
)

type executorFixture struct {
	queue   *queue.PriorityQueue
	journal *repo.InMemoryJournalStore
	router  *Router
	rec     *captureRecorder
	e       *MultiLegExecutor
}

func newExecutorFixture() *executorFixture {
	f := &executorFixture{
		queue:   queue.NewPriorityQueue(),
		journal: repo.NewInMemoryJournalStore(),
		rec:     &captureRecorder{},
	}
	f.router = NewRouter(f.queue, newTestGuard(), f.rec, zap.NewNop())
	f.e = NewMultiLegExecutor(f.router, f.journal, tag.NewGenerator(), f.rec, zap.NewNop())
	return f
}

func leg(symbol string, side model.OrderSide, qty int64) *model.OrderRequest {
	return &model.OrderRequest{
		Symbol:   symbol,
		Side:     side,
		Type:     model.OrderTypeLimit,
		Quantity: decimal.NewFromInt(qty),
		Price:    decimal.NewFromFloat(100.0),
	}
}

func (f *executorFixture) drainQueue() []*model.PrioritizedOrder {
	var out []*model.PrioritizedOrder
	for {
		po := f.queue.Poll()
		if po == nil {
			return out
		}
		out = append(out, po)
	}
}

func TestExecuteSequentialSuccess(t *testing.T) {
	f := newExecutorFixture()
	legs := []*model.OrderRequest{
		leg("LEG1", model.OrderSideBuy, 50),
		leg("LEG2", model.OrderSideSell, 50),
	}

	res := f.e.ExecuteSequential(context.Background(), legs, "condor-1",
		model.OperationEntry, model.PriorityStrategyEntry)

	if !res.Success {
		t.Fatalf("expected success: %+v", res.Legs)
	}
	if res.GroupID == "" {
		t.Error("group id not assigned")
	}
	for i, lr := range res.Legs {
		if lr.Status != model.JournalExecuted {
			t.Errorf("leg %d: expected EXECUTED, got %s (%s)", i, lr.Status, lr.Reason)
		}
		if lr.Tag == "" {
			t.Errorf("leg %d: no tag assigned", i)
		}
	}

	queued := f.drainQueue()
	if len(queued) != 2 {
		t.Fatalf("expected 2 routed legs, got %d", len(queued))
	}
	for _, po := range queued {
		if po.Request.CorrelationID != res.GroupID {
			t.Errorf("leg correlation %q != group %q", po.Request.CorrelationID, res.GroupID)
		}
		if po.Request.StrategyID != "condor-1" {
			t.Errorf("strategy id not propagated: %q", po.Request.StrategyID)
		}
	}

	for _, entry := range f.journal.Entries() {
		if entry.Status != model.JournalExecuted {
			t.Errorf("journal leg %d: expected EXECUTED, got %s", entry.LegIndex, entry.Status)
		}
	}
}

func TestExecuteSequentialFailureSkipsAndRollsBack(t *testing.T) {
	f := newExecutorFixture()
	// Leg 2 duplicates leg 1's fingerprint, so it is rejected at admission.
	legs := []*model.OrderRequest{
		leg("LEG1", model.OrderSideBuy, 50),
		leg("LEG1", model.OrderSideBuy, 50),
		leg("LEG3", model.OrderSideSell, 50),
		leg("LEG4", model.OrderSideSell, 25),
	}

	res := f.e.ExecuteSequential(context.Background(), legs, "condor-1",
		model.OperationEntry, model.PriorityStrategyEntry)

	if res.Success {
		t.Fatal("expected failure")
	}
	want := []model.JournalStatus{
		model.JournalExecuted, model.JournalFailed, model.JournalSkipped, model.JournalSkipped,
	}
	for i, lr := range res.Legs {
		if lr.Status != want[i] {
			t.Errorf("leg %d: expected %s, got %s", i, want[i], lr.Status)
		}
	}
	if res.Legs[1].Reason == "" {
		t.Error("failed leg carries no reason")
	}
	if res.Legs[2].Reason != "earlier leg failed" {
		t.Errorf("skipped leg reason: %q", res.Legs[2].Reason)
	}

	// Queue: the executed leg plus exactly one compensating order.
	queued := f.drainQueue()
	if len(queued) != 2 {
		t.Fatalf("expected executed leg + rollback, got %d entries", len(queued))
	}
	rb := queued[1].Request
	if rb.Side != model.OrderSideSell {
		t.Errorf("rollback side: expected SELL, got %s", rb.Side)
	}
	if !strings.HasPrefix(rb.CorrelationID, "ROLLBACK-") {
		t.Errorf("rollback correlation id: %q", rb.CorrelationID)
	}
	if rb.Symbol != "LEG1" || !rb.Quantity.Equal(decimal.NewFromInt(50)) {
		t.Errorf("rollback must mirror the executed leg: %+v", rb)
	}

	// Journal mirrors the leg results.
	for i, entry := range f.journal.Entries() {
		if entry.Status != want[i] {
			t.Errorf("journal leg %d: expected %s, got %s", i, want[i], entry.Status)
		}
	}
}

func TestExecuteSequentialFirstLegFailureNoRollback(t *testing.T) {
	f := newExecutorFixture()
	// Pre-route a twin of leg 1, so the operation's first leg is a duplicate.
	twin := leg("LEG1", model.OrderSideBuy, 50)
	twin.StrategyID = "condor-1"
	f.router.Route(context.Background(), twin, model.PriorityStrategyEntry)
	f.drainQueue()

	legs := []*model.OrderRequest{
		leg("LEG1", model.OrderSideBuy, 50),
		leg("LEG2", model.OrderSideSell, 50),
	}
	res := f.e.ExecuteSequential(context.Background(), legs, "condor-1",
		model.OperationEntry, model.PriorityStrategyEntry)

	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Legs[0].Status != model.JournalFailed {
		t.Errorf("leg 0: expected FAILED, got %s", res.Legs[0].Status)
	}
	if res.Legs[1].Status != model.JournalSkipped {
		t.Errorf("leg 1: expected SKIPPED, got %s", res.Legs[1].Status)
	}
	if queued := f.drainQueue(); len(queued) != 0 {
		t.Errorf("nothing succeeded, so nothing should be routed: %d entries", len(queued))
	}
}

func TestExecuteParallelRollsBackExecutedLegs(t *testing.T) {
	f := newExecutorFixture()
	// Poison leg 2's fingerprint so its rejection is deterministic under
	// concurrent submission.
	twin := leg("LEG2", model.OrderSideSell, 50)
	twin.StrategyID = "condor-1"
	f.router.Route(context.Background(), twin, model.PriorityStrategyEntry)
	f.drainQueue()

	legs := []*model.OrderRequest{
		leg("LEG1", model.OrderSideBuy, 50),
		leg("LEG2", model.OrderSideSell, 50),
		leg("LEG3", model.OrderSideSell, 25),
	}
	res := f.e.ExecuteParallel(context.Background(), legs, "condor-1",
		model.OperationEntry, model.PriorityStrategyEntry)

	if res.Success {
		t.Fatal("expected failure")
	}
	if len(res.Legs) != 3 {
		t.Fatalf("every leg needs a result, got %d", len(res.Legs))
	}
	for i, lr := range res.Legs {
		if lr.Status == model.JournalSkipped {
			t.Errorf("leg %d: parallel mode must not skip", i)
		}
	}
	if res.Legs[1].Status != model.JournalFailed {
		t.Errorf("leg 1: expected FAILED, got %s", res.Legs[1].Status)
	}

	rollbacks := 0
	for _, po := range f.drainQueue() {
		if strings.HasPrefix(po.Request.CorrelationID, "ROLLBACK-") {
			rollbacks++
		}
	}
	if rollbacks != 2 {
		t.Errorf("expected 2 rollback orders, got %d", rollbacks)
	}
}

func TestExecuteBuyFirstThenSellReorders(t *testing.T) {
	f := newExecutorFixture()
	legs := []*model.OrderRequest{
		leg("S1", model.OrderSideSell, 50),
		leg("B1", model.OrderSideBuy, 50),
		leg("S2", model.OrderSideSell, 25),
		leg("B2", model.OrderSideBuy, 25),
	}

	res := f.e.ExecuteBuyFirstThenSell(context.Background(), legs, "flatten-1",
		model.OperationFlatten, model.PriorityRiskExit)
	if !res.Success {
		t.Fatalf("expected success: %+v", res.Legs)
	}

	var symbols []string
	for _, po := range f.drainQueue() {
		symbols = append(symbols, po.Request.Symbol)
	}
	want := []string{"B1", "B2", "S1", "S2"}
	for i, sym := range want {
		if symbols[i] != sym {
			t.Fatalf("expected order %v, got %v", want, symbols)
		}
	}
}

func TestExecuteEmptyLegs(t *testing.T) {
	f := newExecutorFixture()

	res := f.e.ExecuteSequential(context.Background(), nil, "condor-1",
		model.OperationEntry, model.PriorityStrategyEntry)
	if res.Success {
		t.Fatal("empty operation must fail")
	}
	if len(res.Legs) != 0 {
		t.Errorf("expected no leg results, got %d", len(res.Legs))
	}

	decisions := f.rec.byKind(model.DecisionMultiLeg)
	if len(decisions) != 1 {
		t.Fatalf("expected 1 multi-leg decision, got %d", len(decisions))
	}
	d := decisions[0]
	if d.Accepted {
		t.Error("empty operation must be recorded as rejected")
	}
	if d.Reason != "operation has no legs" {
		t.Errorf("decision reason: %q", d.Reason)
	}
	if d.StrategyID != "condor-1" {
		t.Errorf("decision strategy id: %q", d.StrategyID)
	}
}

type failingJournal struct{}

func (failingJournal) Save(context.Context, *model.JournalEntry) error {
	return errors.New("disk full")
}

func (failingJournal) Update(context.Context, *model.JournalEntry) error {
	return errors.New("disk full")
}

func (failingJournal) FindAllPendingOrExecuting(context.Context) ([]*model.JournalEntry, error) {
	return nil, nil
}

func TestExecuteAbortsWhenWriteAheadFails(t *testing.T) {
	f := newExecutorFixture()
	f.e = NewMultiLegExecutor(f.router, failingJournal{}, tag.NewGenerator(), f.rec, zap.NewNop())

	legs := []*model.OrderRequest{
		leg("LEG1", model.OrderSideBuy, 50),
		leg("LEG2", model.OrderSideSell, 50),
	}
	res := f.e.ExecuteSequential(context.Background(), legs, "condor-1",
		model.OperationEntry, model.PriorityStrategyEntry)

	if res.Success {
		t.Fatal("expected failure")
	}
	for i, lr := range res.Legs {
		if lr.Status != model.JournalFailed {
			t.Errorf("leg %d: expected FAILED, got %s", i, lr.Status)
		}
	}
	if queued := f.drainQueue(); len(queued) != 0 {
		t.Errorf("no leg may be routed without its journal row: %d entries", len(queued))
	}
}

// flakyJournal delegates to an in-memory store but starts refusing Save
// calls after the first failAfter rows have been written.
type flakyJournal struct {
	*repo.InMemoryJournalStore
	failAfter int
	saves     int
}

func (j *flakyJournal) Save(ctx context.Context, entry *model.JournalEntry) error {
	j.saves++
	if j.saves > j.failAfter {
		return errors.New("disk full")
	}
	return j.InMemoryJournalStore.Save(ctx, entry)
}

func TestPartialWriteAheadFailureTerminatesWrittenRows(t *testing.T) {
	f := newExecutorFixture()
	journal := &flakyJournal{InMemoryJournalStore: f.journal, failAfter: 1}
	f.e = NewMultiLegExecutor(f.router, journal, tag.NewGenerator(), f.rec, zap.NewNop())

	legs := []*model.OrderRequest{
		leg("LEG1", model.OrderSideBuy, 50),
		leg("LEG2", model.OrderSideSell, 50),
	}
	res := f.e.ExecuteSequential(context.Background(), legs, "condor-1",
		model.OperationEntry, model.PriorityStrategyEntry)

	if res.Success {
		t.Fatal("expected failure")
	}
	entries := f.journal.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 journaled row, got %d", len(entries))
	}
	// The row written before the failure must not linger in PENDING, or
	// recovery would treat it as an order awaiting routing.
	if entries[0].Status != model.JournalFailed {
		t.Errorf("written row: expected FAILED, got %s", entries[0].Status)
	}
	if !strings.Contains(entries[0].Reason, "journal write failed") {
		t.Errorf("written row reason: %q", entries[0].Reason)
	}
	if queued := f.drainQueue(); len(queued) != 0 {
		t.Errorf("aborted operation must route nothing: %d entries", len(queued))
	}
}

func TestKillSwitchBlocksMultiLegOperation(t *testing.T) {
	f := newExecutorFixture()
	f.router.ActivateKillSwitch(context.Background())

	legs := []*model.OrderRequest{
		leg("LEG1", model.OrderSideBuy, 50),
		leg("LEG2", model.OrderSideSell, 50),
	}
	res := f.e.ExecuteParallel(context.Background(), legs, "condor-1",
		model.OperationEntry, model.PriorityStrategyEntry)

	if res.Success {
		t.Fatal("expected failure under kill switch")
	}
	for i, lr := range res.Legs {
		if lr.Status != model.JournalFailed {
			t.Errorf("leg %d: expected FAILED, got %s", i, lr.Status)
		}
	}
	if queued := f.drainQueue(); len(queued) != 0 {
		t.Errorf("kill switch must block every leg: %d routed", len(queued))
	}
}
