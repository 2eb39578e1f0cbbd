package queue

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openquant/ordercore/pkg/ordercore/model"
)

func req(symbol string) *model.OrderRequest {
	return &model.OrderRequest{
		Symbol:   symbol,
		Side:     model.OrderSideBuy,
		Type:     model.OrderTypeLimit,
		Quantity: decimal.NewFromInt(10),
	}
}

func TestPriorityOrdering(t *testing.T) {
	q := NewPriorityQueue()

	q.Enqueue(req("MANUAL"), model.PriorityManual)
	q.Enqueue(req("ENTRY"), model.PriorityStrategyEntry)
	q.Enqueue(req("KILL"), model.PriorityKillSwitch)
	q.Enqueue(req("RISK"), model.PriorityRiskExit)

	want := []string{"KILL", "RISK", "ENTRY", "MANUAL"}
	for i, sym := range want {
		po := q.Poll()
		if po == nil {
			t.Fatalf("poll %d: queue empty", i)
		}
		if po.Request.Symbol != sym {
			t.Errorf("poll %d: expected %s, got %s", i, sym, po.Request.Symbol)
		}
	}
	if !q.IsEmpty() {
		t.Errorf("queue should be empty, size=%d", q.Size())
	}
}

func TestFIFOWithinPriority(t *testing.T) {
	q := NewPriorityQueue()

	q.Enqueue(req("A"), model.PriorityStrategyEntry)
	q.Enqueue(req("B"), model.PriorityStrategyEntry)
	q.Enqueue(req("C"), model.PriorityStrategyEntry)

	var prevSeq int64
	for _, sym := range []string{"A", "B", "C"} {
		po := q.Poll()
		if po.Request.Symbol != sym {
			t.Errorf("expected %s, got %s", sym, po.Request.Symbol)
		}
		if po.Seq <= prevSeq {
			t.Errorf("sequence not increasing: %d after %d", po.Seq, prevSeq)
		}
		prevSeq = po.Seq
	}
}

func TestPollEmptyReturnsNil(t *testing.T) {
	q := NewPriorityQueue()
	if po := q.Poll(); po != nil {
		t.Errorf("expected nil from empty queue, got %+v", po)
	}
}

func TestTakeBlocksUntilEnqueue(t *testing.T) {
	q := NewPriorityQueue()

	done := make(chan *model.PrioritizedOrder, 1)
	go func() {
		po, err := q.Take(context.Background())
		if err != nil {
			t.Errorf("take failed: %v", err)
		}
		done <- po
	}()

	select {
	case <-done:
		t.Fatal("take returned before enqueue")
	case <-time.After(50 * time.Millisecond):
	}

	q.Enqueue(req("LATE"), model.PriorityManual)

	select {
	case po := <-done:
		if po.Request.Symbol != "LATE" {
			t.Errorf("expected LATE, got %s", po.Request.Symbol)
		}
	case <-time.After(time.Second):
		t.Fatal("take did not wake up after enqueue")
	}
}

func TestTakeHonorsContextCancel(t *testing.T) {
	q := NewPriorityQueue()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := q.Take(ctx)
		done <- err
	}()

	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("take did not return after cancel")
	}
}

func TestTakeDrainsBeforeBlocking(t *testing.T) {
	q := NewPriorityQueue()
	q.Enqueue(req("X"), model.PriorityManual)
	q.Enqueue(req("Y"), model.PriorityManual)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for _, sym := range []string{"X", "Y"} {
		po, err := q.Take(ctx)
		if err != nil {
			t.Fatalf("take failed: %v", err)
		}
		if po.Request.Symbol != sym {
			t.Errorf("expected %s, got %s", sym, po.Request.Symbol)
		}
	}
}

func TestClear(t *testing.T) {
	q := NewPriorityQueue()
	q.Enqueue(req("A"), model.PriorityManual)
	q.Enqueue(req("B"), model.PriorityKillSwitch)

	q.Clear()

	if q.Size() != 0 {
		t.Errorf("expected empty queue after clear, size=%d", q.Size())
	}
	if po := q.Poll(); po != nil {
		t.Errorf("expected nil after clear, got %+v", po)
	}
}
