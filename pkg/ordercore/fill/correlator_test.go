package fill

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/openquant/ordercore/pkg/ordercore/model"
)

func fillEvent(correlationID string, status model.OrderStatus) *model.OrderEvent {
	return &model.OrderEvent{
		Type:          model.EventOrderFill,
		Order:         model.Order{ID: "O1", CorrelationID: correlationID, Status: status},
		CorrelationID: correlationID,
		Timestamp:     time.Now(),
	}
}

func rejectEvent(correlationID, reason string) *model.OrderEvent {
	return &model.OrderEvent{
		Type:          model.EventOrderRejected,
		Order:         model.Order{ID: "O1", CorrelationID: correlationID},
		CorrelationID: correlationID,
		Reason:        reason,
		Timestamp:     time.Now(),
	}
}

func expectResult(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(time.Second):
		t.Fatal("wait did not complete")
		return nil
	}
}

func expectNoResult(t *testing.T, ch <-chan error) {
	t.Helper()
	select {
	case err := <-ch:
		t.Fatalf("wait completed early: %v", err)
	default:
	}
}

func TestAwaitFillsCompletesAfterExpectedCount(t *testing.T) {
	c := NewCorrelator(zap.NewNop())

	ch := c.AwaitFills("G1", 2)
	c.OnEvent(fillEvent("G1", model.OrderStatusComplete))
	expectNoResult(t, ch)

	c.OnEvent(fillEvent("G1", model.OrderStatusComplete))
	if err := expectResult(t, ch); err != nil {
		t.Errorf("expected success, got %v", err)
	}
	if c.PendingCount() != 0 {
		t.Errorf("wait not cleaned up, pending=%d", c.PendingCount())
	}
}

func TestAwaitFillsIgnoresPartialFills(t *testing.T) {
	c := NewCorrelator(zap.NewNop())

	ch := c.AwaitFills("G1", 1)
	c.OnEvent(fillEvent("G1", model.OrderStatusPartial))
	expectNoResult(t, ch)

	c.OnEvent(fillEvent("G1", model.OrderStatusComplete))
	if err := expectResult(t, ch); err != nil {
		t.Errorf("expected success, got %v", err)
	}
}

func TestAwaitFillsRejectionCompletesEarly(t *testing.T) {
	c := NewCorrelator(zap.NewNop())

	ch := c.AwaitFills("G1", 3)
	c.OnEvent(fillEvent("G1", model.OrderStatusComplete))
	c.OnEvent(rejectEvent("G1", "margin exceeded"))

	err := expectResult(t, ch)
	if err == nil {
		t.Fatal("expected rejection error")
	}
	if err.Error() != "order rejected: margin exceeded" {
		t.Errorf("unexpected error text: %v", err)
	}
	if c.PendingCount() != 0 {
		t.Errorf("wait not cleaned up after rejection, pending=%d", c.PendingCount())
	}
}

func TestAwaitFillsIsolatesCorrelationIDs(t *testing.T) {
	c := NewCorrelator(zap.NewNop())

	ch1 := c.AwaitFills("G1", 1)
	ch2 := c.AwaitFills("G2", 1)

	c.OnEvent(fillEvent("G1", model.OrderStatusComplete))
	if err := expectResult(t, ch1); err != nil {
		t.Errorf("G1 wait failed: %v", err)
	}
	expectNoResult(t, ch2)
	if c.PendingCount() != 1 {
		t.Errorf("expected 1 pending wait, got %d", c.PendingCount())
	}
}

func TestAwaitFillsZeroExpectation(t *testing.T) {
	c := NewCorrelator(zap.NewNop())

	ch := c.AwaitFills("G1", 0)
	if err := expectResult(t, ch); err != nil {
		t.Errorf("expected immediate success, got %v", err)
	}
	if c.PendingCount() != 0 {
		t.Errorf("zero-count wait registered, pending=%d", c.PendingCount())
	}
}

func TestAwaitFillsReRegistrationDisplacesOldWait(t *testing.T) {
	c := NewCorrelator(zap.NewNop())

	ch1 := c.AwaitFills("G1", 1)
	ch2 := c.AwaitFills("G1", 1)

	// The first waiter must not be stranded; it gets an error right away.
	if err := expectResult(t, ch1); err == nil {
		t.Fatal("displaced wait must complete with an error")
	}
	if c.PendingCount() != 1 {
		t.Fatalf("expected 1 pending wait, got %d", c.PendingCount())
	}

	c.OnEvent(fillEvent("G1", model.OrderStatusComplete))
	if err := expectResult(t, ch2); err != nil {
		t.Errorf("second wait failed: %v", err)
	}
	if c.PendingCount() != 0 {
		t.Errorf("wait not cleaned up, pending=%d", c.PendingCount())
	}
}

func TestCancelAwait(t *testing.T) {
	c := NewCorrelator(zap.NewNop())

	ch := c.AwaitFills("G1", 1)
	c.CancelAwait("G1")
	// Cancelling an unknown id is a no-op.
	c.CancelAwait("G1")

	c.OnEvent(fillEvent("G1", model.OrderStatusComplete))
	expectNoResult(t, ch)
	if c.PendingCount() != 0 {
		t.Errorf("cancelled wait still pending: %d", c.PendingCount())
	}
}

func TestOnEventIgnoresUnknownAndEmpty(t *testing.T) {
	c := NewCorrelator(zap.NewNop())

	// None of these may panic or register anything.
	c.OnEvent(nil)
	c.OnEvent(fillEvent("", model.OrderStatusComplete))
	c.OnEvent(fillEvent("never-registered", model.OrderStatusComplete))
	c.OnEvent(rejectEvent("never-registered", "whatever"))

	if c.PendingCount() != 0 {
		t.Errorf("unexpected pending waits: %d", c.PendingCount())
	}
}
