// Package queue implements the blocking priority buffer between router
// producers and the single dispatcher consumer. Ordering is by priority
// ordinal first, then by enqueue sequence within one priority (FIFO).
package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/deque"

	"github.com/openquant/ordercore/pkg/ordercore/model"
)

const numPriorities = int(model.PriorityManual) + 1

type PriorityQueue struct {
	mu      sync.Mutex
	buckets [numPriorities]deque.Deque[*model.PrioritizedOrder]
	size    int
	seq     atomic.Int64

	// notify carries at most one pending wakeup; Take drains it and
	// re-checks the buckets, so lost signals cannot strand a waiter
	// while items remain.
	notify chan struct{}
}

func NewPriorityQueue() *PriorityQueue {
	return &PriorityQueue{
		notify: make(chan struct{}, 1),
	}
}

// Enqueue assigns the next sequence number and timestamp and appends the
// request to its priority bucket. It never blocks.
func (q *PriorityQueue) Enqueue(req *model.OrderRequest, priority model.Priority) *model.PrioritizedOrder {
	po := &model.PrioritizedOrder{
		Request:    req,
		Priority:   priority,
		Seq:        q.seq.Add(1),
		EnqueuedAt: time.Now(),
	}

	q.mu.Lock()
	q.buckets[priority].PushBack(po)
	q.size++
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return po
}

// Poll returns the highest-priority item immediately, nil if empty.
func (q *PriorityQueue) Poll() *model.PrioritizedOrder {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pollLocked()
}

func (q *PriorityQueue) pollLocked() *model.PrioritizedOrder {
	for i := 0; i < numPriorities; i++ {
		if q.buckets[i].Len() > 0 {
			q.size--
			return q.buckets[i].PopFront()
		}
	}
	return nil
}

// Take blocks until an item is available or ctx is done.
func (q *PriorityQueue) Take(ctx context.Context) (*model.PrioritizedOrder, error) {
	for {
		if po := q.Poll(); po != nil {
			return po, nil
		}
		select {
		case <-q.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (q *PriorityQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

func (q *PriorityQueue) IsEmpty() bool {
	return q.Size() == 0
}

// Clear drops every queued item.
func (q *PriorityQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := 0; i < numPriorities; i++ {
		q.buckets[i].Clear()
	}
	q.size = 0
}
