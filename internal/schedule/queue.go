// internal/schedule/queue.go
package schedule

import (
	"context"
	"sync"
)

// Queue admits tasks into the bounded concurrency region. A task proceeds
// immediately when fewer than Bound tasks are in flight; otherwise it joins a
// FIFO wait list and resumes only when a running task releases its slot.
type Queue struct {
	gov *Governor

	mu       sync.Mutex
	inFlight int
	waiters  []*waiter
}

type waiter struct {
	ready   chan struct{}
	granted bool
}

// NewQueue builds a Queue over the given governor.
func NewQueue(gov *Governor) *Queue {
	return &Queue{gov: gov}
}

// Acquire blocks until a slot is available or the context is done. Waiters
// are released strictly in arrival order.
func (q *Queue) Acquire(ctx context.Context) error {
	q.mu.Lock()
	if q.inFlight < q.gov.Bound() {
		q.inFlight++
		q.mu.Unlock()
		return nil
	}

	w := &waiter{ready: make(chan struct{})}
	q.waiters = append(q.waiters, w)
	q.mu.Unlock()

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		q.mu.Lock()
		if w.granted {
			// Lost the race: the slot was handed over while the context
			// fired. Give it back so the next waiter runs.
			q.releaseLocked()
			q.mu.Unlock()
			return ctx.Err()
		}
		for i, pending := range q.waiters {
			if pending == w {
				q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
				break
			}
		}
		q.mu.Unlock()
		return ctx.Err()
	}
}

// Release returns a slot, feeds the outcome into the governor, and wakes
// queued waiters while slots remain under the (possibly re-tuned) bound.
func (q *Queue) Release(success bool) {
	if success {
		q.gov.RecordSuccess()
	} else {
		q.gov.RecordError()
	}

	q.mu.Lock()
	q.releaseLocked()
	q.mu.Unlock()
}

func (q *Queue) releaseLocked() {
	if q.inFlight > 0 {
		q.inFlight--
	}
	bound := q.gov.Bound()
	for len(q.waiters) > 0 && q.inFlight < bound {
		head := q.waiters[0]
		q.waiters = q.waiters[1:]
		q.inFlight++
		head.granted = true
		close(head.ready)
	}
}

// InFlight returns the number of tasks currently holding a slot.
func (q *Queue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inFlight
}

// Do runs fn inside an admission slot. The slot is released and the next
// waiter is notified even when fn panics.
func (q *Queue) Do(ctx context.Context, fn func() error) error {
	if err := q.Acquire(ctx); err != nil {
		return err
	}

	var err error
	defer func() {
		if r := recover(); r != nil {
			q.Release(false)
			panic(r)
		}
		q.Release(err == nil)
	}()
	err = fn()
	return err
}
