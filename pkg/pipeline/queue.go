package pipeline

import (
	"context"
	"sync"

	"github.com/user/mediaplay/pkg/media"
)

// Queue is an unbounded, blocking FIFO shared between a producer and its consumers.
// A queue is open until SetFinished(true); once finished and drained, Pop returns
// immediately with ok == false.
type Queue[T any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []T
	head     int
	finished bool

	// taken holds one pending wake-up for a producer waiting for room.
	taken chan struct{}
}

// UnitQueue carries compressed units from the demux stage to a decode stage.
type UnitQueue = Queue[*media.Unit]

// NewQueue creates an empty, open queue.
func NewQueue[T any]() *Queue[T] {
	q := &Queue[T]{taken: make(chan struct{}, 1)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// NewUnitQueue creates an empty, open unit queue.
func NewUnitQueue() *UnitQueue {
	return NewQueue[*media.Unit]()
}

// Push appends item to the tail and wakes one waiting consumer. It never blocks.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.cond.Signal()
}

// Pop removes and returns the head item. It blocks while the queue is empty and
// open. ok is false when the queue is empty and finished.
func (q *Queue[T]) Pop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.lenLocked() == 0 && !q.finished {
		q.cond.Wait()
	}
	return q.takeLocked()
}

// PopContext is Pop that also gives up when ctx is done.
func (q *Queue[T]) PopContext(ctx context.Context) (item T, ok bool) {
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		q.cond.Broadcast()
	})
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()

	for q.lenLocked() == 0 && !q.finished {
		if ctx.Err() != nil {
			return item, false
		}
		q.cond.Wait()
	}
	return q.takeLocked()
}

// TryPop returns the head item without blocking.
func (q *Queue[T]) TryPop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.takeLocked()
}

// Taken returns a channel that receives after items leave the queue through a
// pop or a flush. Wake-ups coalesce: a producer re-checks the queue length
// after every receive.
func (q *Queue[T]) Taken() <-chan struct{} {
	return q.taken
}

func (q *Queue[T]) notifyTaken() {
	select {
	case q.taken <- struct{}{}:
	default:
	}
}

// SetFinished sets the end-of-stream flag and wakes every waiter.
func (q *Queue[T]) SetFinished(finished bool) {
	q.mu.Lock()
	q.finished = finished
	q.mu.Unlock()
	q.cond.Broadcast()
}

// IsFinished reports the end-of-stream flag. Items may still be queued.
func (q *Queue[T]) IsFinished() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.finished
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lenLocked()
}

// Flush discards every queued item and returns how many were dropped.
// The finished flag is left unchanged.
func (q *Queue[T]) Flush() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.lenLocked()
	clear(q.items)
	q.items = q.items[:0]
	q.head = 0
	if n > 0 {
		q.notifyTaken()
	}
	return n
}

func (q *Queue[T]) lenLocked() int {
	return len(q.items) - q.head
}

func (q *Queue[T]) takeLocked() (item T, ok bool) {
	if q.lenLocked() == 0 {
		return item, false
	}
	item = q.items[q.head]
	var zero T
	q.items[q.head] = zero
	q.head++
	q.notifyTaken()

	// Reclaim the consumed prefix once it dominates the backing array.
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 64 && q.head*2 > len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return item, true
}
