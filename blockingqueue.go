package syncz

import (
	"container/list"
	"context"
	"sync"

	"github.com/zoobzio/capitan"
)

// UnboundedBlockingQueue is an unbounded FIFO queue with two distinct
// stop modes. Close forbids further Put but lets Take continue draining
// whatever is already buffered. Cancel additionally discards the buffer,
// so Take returns absent immediately. Take returns absent only once the
// queue is stopped and empty.
type UnboundedBlockingQueue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	buf      *list.List
	stopped  bool
	name     string
}

// NewUnboundedBlockingQueue creates an empty, open queue.
func NewUnboundedBlockingQueue[T any](name string) *UnboundedBlockingQueue[T] {
	q := &UnboundedBlockingQueue[T]{
		buf:  list.New(),
		name: name,
	}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Put appends value to the queue, returning false without enqueuing if
// the queue has been stopped (by Close or Cancel).
func (q *UnboundedBlockingQueue[T]) Put(value T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return false
	}
	q.buf.PushBack(value)
	q.notEmpty.Signal()
	return true
}

// Take blocks until a value is available or the queue is stopped and
// drained, returning (zero, false) in the latter case.
func (q *UnboundedBlockingQueue[T]) Take() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for !q.stopped && q.buf.Len() == 0 {
		q.notEmpty.Wait()
	}
	if q.buf.Len() == 0 {
		var zero T
		return zero, false
	}
	front := q.buf.Front()
	q.buf.Remove(front)
	return front.Value.(T), true
}

// Close forbids further Put calls but leaves buffered values in place
// for Take to drain.
func (q *UnboundedBlockingQueue[T]) Close() {
	q.stopImpl(false, SignalQueueClosed)
}

// Cancel forbids further Put calls and discards any buffered values, so
// every pending and future Take returns (zero, false) immediately.
func (q *UnboundedBlockingQueue[T]) Cancel() {
	q.stopImpl(true, SignalQueueCanceled)
}

func (q *UnboundedBlockingQueue[T]) stopImpl(clear bool, signal capitan.Signal) {
	q.mu.Lock()
	if q.stopped && !clear {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	size := q.buf.Len()
	if clear {
		q.buf.Init()
	}
	q.mu.Unlock()

	q.notEmpty.Broadcast()
	capitan.Info(context.Background(), signal,
		FieldName.Field(q.name),
		FieldSize.Field(size),
	)
}

// Len returns a snapshot of the number of buffered values.
func (q *UnboundedBlockingQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buf.Len()
}
