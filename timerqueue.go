package syncz

import (
	"container/heap"
	"context"
	"time"

	"github.com/zoobzio/clockz"
)

type tqItem[T any] struct {
	at    time.Time
	value T
}

type tqHeap[T any] []*tqItem[T]

func (h tqHeap[T]) Len() int            { return len(h) }
func (h tqHeap[T]) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h tqHeap[T]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *tqHeap[T]) Push(x interface{}) { *h = append(*h, x.(*tqItem[T])) }
func (h *tqHeap[T]) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// TimerQueue is a min-heap of (time, value) pairs. Pop blocks until the
// earliest entry's time has arrived, but — matching the single
// wait_until this is modeled on — does not loop to revalidate the clock
// afterward: a spurious or early wake simply pops whatever is currently
// at the head. Add re-signals any blocked Pop so a newly inserted entry
// with an earlier time is picked up without waiting out the old one.
type TimerQueue[T any] struct {
	mu    chan struct{} // binary mutex; see lock/unlock helpers
	heap  tqHeap[T]
	wake  chan struct{}
	clock clockz.Clock
	name  string
}

// NewTimerQueue creates an empty TimerQueue using clockz.RealClock. Use
// WithClock to inject a fake clock for deterministic tests.
func NewTimerQueue[T any](name string) *TimerQueue[T] {
	q := &TimerQueue[T]{
		mu:    make(chan struct{}, 1),
		wake:  make(chan struct{}, 1),
		clock: clockz.RealClock,
		name:  name,
	}
	q.mu <- struct{}{}
	return q
}

// WithClock overrides the clock used for Now and timed waits.
func (q *TimerQueue[T]) WithClock(clock clockz.Clock) *TimerQueue[T] {
	q.lock()
	q.clock = clock
	q.unlock()
	return q
}

func (q *TimerQueue[T]) lock()   { <-q.mu }
func (q *TimerQueue[T]) unlock() { q.mu <- struct{}{} }

func (q *TimerQueue[T]) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Add inserts value keyed by at into the heap.
func (q *TimerQueue[T]) Add(value T, at time.Time) {
	q.lock()
	heap.Push(&q.heap, &tqItem[T]{at: at, value: value})
	q.signal()
	q.unlock()
}

// Pop blocks until an entry is available and its time has arrived (or a
// wake-up races it, per the type doc), then removes and returns it.
// Returns (zero, false) if ctx is done first.
func (q *TimerQueue[T]) Pop(ctx context.Context) (T, bool) {
	var zero T

	q.lock()
	for q.heap.Len() == 0 {
		q.unlock()
		select {
		case <-q.wake:
		case <-ctx.Done():
			return zero, false
		}
		q.lock()
	}
	at := q.heap[0].at
	// Discard a wake-up left by an Add whose entry is already in the heap
	// read above; only an Add after this point should cut the wait short.
	select {
	case <-q.wake:
	default:
	}
	q.unlock()

	now := q.clock.Now()
	if now.Before(at) {
		waitCtx, cancel := q.clock.WithTimeout(ctx, at.Sub(now))
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				cancel()
				return zero, false
			}
		case <-q.wake:
		}
		cancel()
	}

	q.lock()
	defer q.unlock()
	if q.heap.Len() == 0 {
		return zero, false
	}
	item := heap.Pop(&q.heap).(*tqItem[T])
	return item.value, true
}

// Len returns the current number of pending entries.
func (q *TimerQueue[T]) Len() int {
	q.lock()
	defer q.unlock()
	return q.heap.Len()
}

// DrainAll empties the queue and returns every pending value, in
// heap-internal (not time) order. Used by callers that are shutting
// down and need to account for entries no one will ever Pop, rather
// than leaving them parked forever.
func (q *TimerQueue[T]) DrainAll() []T {
	q.lock()
	defer q.unlock()
	values := make([]T, 0, len(q.heap))
	for _, item := range q.heap {
		values = append(values, item.value)
	}
	q.heap = nil
	return values
}
