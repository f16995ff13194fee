package syncz

import (
	"fmt"
	"sync/atomic"
)

// mpmcCell holds one ring slot and the generation counter that encodes
// whose turn — producer or consumer — it currently is.
type mpmcCell[T any] struct {
	generation atomic.Uint64
	value      T
}

// MPMCBoundedQueue is a lock-free, bounded, multi-producer/multi-consumer
// ring queue (Vyukov's design). Progress is lock-free but not wait-free:
// a CAS loser simply retries against the now-current cursor.
//
// Capacity must be a power of two so the cell index can be computed with
// a mask instead of a modulo; NewMPMCBoundedQueue panics otherwise.
type MPMCBoundedQueue[T any] struct {
	cells []mpmcCell[T]
	mask  uint64
	head  atomic.Uint64
	tail  atomic.Uint64
	name  string
}

// NewMPMCBoundedQueue creates a ring of the given capacity, which must be
// a power of two.
func NewMPMCBoundedQueue[T any](name string, capacity int) *MPMCBoundedQueue[T] {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic(fmt.Sprintf("syncz: MPMCBoundedQueue capacity must be a power of two, got %d", capacity))
	}
	q := &MPMCBoundedQueue[T]{
		cells: make([]mpmcCell[T], capacity),
		mask:  uint64(capacity - 1),
		name:  name,
	}
	for i := range q.cells {
		q.cells[i].generation.Store(uint64(i))
	}
	return q
}

// Enqueue attempts to publish v into the next free cell. Returns false if
// the ring is full.
func (q *MPMCBoundedQueue[T]) Enqueue(v T) bool {
	for {
		pos := q.head.Load()
		cell := &q.cells[pos&q.mask]
		diff := int64(cell.generation.Load()) - int64(pos)

		switch {
		case diff == 0:
			if q.head.CompareAndSwap(pos, pos+1) {
				cell.value = v
				cell.generation.Store(pos + 1)
				return true
			}
		case diff < 0:
			return false
		default:
			// Another producer has already claimed and filled this
			// position, so this head snapshot is stale; reload and retry.
		}
	}
}

// Dequeue attempts to consume the oldest published value. Returns false
// if the ring is empty.
func (q *MPMCBoundedQueue[T]) Dequeue() (T, bool) {
	for {
		pos := q.tail.Load()
		cell := &q.cells[pos&q.mask]
		diff := int64(cell.generation.Load()) - int64(pos+1)

		switch {
		case diff == 0:
			if q.tail.CompareAndSwap(pos, pos+1) {
				v := cell.value
				var zero T
				cell.value = zero
				cell.generation.Store(pos + uint64(len(q.cells)))
				return v, true
			}
		case diff < 0:
			var zero T
			return zero, false
		default:
		}
	}
}

// Cap returns the ring's fixed capacity.
func (q *MPMCBoundedQueue[T]) Cap() int {
	return len(q.cells)
}
