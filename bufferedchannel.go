package syncz

import (
	"context"
	"sync"

	"github.com/zoobzio/capitan"
)

// BufferedChannel is a bounded FIFO channel of capacity N. Closed
// channels never accept new sends — Send returns ErrChannelClosed — but
// Recv continues to drain any values buffered before Close, returning
// (zero, false) only once the buffer is empty.
type BufferedChannel[T any] struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond
	buf      []T
	capacity int
	closed   bool
	name     string
}

// NewBufferedChannel creates a BufferedChannel with the given capacity.
// A capacity of zero behaves as an always-full buffer: no value is ever
// buffered, so every Send blocks until Close and then returns
// ErrChannelClosed, and Recv returns (zero, false) only once closed. It
// is not a substitute for UnbufferedChannel's direct handshake.
func NewBufferedChannel[T any](name string, capacity int) *BufferedChannel[T] {
	c := &BufferedChannel[T]{
		buf:      make([]T, 0, capacity),
		capacity: capacity,
		name:     name,
	}
	c.notFull = sync.NewCond(&c.mu)
	c.notEmpty = sync.NewCond(&c.mu)
	return c
}

// Send appends v to the buffer, blocking while the buffer is full.
// Returns ErrChannelClosed if the channel is closed, either already or
// while waiting for room.
func (c *BufferedChannel[T]) Send(v T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrChannelClosed
	}
	for !c.closed && len(c.buf) >= c.capacity {
		c.notFull.Wait()
	}
	if c.closed {
		return ErrChannelClosed
	}
	c.buf = append(c.buf, v)
	c.notEmpty.Signal()
	return nil
}

// Recv removes and returns the oldest buffered value, blocking while the
// buffer is empty and the channel is open. It returns (zero, false) once
// the channel is closed and the buffer has been fully drained.
func (c *BufferedChannel[T]) Recv() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for !c.closed && len(c.buf) == 0 {
		c.notEmpty.Wait()
	}
	if len(c.buf) == 0 {
		var zero T
		return zero, false
	}
	v := c.buf[0]
	var zero T
	c.buf[0] = zero
	c.buf = c.buf[1:]
	c.notFull.Signal()
	return v, true
}

// Close marks the channel closed and wakes every blocked Send and Recv.
// Close is idempotent.
func (c *BufferedChannel[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	size := len(c.buf)
	c.mu.Unlock()

	c.notFull.Broadcast()
	c.notEmpty.Broadcast()
	capitan.Info(context.Background(), SignalChannelClosed,
		FieldName.Field(c.name),
		FieldSize.Field(size),
	)
}

// Len returns a snapshot of the number of buffered values.
func (c *BufferedChannel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf)
}
