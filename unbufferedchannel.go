package syncz

import (
	"context"
	"sync"

	"github.com/zoobzio/capitan"
)

// UnbufferedChannel is a single-slot rendezvous channel: Send blocks
// until a receiver is waiting and the slot is empty, enforcing a direct
// handshake rather than buffering. Close aborts any pending Send or Recv
// instead of draining, unlike BufferedChannel.
type UnbufferedChannel[T any] struct {
	mu          sync.Mutex
	sendCond    *sync.Cond
	recvCond    *sync.Cond
	val         T
	hasValue    bool
	hasReceiver bool
	closed      bool
	name        string
}

// NewUnbufferedChannel creates a ready-to-use UnbufferedChannel.
func NewUnbufferedChannel[T any](name string) *UnbufferedChannel[T] {
	c := &UnbufferedChannel[T]{name: name}
	c.sendCond = sync.NewCond(&c.mu)
	c.recvCond = sync.NewCond(&c.mu)
	return c
}

// Send blocks until a receiver is present with an empty slot, then
// publishes v and wakes it. Returns ErrChannelClosed if closed, either
// already or while waiting.
func (c *UnbufferedChannel[T]) Send(v T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for !c.closed && !(c.hasReceiver && !c.hasValue) {
		c.sendCond.Wait()
	}
	if c.closed {
		return ErrChannelClosed
	}
	c.val = v
	c.hasValue = true
	c.recvCond.Signal()
	return nil
}

// Recv announces itself as a waiting receiver, wakes a blocked Send, then
// waits for a value or closure. It returns (zero, false) only if closed
// with no value ever published to this waiter.
func (c *UnbufferedChannel[T]) Recv() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hasReceiver = true
	c.sendCond.Signal()

	for !c.closed && !(c.hasReceiver && c.hasValue) {
		c.recvCond.Wait()
	}
	if c.closed && !c.hasValue {
		c.hasReceiver = false
		var zero T
		return zero, false
	}
	v := c.val
	var zero T
	c.val = zero
	c.hasValue = false
	c.hasReceiver = false
	return v, true
}

// Close marks the channel closed and wakes every blocked Send and Recv;
// unlike BufferedChannel, any value not yet handed to a receiver is
// discarded. Close is idempotent.
func (c *UnbufferedChannel[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.sendCond.Broadcast()
	c.recvCond.Broadcast()
	capitan.Info(context.Background(), SignalChannelClosed,
		FieldName.Field(c.name),
	)
}
