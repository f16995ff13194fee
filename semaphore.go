package syncz

import (
	"context"
	"sync"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/metricz"
)

// Semaphore is a FIFO counting semaphore: waiters are granted access in
// the order they called Enter, regardless of which goroutine happens to
// wake first on a broadcast.
//
// Enter's callback receives a pointer to the internal count so callers
// can decrement it by more than one permit in a single ticket;
// EnterDefault (or Enter(nil)) decrements by exactly one.
type Semaphore struct {
	mu      sync.Mutex
	cond    *sync.Cond
	count   int
	order   int
	turn    int
	name    string
	metrics *metricz.Registry
}

// NewSemaphore creates a Semaphore starting with the given number of
// available permits.
func NewSemaphore(name string, permits int) *Semaphore {
	s := &Semaphore{
		count:   permits,
		name:    name,
		metrics: metricz.New(),
	}
	s.cond = sync.NewCond(&s.mu)
	s.metrics.Gauge(SemaphoreWaitersGauge)
	s.metrics.Counter(SemaphoreAcquiredTotal)
	s.metrics.Counter(SemaphoreReleasedTotal)
	return s
}

// Enter blocks, if necessary, until a permit is available and it is this
// caller's turn, then invokes cb with a pointer to the permit count while
// still holding the semaphore's internal lock.
func (s *Semaphore) Enter(cb func(*int)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count > 0 {
		s.invoke(cb)
		return
	}

	ticket := s.order
	s.order++
	s.metrics.Gauge(SemaphoreWaitersGauge).Set(float64(s.order - s.turn))
	capitan.Info(context.Background(), SignalSemaphoreWait,
		FieldName.Field(s.name),
		FieldTicket.Field(ticket),
	)

	for !(s.count > 0 && ticket == s.turn) {
		s.cond.Wait()
	}
	s.turn++
	s.invoke(cb)
}

// invoke runs cb under the held lock and emits the acquired signal. A
// panic from cb is not recovered: it propagates to Enter's caller, and
// the deferred Unlock in Enter still releases the lock on the way out.
func (s *Semaphore) invoke(cb func(*int)) {
	defer func() {
		s.metrics.Gauge(SemaphoreWaitersGauge).Set(float64(s.order - s.turn))
		s.metrics.Counter(SemaphoreAcquiredTotal).Inc()
		capitan.Info(context.Background(), SignalSemaphoreAcquired,
			FieldName.Field(s.name),
			FieldPermits.Field(s.count),
		)
	}()
	if cb == nil {
		s.count--
		return
	}
	cb(&s.count)
}

// EnterDefault acquires a single permit, blocking until one is available
// and it is this caller's turn.
func (s *Semaphore) EnterDefault() {
	s.Enter(nil)
}

// Leave returns a permit to the semaphore and wakes all waiters so the
// one whose ticket now matches the current turn can proceed.
func (s *Semaphore) Leave() {
	s.mu.Lock()
	s.count++
	permits := s.count
	s.metrics.Counter(SemaphoreReleasedTotal).Inc()
	s.mu.Unlock()

	capitan.Info(context.Background(), SignalSemaphoreReleased,
		FieldName.Field(s.name),
		FieldPermits.Field(permits),
	)
	s.cond.Broadcast()
}

// Available returns a snapshot of the current permit count.
func (s *Semaphore) Available() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Metrics returns the metricz registry tracking this semaphore's
// contention.
func (s *Semaphore) Metrics() *metricz.Registry {
	return s.metrics
}
