// Package syncz provides a set of concurrency primitives — a spinning and
// a blocking reader-writer lock, a FIFO counting semaphore, bounded and
// rendezvous channels, an unbounded blocking queue, a lock-free bounded
// ring queue, a lock-free stack, a hazard-pointer reclamation domain, a
// striped concurrent hash map, and a timer-ordered priority queue — plus a
// task executor built on top of them.
//
// # Primitives
//
// The primitives (RWSpinLock, Semaphore, RWLock, BufferedChannel,
// UnbufferedChannel, UnboundedBlockingQueue, MPMCBoundedQueue, MPSCStack,
// HazardDomain, ConcurrentHashMap, TimerQueue) are independently usable
// and have no dependency on the executor.
//
// # Executor
//
// Task, Future, and Executor compose the primitives into a worker-pool
// scheduler whose tasks carry dependency graphs, OR-triggers, and
// deadlines. Futures compose with Invoke, Then, WhenAll,
// WhenAllBeforeDeadline, and WhenFirst.
//
// # External collaborators
//
// Time comes from a github.com/zoobzio/clockz.Clock (clockz.RealClock by
// default, swappable for tests via WithClock). Observability is
// structured logging via github.com/zoobzio/capitan, counters and gauges
// via github.com/zoobzio/metricz, spans via github.com/zoobzio/tracez,
// and typed lifecycle events via github.com/zoobzio/hookz.
package syncz
