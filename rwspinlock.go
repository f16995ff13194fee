package syncz

import "sync/atomic"

// RWSpinLock is a compact, non-blocking multi-reader/single-writer lock
// backed by a single atomic integer. A non-negative state is the current
// reader count; -1 means a writer holds the lock. There is no fairness
// guarantee: a steady stream of readers can starve a waiting writer. Use
// it only for very short critical sections where blocking on a mutex
// would cost more than spinning.
//
// The zero value is an unlocked RWSpinLock.
type RWSpinLock struct {
	state atomic.Int32
}

// LockRead spins until it can register itself as a reader. It succeeds as
// soon as no writer holds the lock.
func (l *RWSpinLock) LockRead() {
	for {
		snapshot := l.state.Load()
		if snapshot < 0 {
			continue
		}
		if l.state.CompareAndSwap(snapshot, snapshot+1) {
			return
		}
	}
}

// UnlockRead releases a reader slot acquired by LockRead.
func (l *RWSpinLock) UnlockRead() {
	l.state.Add(-1)
}

// LockWrite spins until it can transition the lock from unlocked (0) to
// held-by-writer (-1).
func (l *RWSpinLock) LockWrite() {
	for !l.state.CompareAndSwap(0, -1) {
	}
}

// UnlockWrite releases the writer slot acquired by LockWrite, returning
// the lock to unlocked.
func (l *RWSpinLock) UnlockWrite() {
	l.state.Add(1)
}
