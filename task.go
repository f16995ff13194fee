package syncz

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// Task is a unit of deferred work with dependency, trigger, and deadline
// gating. Invoke runs the work only once every dependency has finished,
// at least one trigger has finished (when any triggers are registered),
// and the deadline (if set) has arrived; otherwise it returns
// immediately, leaving the Task eligible for a later retry by whatever
// is driving it (see Executor's re-queue loop).
type Task struct {
	mu        sync.Mutex // guards state fields below and the done signal
	cond      *sync.Cond
	runMu     sync.Mutex // serializes Run so two concurrent Invoke calls can't both execute it
	canceled  atomic.Bool
	failed    atomic.Bool
	finished  atomic.Bool
	completed bool
	err       error

	dependencies []*Task
	triggers     []*Task
	hasDeadline  bool
	deadline     time.Time
	clock        clockz.Clock

	name string
	fn   func() error
}

// NewTask creates a Task that runs fn when invoked and its gates are
// satisfied.
func NewTask(name string, fn func() error) *Task {
	t := &Task{
		name:  name,
		fn:    fn,
		clock: clockz.RealClock,
	}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// AddDependency registers dep as a hard prerequisite: Invoke is a no-op
// until every dependency has finished.
func (t *Task) AddDependency(dep *Task) {
	t.mu.Lock()
	t.dependencies = append(t.dependencies, dep)
	t.mu.Unlock()
}

// AddTrigger registers dep as an OR-gate prerequisite: once at least one
// trigger has finished, the trigger gate opens permanently for this task
// (it does not re-close if other triggers are still pending).
func (t *Task) AddTrigger(dep *Task) {
	t.mu.Lock()
	t.triggers = append(t.triggers, dep)
	t.mu.Unlock()
}

// SetDeadline gates Invoke until at is reached: Invoke is a no-op while
// clock.Now() precedes at.
func (t *Task) SetDeadline(at time.Time) {
	t.mu.Lock()
	t.hasDeadline = true
	t.deadline = at
	t.mu.Unlock()
}

// SetClock overrides the clock used to evaluate the deadline gate.
func (t *Task) SetClock(clock clockz.Clock) {
	t.mu.Lock()
	t.clock = clock
	t.mu.Unlock()
}

func (t *Task) gatesOpen() bool {
	t.mu.Lock()
	deps := t.dependencies
	trigs := t.triggers
	hasDeadline := t.hasDeadline
	deadline := t.deadline
	clock := t.clock
	t.mu.Unlock()

	for _, dep := range deps {
		if !dep.IsFinished() {
			return false
		}
	}

	if len(trigs) > 0 {
		anyTriggered := false
		for _, trig := range trigs {
			if trig.IsFinished() {
				anyTriggered = true
				break
			}
		}
		if !anyTriggered {
			return false
		}
	}

	if hasDeadline && clock.Now().Before(deadline) {
		return false
	}

	return true
}

// Invoke attempts to run the task's work. It is a no-op if any gate
// (dependencies, triggers, deadline) is not yet open, or if the task is
// already finished (completed, failed, or canceled). Safe to call
// repeatedly and concurrently (e.g. from an executor's re-queue loop):
// runMu serializes actual execution of fn so two racing callers can't
// both run it, and the done-signal (state mutation plus cond.Broadcast)
// is committed under mu in one critical section so it can never race
// past a Wait/Cancel that is also synchronizing on mu — see Cancel.
func (t *Task) Invoke() {
	if !t.gatesOpen() {
		return
	}

	t.runMu.Lock()
	defer t.runMu.Unlock()

	if t.finished.Load() {
		// Already completed, failed, or canceled (possibly by a Cancel
		// that raced this call while it waited for runMu).
		return
	}

	err := t.runGuarded()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finished.Load() {
		// Canceled while fn was running. That Cancel already finished
		// and broadcast the task; don't overwrite its outcome.
		return
	}

	if err != nil {
		t.failed.Store(true)
		t.err = &TaskError{Err: err, Name: t.name, Timestamp: t.clock.Now()}
		t.finished.Store(true)
		t.cond.Broadcast()
		capitan.Warn(context.Background(), SignalTaskFailed,
			FieldTaskName.Field(t.name),
			FieldError.Field(err.Error()),
		)
		return
	}
	t.completed = true
	t.finished.Store(true)
	t.cond.Broadcast()
}

// runGuarded invokes fn, converting a panic into an error the same way
// the work's own failure would be reported.
func (t *Task) runGuarded() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("syncz: task %q panicked: %v", t.name, r)
		}
	}()
	return t.fn()
}

// IsCompleted reports whether the task's work ran to completion without
// error. Only meaningful once IsFinished is true.
func (t *Task) IsCompleted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed
}

// IsFailed reports whether the task's work returned an error or panicked.
func (t *Task) IsFailed() bool {
	return t.failed.Load()
}

// IsCanceled reports whether Cancel was called on this task.
func (t *Task) IsCanceled() bool {
	return t.canceled.Load()
}

// IsFinished reports whether the task completed, failed, or was
// canceled.
func (t *Task) IsFinished() bool {
	return t.finished.Load()
}

// Err returns nil unless the task failed; then it returns a *TaskError
// whose Unwrap yields the error the work returned (or, for a panic, an
// error describing the panic value).
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Cancel marks the task canceled and finished. A canceled task's Invoke
// becomes a permanent no-op. Unlike the state machine it is modeled on,
// Cancel wakes any goroutine blocked in Wait — otherwise a task canceled
// before ever being invoked would leave its waiters parked forever. The
// state flip and the broadcast are committed under mu, the same lock
// Wait holds across its predicate check and cond.Wait() registration,
// so a Cancel racing a not-yet-parked waiter can't broadcast into an
// empty notify list and strand it. Cancel does not take runMu, so it
// never blocks behind an in-flight Invoke — it only loses the race to
// decide the outcome of a Run already underway.
func (t *Task) Cancel() {
	t.mu.Lock()
	t.canceled.Store(true)
	t.finished.Store(true)
	t.cond.Broadcast()
	t.mu.Unlock()

	capitan.Info(context.Background(), SignalTaskCanceled,
		FieldTaskName.Field(t.name),
	)
}

// Wait blocks until the task is finished (completed, failed, or
// canceled).
func (t *Task) Wait() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for !t.finished.Load() {
		t.cond.Wait()
	}
}

// Name returns the task's name, as given to NewTask.
func (t *Task) Name() string {
	return t.name
}
