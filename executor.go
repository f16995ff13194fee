package syncz

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"
)

// Observability constants for Executor.
const (
	executorTaskSpan tracez.Key = "executor.task"

	executorTagTaskName tracez.Tag = "executor.task_name"
	executorTagOutcome  tracez.Tag = "executor.outcome"

	// ExecutorTaskFinished fires once per task, in whichever terminal
	// state (completed, failed, canceled) it reached.
	ExecutorTaskFinished hookz.Key = "executor.task_finished"
)

// TaskFinishedEvent is emitted via hookz when a task reaches a terminal
// state while running under an Executor.
type TaskFinishedEvent struct {
	Name      string
	Completed bool
	Failed    bool
	Canceled  bool
	Err       error
	Timestamp time.Time
}

// Executor is a fixed-size worker pool that drives Tasks to completion.
// An unfinished task without a deadline is re-queued for another worker
// to retry; an unfinished task with a deadline is parked in a TimerQueue
// instead and returns to the work queue when the timer dispatcher pops
// it — at its deadline, or earlier if another Add wakes the dispatcher,
// in which case a still-gated task is parked again.
type Executor struct {
	name   string
	queue  *UnboundedBlockingQueue[*Task]
	timers *TimerQueue[*Task]
	clock  clockz.Clock

	wg          sync.WaitGroup
	workerCount int

	shutdownCtx    context.Context
	cancelShutdown context.CancelFunc
	closed         bool
	closeMu        sync.Mutex

	metrics *metricz.Registry
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[TaskFinishedEvent]
}

// NewExecutor creates an Executor with the given number of workers and
// starts them immediately. A workers value <= 0 asks automaxprocs to
// reconcile GOMAXPROCS with any container CPU quota first, then sizes
// the pool to runtime.GOMAXPROCS(0).
func NewExecutor(name string, workers int) *Executor {
	if workers <= 0 {
		undo, err := maxprocs.Set()
		if err == nil {
			defer undo()
		}
		workers = runtime.GOMAXPROCS(0)
		if workers < 1 {
			workers = 1
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	e := &Executor{
		name:           name,
		queue:          NewUnboundedBlockingQueue[*Task](name + ".queue"),
		timers:         NewTimerQueue[*Task](name + ".timers"),
		clock:          clockz.RealClock,
		workerCount:    workers,
		shutdownCtx:    ctx,
		cancelShutdown: cancel,
		metrics:        metricz.New(),
		tracer:         tracez.New(),
		hooks:          hookz.New[TaskFinishedEvent](),
	}

	e.metrics.Counter(ExecutorSubmittedTotal)
	e.metrics.Counter(ExecutorCompletedTotal)
	e.metrics.Counter(ExecutorFailedTotal)
	e.metrics.Counter(ExecutorCanceledTotal)
	e.metrics.Counter(ExecutorRequeuedTotal)
	e.metrics.Gauge(ExecutorQueueDepth)
	e.metrics.Gauge(ExecutorActiveWorkers)

	e.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go e.runWorker()
	}
	go e.runTimerDispatch()

	e.metrics.Gauge(ExecutorActiveWorkers).Set(float64(workers))
	return e
}

// WithClock overrides the clock consulted for deadline-gated tasks.
func (e *Executor) WithClock(clock clockz.Clock) *Executor {
	e.clock = clock
	e.timers.WithClock(clock)
	return e
}

func (e *Executor) runWorker() {
	defer e.wg.Done()
	for {
		task, ok := e.queue.Take()
		if !ok {
			return
		}
		e.invokeTask(task)
		e.requeueIfUnfinished(task)
	}
}

func (e *Executor) runTimerDispatch() {
	for {
		task, ok := e.timers.Pop(e.shutdownCtx)
		if !ok {
			return
		}
		e.queue.Put(task)
	}
}

func (e *Executor) invokeTask(task *Task) {
	ctx, span := e.tracer.StartSpan(context.Background(), executorTaskSpan)
	span.SetTag(executorTagTaskName, task.Name())
	defer span.Finish()

	task.Invoke()

	if !task.IsFinished() {
		span.SetTag(executorTagOutcome, "pending")
		return
	}

	switch {
	case task.IsCanceled():
		span.SetTag(executorTagOutcome, "canceled")
		e.metrics.Counter(ExecutorCanceledTotal).Inc()
	case task.IsFailed():
		span.SetTag(executorTagOutcome, "failed")
		e.metrics.Counter(ExecutorFailedTotal).Inc()
	default:
		span.SetTag(executorTagOutcome, "completed")
		e.metrics.Counter(ExecutorCompletedTotal).Inc()
	}

	_ = e.hooks.Emit(ctx, ExecutorTaskFinished, TaskFinishedEvent{
		Name:      task.Name(),
		Completed: task.IsCompleted(),
		Failed:    task.IsFailed(),
		Canceled:  task.IsCanceled(),
		Err:       task.Err(),
		Timestamp: e.clock.Now(),
	})
}

// requeueIfUnfinished re-dispatches a task whose gates were not open.
// Tasks with a deadline set are parked in the TimerQueue until the timer
// dispatcher pops them (at the deadline, or earlier on a wake-up from
// another Add); tasks without a deadline are put back on the work queue
// immediately, matching the original scheduler's busy re-queue for
// dependency/trigger gates. The closed check and the
// actual re-queue happen under the same closeMu critical section as
// StartShutdown's transition, so a task can never be hidden away in the
// timer heap or the work queue's buffer after shutdown has already
// drained them — it loses that race and is canceled on the spot instead.
func (e *Executor) requeueIfUnfinished(task *Task) {
	if task.IsFinished() {
		return
	}

	task.mu.Lock()
	hasDeadline := task.hasDeadline
	deadline := task.deadline
	task.mu.Unlock()

	e.closeMu.Lock()
	defer e.closeMu.Unlock()

	if e.closed {
		task.Cancel()
		return
	}

	e.metrics.Counter(ExecutorRequeuedTotal).Inc()

	if hasDeadline {
		e.timers.Add(task, deadline)
		return
	}
	if !e.queue.Put(task) {
		task.Cancel()
	}
}

// Submit enqueues task for execution. If the executor has already
// started shutdown, task is canceled instead. The closed check and the
// enqueue happen under the same closeMu critical section as
// StartShutdown, so a Submit racing a concurrent shutdown either
// completes entirely before the queue closes or is canceled outright —
// it can never land a Put that silently fails against a closed queue.
func (e *Executor) Submit(task *Task) {
	e.closeMu.Lock()
	defer e.closeMu.Unlock()

	if e.closed {
		task.Cancel()
		return
	}
	e.metrics.Counter(ExecutorSubmittedTotal).Inc()
	e.metrics.Gauge(ExecutorQueueDepth).Set(float64(e.queue.Len()))
	e.queue.Put(task)
}

// StartShutdown stops accepting new submissions (Submit cancels instead)
// and closes the work queue, letting workers drain the already-buffered
// tasks: a task whose gates are open runs, while one whose gates are
// still closed when a worker picks it up is canceled instead of
// re-queued (see requeueIfUnfinished). Any task currently parked in the
// timer queue awaiting a future deadline is drained and canceled here
// too — otherwise it
// would be neither re-queued nor invoked once the timer dispatcher
// exits, leaving its Future.Get blocked forever. It does not block;
// call WaitShutdown to wait for drain-out.
func (e *Executor) StartShutdown() {
	e.closeMu.Lock()
	if e.closed {
		e.closeMu.Unlock()
		return
	}
	e.closed = true
	e.queue.Close()
	e.cancelShutdown()
	parked := e.timers.DrainAll()
	e.closeMu.Unlock()

	capitan.Info(context.Background(), SignalExecutorShutdown,
		FieldName.Field(e.name),
		FieldWorkerCount.Field(e.workerCount),
	)

	for _, task := range parked {
		task.Cancel()
	}
}

// WaitShutdown blocks until every worker has exited, which happens once
// the work queue is closed and drained. Call StartShutdown first.
func (e *Executor) WaitShutdown() {
	e.wg.Wait()
	e.hooks.Close()
	e.tracer.Close()

	capitan.Info(context.Background(), SignalExecutorDrained,
		FieldName.Field(e.name),
	)
}

// Invoke submits fn as a new Future and returns it immediately.
func Invoke[T any](e *Executor, name string, fn func() (T, error)) *Future[T] {
	f := newFuture(name, fn)
	e.Submit(f.Task)
	return f
}

// Then submits fn as a Future that runs only once input has finished.
func Then[T, Y any](e *Executor, name string, input *Future[T], fn func(*Future[T]) (Y, error)) *Future[Y] {
	f := newFuture(name, func() (Y, error) { return fn(input) })
	f.AddDependency(input.Task)
	e.Submit(f.Task)
	return f
}

// WhenAll returns a Future that resolves once every input Future has
// finished, carrying their results in input order. Results are gathered
// concurrently via an errgroup rather than sequentially, since the
// individual Gets no longer contend for anything once their tasks have
// finished.
func WhenAll[T any](e *Executor, name string, inputs []*Future[T]) *Future[[]T] {
	f := newFuture(name, func() ([]T, error) {
		results := make([]T, len(inputs))
		var g errgroup.Group
		for i, in := range inputs {
			i, in := i, in
			g.Go(func() error {
				v, err := in.Get()
				if err != nil {
					return err
				}
				results[i] = v
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return results, nil
	})
	for _, in := range inputs {
		f.AddDependency(in.Task)
	}
	e.Submit(f.Task)
	return f
}

// WhenAllBeforeDeadline returns a Future that resolves at deadline,
// carrying the results of whichever inputs had already completed by
// then. Inputs still running at the deadline are simply omitted, not
// canceled; inputs that failed or were canceled are omitted as well.
func WhenAllBeforeDeadline[T any](e *Executor, name string, inputs []*Future[T], deadline time.Time) *Future[[]T] {
	f := newFuture(name, func() ([]T, error) {
		var results []T
		for _, in := range inputs {
			if in.IsFinished() {
				v, err := in.Get()
				if err != nil {
					continue
				}
				results = append(results, v)
			}
		}
		return results, nil
	})
	f.SetDeadline(deadline)
	f.SetClock(e.clock)
	e.Submit(f.Task)
	return f
}

// WhenFirst returns a Future that resolves with the value (or error) of
// whichever input Future finishes first. If no input ever finishes, the
// returned Future never finishes either.
func WhenFirst[T any](e *Executor, name string, inputs []*Future[T]) *Future[T] {
	done := make(chan int, len(inputs))
	for i, in := range inputs {
		i, in := i, in
		go func() {
			in.Wait()
			done <- i
		}()
	}

	f := newFuture(name, func() (T, error) {
		first := <-done
		return inputs[first].Get()
	})
	e.Submit(f.Task)
	return f
}
