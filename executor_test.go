package syncz

import (
	"errors"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

func TestExecutorInvokeThenWhenAll(t *testing.T) {
	e := NewExecutor("test", 4)
	defer func() {
		e.StartShutdown()
		e.WaitShutdown()
	}()

	var order []string
	f1 := Invoke(e, "f1", func() (int, error) {
		order = append(order, "f1")
		return 1, nil
	})
	f2 := Then(e, "f2", f1, func(in *Future[int]) (int, error) {
		v, err := in.Get()
		if err != nil {
			return 0, err
		}
		order = append(order, "f2")
		return v + 1, nil
	})
	f3 := WhenAll(e, "f3", []*Future[int]{f1, f2})

	got, err := f3.Get()
	if err != nil {
		t.Fatalf("f3.Get() error = %v", err)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("f3.Get() = %v, want [1 2]", got)
	}

	if len(order) != 2 || order[0] != "f1" || order[1] != "f2" {
		t.Fatalf("run order = %v, want [f1 f2] (f2 depends on f1)", order)
	}
}

func TestExecutorWhenAllBeforeDeadlineOmitsUnfinished(t *testing.T) {
	clock := clockz.NewFakeClock()
	e := NewExecutor("test", 2).WithClock(clock)
	defer func() {
		e.StartShutdown()
		e.WaitShutdown()
	}()

	fastDone := make(chan struct{})
	fast := Invoke(e, "fast", func() (string, error) {
		close(fastDone)
		return "fast", nil
	})
	<-fastDone

	release := make(chan struct{})
	slow := Invoke(e, "slow", func() (string, error) {
		<-release
		return "slow", nil
	})
	defer close(release)

	deadline := clock.Now().Add(50 * time.Millisecond)
	combined := WhenAllBeforeDeadline(e, "combined", []*Future[string]{slow, fast}, deadline)

	clock.BlockUntilReady()
	clock.Advance(50 * time.Millisecond)

	got, err := combined.Get()
	if err != nil {
		t.Fatalf("combined.Get() error = %v", err)
	}
	if len(got) != 1 || got[0] != "fast" {
		t.Fatalf("combined.Get() = %v, want [\"fast\"] (slow had not finished by the deadline)", got)
	}
}

func TestExecutorSubmitAfterShutdownCancelsTask(t *testing.T) {
	e := NewExecutor("test", 2)
	e.StartShutdown()
	e.WaitShutdown()

	task := NewTask("late", func() error { return nil })
	e.Submit(task)

	if !task.IsCanceled() {
		t.Fatal("a task submitted after shutdown should be canceled, not run")
	}
}

func TestExecutorWaitShutdownBlocksUntilWorkersExit(t *testing.T) {
	e := NewExecutor("test", 2)

	started := make(chan struct{})
	release := make(chan struct{})
	e.Submit(NewTask("blocker", func() error {
		close(started)
		<-release
		return nil
	}))
	<-started

	done := make(chan struct{})
	go func() {
		e.StartShutdown()
		e.WaitShutdown()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("WaitShutdown returned while a submitted task was still running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitShutdown did not return after the running task finished")
	}
}

func TestExecutorWhenFirstResolvesWithEarliestInput(t *testing.T) {
	e := NewExecutor("test", 4)
	defer func() {
		e.StartShutdown()
		e.WaitShutdown()
	}()

	winnerReady := make(chan struct{})
	slow := Invoke(e, "slow", func() (string, error) {
		<-winnerReady
		time.Sleep(10 * time.Millisecond)
		return "slow", nil
	})
	fast := Invoke(e, "fast", func() (string, error) {
		return "fast", nil
	})
	close(winnerReady)

	first := WhenFirst(e, "first", []*Future[string]{slow, fast})

	got, err := first.Get()
	if err != nil {
		t.Fatalf("first.Get() error = %v", err)
	}
	if got != "fast" {
		t.Fatalf("first.Get() = %q, want %q (fast finishes first)", got, "fast")
	}
}

func TestExecutorEverySubmittedTaskEventuallyFinishes(t *testing.T) {
	e := NewExecutor("test", 3)
	defer func() {
		e.StartShutdown()
		e.WaitShutdown()
	}()

	const n = 50
	tasks := make([]*Task, n)
	var runs []int
	runCounts := make([]int, n)
	for i := 0; i < n; i++ {
		i := i
		tasks[i] = NewTask("task", func() error {
			runCounts[i]++
			return nil
		})
		e.Submit(tasks[i])
	}

	for _, task := range tasks {
		task.Wait()
	}

	for i, task := range tasks {
		if !task.IsFinished() {
			t.Fatalf("task %d did not finish", i)
		}
		if runCounts[i] != 1 {
			t.Fatalf("task %d ran %d times, want exactly 1", i, runCounts[i])
		}
		runs = append(runs, runCounts[i])
	}
	if len(runs) != n {
		t.Fatalf("expected %d finished tasks, got %d", n, len(runs))
	}
}

func TestExecutorFailedDependencyStillUnblocksThen(t *testing.T) {
	e := NewExecutor("test", 2)
	defer func() {
		e.StartShutdown()
		e.WaitShutdown()
	}()

	wantErr := errors.New("upstream failed")
	f1 := Invoke(e, "f1", func() (int, error) { return 0, wantErr })
	f2 := Then(e, "f2", f1, func(in *Future[int]) (int, error) {
		_, err := in.Get()
		if err != nil {
			return 0, err
		}
		return 1, nil
	})

	_, err := f2.Get()
	if !errors.Is(err, wantErr) {
		t.Fatalf("f2.Get() error = %v, want %v to propagate through Then", err, wantErr)
	}
}
