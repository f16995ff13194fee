package syncz

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

func TestTaskRunsOnlyOnceGatesOpen(t *testing.T) {
	var runs int
	task := NewTask("test", func() error {
		runs++
		return nil
	})

	task.Invoke()
	task.Invoke()
	task.Invoke()

	if runs != 1 {
		t.Fatalf("fn ran %d times, want 1", runs)
	}
	if !task.IsCompleted() {
		t.Fatal("task should be completed")
	}
	if !task.IsFinished() {
		t.Fatal("task should be finished")
	}
}

func TestTaskDependencyGateBlocksUntilAllFinished(t *testing.T) {
	dep1 := NewTask("dep1", func() error { return nil })
	dep2 := NewTask("dep2", func() error { return nil })

	var ran bool
	task := NewTask("task", func() error {
		ran = true
		return nil
	})
	task.AddDependency(dep1)
	task.AddDependency(dep2)

	task.Invoke()
	if ran {
		t.Fatal("task ran before any dependency finished")
	}

	dep1.Invoke()
	task.Invoke()
	if ran {
		t.Fatal("task ran before all dependencies finished")
	}

	dep2.Invoke()
	task.Invoke()
	if !ran {
		t.Fatal("task should run once every dependency has finished")
	}
}

func TestTaskTriggerGateOpensOnFirstFinish(t *testing.T) {
	trig1 := NewTask("trig1", func() error { return nil })
	trig2 := NewTask("trig2", func() error { return errors.New("boom") })

	var ran bool
	task := NewTask("task", func() error {
		ran = true
		return nil
	})
	task.AddTrigger(trig1)
	task.AddTrigger(trig2)

	task.Invoke()
	if ran {
		t.Fatal("task ran before any trigger finished")
	}

	// A trigger that fails still counts as finished for the OR-gate.
	trig2.Invoke()
	task.Invoke()
	if !ran {
		t.Fatal("task should run once at least one trigger has finished")
	}
}

func TestTaskDeadlineGateIsInclusive(t *testing.T) {
	clock := clockz.NewFakeClock()
	deadline := clock.Now().Add(time.Minute)

	var ran bool
	task := NewTask("task", func() error {
		ran = true
		return nil
	})
	task.SetClock(clock)
	task.SetDeadline(deadline)

	task.Invoke()
	if ran {
		t.Fatal("task ran before its deadline arrived")
	}

	clock.Advance(time.Minute)
	task.Invoke()
	if !ran {
		t.Fatal("task should run once clock.Now() reaches the deadline exactly")
	}
}

func TestTaskFailurePropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	task := NewTask("test", func() error { return wantErr })

	task.Invoke()

	if !task.IsFailed() {
		t.Fatal("task should be failed")
	}
	if !task.IsFinished() {
		t.Fatal("task should be finished")
	}
	if task.IsCompleted() {
		t.Fatal("a failed task should not be completed")
	}
	if !errors.Is(task.Err(), wantErr) {
		t.Fatalf("Err() = %v, want %v", task.Err(), wantErr)
	}
}

func TestTaskPanicBecomesError(t *testing.T) {
	task := NewTask("test", func() error {
		panic("kaboom")
	})

	task.Invoke()

	if !task.IsFailed() {
		t.Fatal("a panicking task should be reported as failed")
	}
	if task.Err() == nil {
		t.Fatal("Err() should be non-nil after a panic")
	}
}

func TestTaskCancelBeforeInvokeIsPermanentNoOp(t *testing.T) {
	var ran bool
	task := NewTask("test", func() error {
		ran = true
		return nil
	})

	task.Cancel()
	task.Invoke()

	if ran {
		t.Fatal("Invoke should be a no-op on an already-canceled task")
	}
	if !task.IsCanceled() {
		t.Fatal("task should report canceled")
	}
	if !task.IsFinished() {
		t.Fatal("a canceled task should report finished")
	}
}

func TestTaskCancelWakesWaiters(t *testing.T) {
	task := NewTask("test", func() error {
		select {} // never invoked in this test; gate stays closed forever
	})
	dep := NewTask("dep", func() error { return nil })
	task.AddDependency(dep) // keeps the gate closed so Invoke is never meaningful

	done := make(chan struct{})
	go func() {
		task.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before the task was ever canceled or finished")
	case <-time.After(20 * time.Millisecond):
	}

	// A task canceled before it is ever successfully invoked must still
	// wake anyone blocked in Wait.
	task.Cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Cancel on a never-invoked task")
	}
}

func TestTaskConcurrentInvokeRunsExactlyOnce(t *testing.T) {
	var runs sync.Mutex
	count := 0
	task := NewTask("test", func() error {
		runs.Lock()
		count++
		runs.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task.Invoke()
		}()
	}
	wg.Wait()

	if count != 1 {
		t.Fatalf("fn ran %d times under concurrent Invoke, want 1", count)
	}
}
