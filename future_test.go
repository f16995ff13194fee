package syncz

import (
	"errors"
	"testing"
	"time"
)

func TestFutureGetReturnsValueOnSuccess(t *testing.T) {
	f := newFuture("test", func() (int, error) { return 42, nil })
	f.Invoke()

	v, err := f.Get()
	if err != nil {
		t.Fatalf("Get() error = %v, want nil", err)
	}
	if v != 42 {
		t.Fatalf("Get() = %d, want 42", v)
	}
}

func TestFutureGetReturnsErrorOnFailure(t *testing.T) {
	wantErr := errors.New("boom")
	f := newFuture("test", func() (int, error) { return 0, wantErr })
	f.Invoke()

	v, err := f.Get()
	if !errors.Is(err, wantErr) {
		t.Fatalf("Get() error = %v, want %v", err, wantErr)
	}
	if v != 0 {
		t.Fatalf("Get() value = %d, want zero value", v)
	}
}

func TestFutureGetReturnsCanceledErrorOnCancel(t *testing.T) {
	f := newFuture("test", func() (int, error) { return 1, nil })
	f.Cancel()

	v, err := f.Get()
	if !errors.Is(err, ErrTaskCanceled) {
		t.Fatalf("Get() error = %v, want ErrTaskCanceled", err)
	}
	if v != 0 {
		t.Fatalf("Get() value = %d, want zero value", v)
	}
}

func TestFutureGetBlocksUntilFinished(t *testing.T) {
	f := newFuture("test", func() (string, error) { return "done", nil })

	done := make(chan struct{})
	var got string
	go func() {
		v, _ := f.Get()
		got = v
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Get() returned before the future's task was ever invoked")
	case <-time.After(20 * time.Millisecond):
	}

	f.Invoke()
	<-done

	if got != "done" {
		t.Fatalf("Get() = %q, want \"done\"", got)
	}
}
