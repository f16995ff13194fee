package syncz

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors returned by the blocking and bounded primitives. Closed
// and absent-key conditions are not exceptional: callers branch on these
// values rather than treating them as unexpected failures.
var (
	// ErrChannelClosed is returned by BufferedChannel.Send and
	// UnbufferedChannel.Send when the channel has been closed.
	ErrChannelClosed = errors.New("syncz: channel closed")
	// ErrKeyAbsent is returned by ConcurrentHashMap.At when the key is
	// not present.
	ErrKeyAbsent = errors.New("syncz: key not found")
	// ErrTaskCanceled is the error observed by waiters on a task that
	// was canceled before it ran (or while it was running).
	ErrTaskCanceled = errors.New("syncz: task canceled")
)

// TaskError wraps a failure captured from a Task's Run, recording which
// task produced it and when. It is the error surfaced by Future.Get and
// stored on Task.Err.
type TaskError struct {
	Err       error
	Name      string
	Timestamp time.Time
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	if e == nil {
		return "<nil>"
	}
	name := e.Name
	if name == "" {
		name = "task"
	}
	return fmt.Sprintf("%s failed at %s: %v", name, e.Timestamp.Format(time.RFC3339Nano), e.Err)
}

// Unwrap supports errors.Is/errors.As against the underlying failure.
func (e *TaskError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
