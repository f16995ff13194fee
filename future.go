package syncz

// Future is a Task whose work produces a value of type T. Construct one
// through Invoke, Then, WhenAll, WhenAllBeforeDeadline or WhenFirst
// (which take the Executor as their first argument) rather than
// directly, so it is wired into the worker queue.
type Future[T any] struct {
	*Task
	value T
}

// newFuture creates a Future that stores produce's result once invoked.
// produce's error is surfaced through the embedded Task and through Get.
func newFuture[T any](name string, produce func() (T, error)) *Future[T] {
	f := &Future[T]{}
	f.Task = NewTask(name, func() error {
		v, err := produce()
		if err != nil {
			return err
		}
		f.value = v
		return nil
	})
	return f
}

// Get blocks until the future is finished and returns its value. If the
// task failed, the zero value and the task's error are returned. If the
// task was canceled, the zero value and ErrTaskCanceled are returned.
func (f *Future[T]) Get() (T, error) {
	f.Wait()
	if f.IsCanceled() {
		var zero T
		return zero, ErrTaskCanceled
	}
	if f.IsFailed() {
		var zero T
		return zero, f.Err()
	}
	return f.value, nil
}
