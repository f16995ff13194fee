package syncz

import "testing"

func TestUnboundedBlockingQueueFIFO(t *testing.T) {
	q := NewUnboundedBlockingQueue[int]("test")
	for _, v := range []int{1, 2, 3} {
		if !q.Put(v) {
			t.Fatalf("Put(%d) returned false on open queue", v)
		}
	}

	for _, want := range []int{1, 2, 3} {
		got, ok := q.Take()
		if !ok || got != want {
			t.Fatalf("Take() = (%d, %v), want (%d, true)", got, ok, want)
		}
	}
}

func TestUnboundedBlockingQueueCloseDrains(t *testing.T) {
	q := NewUnboundedBlockingQueue[int]("test")
	q.Put(1)
	q.Put(2)
	q.Close()

	if q.Put(3) {
		t.Fatal("Put after Close should return false")
	}

	for _, want := range []int{1, 2} {
		got, ok := q.Take()
		if !ok || got != want {
			t.Fatalf("Take() = (%d, %v), want (%d, true)", got, ok, want)
		}
	}
	if _, ok := q.Take(); ok {
		t.Fatal("Take() after drain should return absent")
	}
}

func TestUnboundedBlockingQueueCancelDiscards(t *testing.T) {
	q := NewUnboundedBlockingQueue[int]("test")
	q.Put(1)
	q.Put(2)
	q.Cancel()

	if _, ok := q.Take(); ok {
		t.Fatal("Take() after Cancel should return absent immediately, buffer should be discarded")
	}
}

func TestUnboundedBlockingQueueTakeBlocksUntilPut(t *testing.T) {
	q := NewUnboundedBlockingQueue[int]("test")
	result := make(chan int, 1)

	go func() {
		v, ok := q.Take()
		if !ok {
			return
		}
		result <- v
	}()

	select {
	case <-result:
		t.Fatal("Take() returned before any Put")
	default:
	}

	q.Put(7)
	if got := <-result; got != 7 {
		t.Fatalf("Take() = %d, want 7", got)
	}
}
