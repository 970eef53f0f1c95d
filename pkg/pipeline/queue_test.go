package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/user/mediaplay/pkg/media"
)

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue[int]()
	for i := 0; i < 100; i++ {
		q.Push(i)
	}

	for i := 0; i < 100; i++ {
		got, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop %d: unexpected end of stream", i)
		}
		if got != i {
			t.Fatalf("Pop %d: got %d", i, got)
		}
	}

	if q.Len() != 0 {
		t.Errorf("expected empty queue, got %d items", q.Len())
	}
}

func TestQueue_SetFinishedUnblocksPop(t *testing.T) {
	q := NewUnitQueue()
	done := make(chan bool, 1)

	go func() {
		_, ok := q.Pop()
		done <- ok
	}()

	select {
	case <-done:
		t.Fatal("Pop returned before data or finish")
	case <-time.After(50 * time.Millisecond):
	}

	q.SetFinished(true)

	select {
	case ok := <-done:
		if ok {
			t.Error("expected ok == false after finish on empty queue")
		}
	case <-time.After(time.Second):
		t.Fatal("Pop still blocked after SetFinished")
	}
}

func TestQueue_SetFinishedWakesAllWaiters(t *testing.T) {
	q := NewQueue[int]()
	const waiters = 8

	var wg sync.WaitGroup
	wg.Add(waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			defer wg.Done()
			q.Pop()
		}()
	}

	time.Sleep(20 * time.Millisecond)
	q.SetFinished(true)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("not all waiters were woken by SetFinished")
	}
}

func TestQueue_DrainBeforeFinish(t *testing.T) {
	q := NewQueue[int]()
	q.Push(1)
	q.Push(2)
	q.Push(3)
	q.SetFinished(true)

	if !q.IsFinished() {
		t.Fatal("expected finished")
	}

	for want := 1; want <= 3; want++ {
		got, ok := q.Pop()
		if !ok || got != want {
			t.Fatalf("expected (%d, true), got (%d, %v)", want, got, ok)
		}
	}

	if _, ok := q.Pop(); ok {
		t.Error("expected end of stream after draining")
	}
}

func TestQueue_PopContextCancel(t *testing.T) {
	q := NewQueue[int]()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool, 1)
	go func() {
		_, ok := q.PopContext(ctx)
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case ok := <-done:
		if ok {
			t.Error("expected ok == false after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("PopContext did not return after cancel")
	}
}

func TestQueue_TryPop(t *testing.T) {
	q := NewQueue[string]()
	if _, ok := q.TryPop(); ok {
		t.Fatal("TryPop on empty queue returned an item")
	}
	q.Push("a")
	if got, ok := q.TryPop(); !ok || got != "a" {
		t.Errorf("expected (a, true), got (%q, %v)", got, ok)
	}
}

func TestQueue_Flush(t *testing.T) {
	q := NewUnitQueue()
	for i := 0; i < 5; i++ {
		q.Push(&media.Unit{PTS: time.Duration(i)})
	}

	if n := q.Flush(); n != 5 {
		t.Errorf("expected 5 flushed, got %d", n)
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue after flush, got %d", q.Len())
	}
	if q.IsFinished() {
		t.Error("flush must not finish the queue")
	}

	q.Push(&media.Unit{PTS: 42})
	u, ok := q.Pop()
	if !ok || u.PTS != 42 {
		t.Errorf("unexpected item after flush: %+v", u)
	}
}

func TestQueue_StressNoLossNoDuplication(t *testing.T) {
	const total = 10000
	q := NewUnitQueue()

	go func() {
		for i := 0; i < total; i++ {
			q.Push(&media.Unit{PTS: time.Duration(i)})
		}
		q.SetFinished(true)
	}()

	expected := time.Duration(0)
	for {
		u, ok := q.Pop()
		if !ok {
			break
		}
		if u.PTS != expected {
			t.Fatalf("out of order: got %d, want %d", u.PTS, expected)
		}
		expected++
	}

	if expected != total {
		t.Errorf("received %d units, want %d", expected, total)
	}
}

func TestQueue_MultipleConsumers(t *testing.T) {
	const total = 10000
	const consumers = 4
	q := NewQueue[int]()

	var mu sync.Mutex
	seen := make(map[int]int, total)

	var wg sync.WaitGroup
	wg.Add(consumers)
	for c := 0; c < consumers; c++ {
		go func() {
			defer wg.Done()
			for {
				v, ok := q.Pop()
				if !ok {
					return
				}
				mu.Lock()
				seen[v]++
				mu.Unlock()
			}
		}()
	}

	for i := 0; i < total; i++ {
		q.Push(i)
	}
	q.SetFinished(true)
	wg.Wait()

	if len(seen) != total {
		t.Fatalf("expected %d distinct items, got %d", total, len(seen))
	}
	for v, n := range seen {
		if n != 1 {
			t.Fatalf("item %d consumed %d times", v, n)
		}
	}
}

func TestQueue_TakenSignalsAfterPop(t *testing.T) {
	q := NewQueue[int]()
	q.Push(1)
	q.Push(2)

	select {
	case <-q.Taken():
		t.Fatal("unexpected wake-up before any pop")
	default:
	}

	q.Pop()
	q.TryPop()
	select {
	case <-q.Taken():
	default:
		t.Fatal("expected a wake-up after pop")
	}
	// Wake-ups coalesce into one pending signal.
	select {
	case <-q.Taken():
		t.Fatal("expected a single pending wake-up")
	default:
	}
}

func TestQueue_TakenWakesBlockedProducer(t *testing.T) {
	const limit = 4
	q := NewQueue[int]()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			for q.Len() >= limit {
				<-q.Taken()
			}
			q.Push(i)
		}
		q.SetFinished(true)
	}()

	got := 0
	for {
		if n := q.Len(); n > limit {
			t.Fatalf("queue grew to %d items", n)
		}
		if _, ok := q.Pop(); !ok {
			break
		}
		got++
	}
	<-done
	if got != 100 {
		t.Errorf("expected 100 items, got %d", got)
	}
}

func TestQueue_FlushSignalsTaken(t *testing.T) {
	q := NewQueue[int]()
	q.Flush()
	select {
	case <-q.Taken():
		t.Fatal("flushing an empty queue should not signal")
	default:
	}

	q.Push(1)
	q.Flush()
	select {
	case <-q.Taken():
	default:
		t.Fatal("expected a wake-up after flush")
	}
}
