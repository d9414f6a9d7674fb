package hostctx

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestQueue(t *testing.T) *poolWorkQueue {
	t.Helper()
	q := newPoolWorkQueue("test-host", noopSink, 4, 256, 8, 32)
	t.Cleanup(q.Close)
	return q
}

func TestPoolWorkQueueRunsEnqueuedTasks(t *testing.T) {
	q := newTestQueue(t)

	var n atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		q.Enqueue(func() {
			n.Add(1)
			wg.Done()
		})
	}
	wg.Wait()

	if n.Load() != 100 {
		t.Fatalf("ran %d tasks, want 100", n.Load())
	}
}

func TestPoolWorkQueueAwaitAll(t *testing.T) {
	q := newTestQueue(t)

	a := newConcreteAsyncValue(0, 1)
	b := newAsyncValue(0, false)

	q.Enqueue(func() {
		time.Sleep(10 * time.Millisecond)
		b.SetConcrete(2)
	})

	q.AwaitAll([]*AsyncValue{a, b})

	if !a.IsAvailable() || !b.IsAvailable() {
		t.Fatal("AwaitAll returned before every value resolved")
	}
}

func TestPoolWorkQueueBlockingAdmission(t *testing.T) {
	q := newPoolWorkQueue("test-host", noopSink, 2, 16, 2, 4)
	t.Cleanup(q.Close)

	release := make(chan struct{})
	var running atomic.Int32
	var maxObserved atomic.Int32

	block := func() {
		n := running.Add(1)
		for {
			old := maxObserved.Load()
			if n <= old || maxObserved.CompareAndSwap(old, n) {
				break
			}
		}
		<-release
		running.Add(-1)
	}

	for i := 0; i < 6; i++ {
		_, ok := q.TryEnqueueBlocking(block, true)
		if !ok {
			t.Fatalf("task %d unexpectedly rejected", i)
		}
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	q.blockingWG.Wait()

	if maxObserved.Load() > 2 {
		t.Fatalf("observed %d concurrently running blocking tasks, want at most 2", maxObserved.Load())
	}
}

func TestPoolWorkQueueBlockingRejectsWhenFull(t *testing.T) {
	q := newPoolWorkQueue("test-host", noopSink, 2, 16, 1, 0)
	t.Cleanup(q.Close)

	release := make(chan struct{})
	_, ok := q.TryEnqueueBlocking(func() { <-release }, false)
	if !ok {
		t.Fatal("first blocking task should be admitted immediately")
	}

	time.Sleep(5 * time.Millisecond)
	task := func() {}
	rejected, ok := q.TryEnqueueBlocking(task, false)
	if ok {
		t.Fatal("second task should be rejected: pool saturated and queuing disallowed")
	}
	if rejected == nil {
		t.Fatal("a rejected task must be handed back to the caller")
	}
	close(release)
}

// Regression test: a blocking task accepted into blockingQueueCh (because
// the semaphore was already saturated) must still be counted by Quiesce
// even though it hasn't started running yet. Before the fix, blockingWG
// only tracked tasks once blockingDispatcher got around to starting them,
// so Quiesce could return while queued tasks were still waiting.
func TestPoolWorkQueueQuiesceWaitsForQueuedBlockingTasks(t *testing.T) {
	q := newPoolWorkQueue("test-host", noopSink, 2, 16, 1, 8)
	t.Cleanup(q.Close)

	release := make(chan struct{})
	const total = 5

	var started atomic.Int32
	var completed atomic.Int32
	for i := 0; i < total; i++ {
		_, ok := q.TryEnqueueBlocking(func() {
			started.Add(1)
			<-release
			completed.Add(1)
		}, true)
		if !ok {
			t.Fatalf("task %d should have been admitted or queued, not rejected", i)
		}
	}

	quiesced := make(chan struct{})
	go func() {
		q.Quiesce()
		close(quiesced)
	}()

	select {
	case <-quiesced:
		t.Fatal("Quiesce returned before any blocking task (let alone the queued ones) had run")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case <-quiesced:
	case <-time.After(2 * time.Second):
		t.Fatal("Quiesce never returned after releasing every blocking task")
	}

	if got := completed.Load(); got != total {
		t.Fatalf("completed %d blocking tasks, want %d (queued ones must run too)", got, total)
	}
}

func TestPoolWorkQueueQuiesceWaitsForChildren(t *testing.T) {
	q := newTestQueue(t)

	var completed atomic.Int64
	var spawn func(depth int)
	spawn = func(depth int) {
		q.Enqueue(func() {
			completed.Add(1)
			if depth < 3 {
				spawn(depth + 1)
			}
		})
	}
	for i := 0; i < 50; i++ {
		spawn(0)
	}

	q.Quiesce()

	if completed.Load() != 50*4 {
		t.Fatalf("completed %d tasks, want %d", completed.Load(), 50*4)
	}
}
