package hostctx

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// WorkQueue is the façade a HostContext forwards to for task submission,
// blocking-queue admission, joint awaiting, and quiescence. Implementations
// own real OS threads; the core never schedules work itself.
type WorkQueue interface {
	// Enqueue submits a non-blocking task. It returns immediately.
	Enqueue(task func())
	// TryEnqueueBlocking attempts to admit a task that may block on I/O.
	// It reports ok=false and hands the task back when the pool rejects it.
	TryEnqueueBlocking(task func(), allowQueuing bool) (rejected func(), ok bool)
	// AwaitAll blocks the caller until every value is resolved.
	AwaitAll(values []*AsyncValue)
	// Quiesce blocks until every submitted task, and every task those
	// tasks transitively submitted, has completed.
	Quiesce()
	// ParallelismLevel reports the queue's self-described degree of
	// parallelism, for sizing heuristics such as ParallelFor's block size.
	ParallelismLevel() uint32
	// Close stops the queue's worker goroutines. Submitting after Close is
	// undefined.
	Close()
}

// poolWorkQueue is the default WorkQueue: a bounded pool of goroutines for
// non-blocking tasks, plus a semaphore-admitted side pool for tasks that
// may block on I/O. It adapts the mutex-guarded dispatch structure of a
// single-threaded cooperative executor into a genuinely multi-threaded
// one: every worker is its own goroutine, scheduled preemptively across
// GOMAXPROCS OS threads rather than run synchronously by a caller's Run
// loop.
type poolWorkQueue struct {
	hostID string
	sink   DiagnosticSink

	tasks       chan func()
	wg          sync.WaitGroup
	parallelism int

	blockingSem     *semaphore.Weighted
	blockingQueueCh chan func()
	blockingWG      sync.WaitGroup

	stopOnce sync.Once
	stopCh   chan struct{}
}

// newPoolWorkQueue builds a WorkQueue with parallelism non-blocking workers,
// a blocking pool admitting at most maxBlocking concurrent tasks, and a
// blocking-queue overflow buffer of blockingQueueDepth. hostID labels the
// work_queue_depth gauge so multiple HostContexts in one process don't
// clobber each other's readings.
func newPoolWorkQueue(hostID string, sink DiagnosticSink, parallelism int, queueDepth int, maxBlocking int64, blockingQueueDepth int) *poolWorkQueue {
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	if parallelism <= 0 {
		parallelism = 1
	}
	q := &poolWorkQueue{
		hostID:          hostID,
		sink:            sink,
		tasks:           make(chan func(), queueDepth),
		parallelism:     parallelism,
		blockingSem:     semaphore.NewWeighted(maxBlocking),
		blockingQueueCh: make(chan func(), blockingQueueDepth),
		stopCh:          make(chan struct{}),
	}
	for i := 0; i < parallelism; i++ {
		go q.worker()
	}
	go q.blockingDispatcher()
	return q
}

func (q *poolWorkQueue) runIsolated(task func()) {
	if err := panicGuard(task); err != nil {
		q.sink(NewDiagnostic("panic in work queue task: " + err.Error()))
	}
}

func (q *poolWorkQueue) worker() {
	for {
		select {
		case task, ok := <-q.tasks:
			if !ok {
				return
			}
			workQueueDepth.WithLabelValues(q.hostID, "non_blocking").Dec()
			q.runIsolated(task)
			q.wg.Done()
		case <-q.stopCh:
			return
		}
	}
}

func (q *poolWorkQueue) Enqueue(task func()) {
	q.wg.Add(1)
	select {
	case q.tasks <- task:
		workQueueDepth.WithLabelValues(q.hostID, "non_blocking").Inc()
		return
	case <-q.stopCh:
		q.wg.Done()
		return
	default:
	}
	// The channel is full: hand the send to its own goroutine so the
	// submitter (possibly a worker running a task) never waits for room.
	go func() {
		select {
		case q.tasks <- task:
			workQueueDepth.WithLabelValues(q.hostID, "non_blocking").Inc()
		case <-q.stopCh:
			q.wg.Done()
		}
	}()
}

// blockingDispatcher drains blockingQueueCh, acquiring an admission slot
// for each task before handing it to its own goroutine. It does not call
// blockingWG.Add: the caller that queued the task already did so at
// admission time, so a queued-but-not-yet-dispatched task is already
// counted by Quiesce.
func (q *poolWorkQueue) blockingDispatcher() {
	for {
		select {
		case task, ok := <-q.blockingQueueCh:
			if !ok {
				return
			}
			workQueueDepth.WithLabelValues(q.hostID, "blocking").Dec()
			if err := q.blockingSem.Acquire(context.Background(), 1); err != nil {
				return
			}
			go func() {
				defer q.blockingWG.Done()
				defer q.blockingSem.Release(1)
				q.runIsolated(task)
			}()
		case <-q.stopCh:
			return
		}
	}
}

// TryEnqueueBlocking admits task to the blocking pool. blockingWG.Add is
// called here, at admission, for both the immediate-run path and the
// queued path — not later inside blockingDispatcher — so a task that is
// merely sitting in blockingQueueCh is already accounted for: Quiesce must
// not observe blockingWG reach zero while such a task is still waiting to
// be dispatched.
func (q *poolWorkQueue) TryEnqueueBlocking(task func(), allowQueuing bool) (func(), bool) {
	if q.blockingSem.TryAcquire(1) {
		q.blockingWG.Add(1)
		go func() {
			defer q.blockingWG.Done()
			defer q.blockingSem.Release(1)
			q.runIsolated(task)
		}()
		return nil, true
	}
	if !allowQueuing {
		return task, false
	}
	q.blockingWG.Add(1)
	select {
	case q.blockingQueueCh <- task:
		workQueueDepth.WithLabelValues(q.hostID, "blocking").Inc()
		return nil, true
	default:
		q.blockingWG.Done()
		return task, false
	}
}

// AwaitAll blocks until every value resolves. While waiting, the caller's
// own goroutine competes with worker goroutines to receive tasks straight
// off the non-blocking queue, so an idle caller does useful work instead of
// merely parking — this is the "caller thread participation" called out by
// §5 of the core's concurrency model.
func (q *poolWorkQueue) AwaitAll(values []*AsyncValue) {
	var wg sync.WaitGroup
	for _, v := range values {
		if v.IsAvailable() {
			continue
		}
		wg.Add(1)
		v.AndThen(func() { wg.Done() })
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		select {
		case <-done:
			return
		case task, ok := <-q.tasks:
			if !ok {
				<-done
				return
			}
			workQueueDepth.WithLabelValues(q.hostID, "non_blocking").Dec()
			q.runIsolated(task)
			q.wg.Done()
		}
	}
}

func (q *poolWorkQueue) Quiesce() {
	q.wg.Wait()
	q.blockingWG.Wait()
}

func (q *poolWorkQueue) ParallelismLevel() uint32 {
	return uint32(q.parallelism)
}

func (q *poolWorkQueue) Close() {
	q.stopOnce.Do(func() {
		close(q.stopCh)
	})
}
