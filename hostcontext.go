package hostctx

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// hostContextSlotCapacity is N_MAX from the core's "all_contexts" table
// contract: a small constant sized so an instance index fits comfortably
// in the small-integer encodings callers build around it.
const hostContextSlotCapacity = 256

var (
	nextInstanceIndex atomic.Int32

	allContextsMu sync.Mutex
	allContexts   [hostContextSlotCapacity]*HostContext
)

var noopSink DiagnosticSink = func(Diagnostic) {}

// sinkFor looks up the DiagnosticSink of the HostContext that owns
// ownerIndex, falling back to a no-op sink if the context has already been
// closed or the index is out of range — this only happens for a panic
// recovered from a continuation that outlived its HostContext, which is
// itself a programming error the caller made, not something this package
// should also panic over.
func sinkFor(ownerIndex int32) DiagnosticSink {
	if ownerIndex < 0 || int(ownerIndex) >= hostContextSlotCapacity {
		return noopSink
	}
	allContextsMu.Lock()
	hc := allContexts[ownerIndex]
	allContextsMu.Unlock()
	if hc == nil {
		return noopSink
	}
	return hc.sink
}

// HostContext binds an Allocator, a WorkQueue, and a SharedContext registry
// together behind a diagnostic sink, an always-resolved "ready chain"
// future, and a context-wide cancellation slot. It is the ambient
// collaborator every other component in this package receives.
type HostContext struct {
	instanceIndex int32
	id            uuid.UUID
	cfg           HostContextConfig

	allocator Allocator
	queue     WorkQueue
	sink      DiagnosticSink
	registry  *sharedContextRegistry

	ready AsyncValueRef[Chain]
	cancel atomic.Pointer[AsyncValue]

	closeOnce sync.Once
}

// NewHostContext constructs a HostContext from cfg, assigning it the next
// process-wide instance index. A nil sink defaults to a no-op zap sink; a
// nil allocator defaults to a ByteSliceAllocator. Indices are never reused,
// so constructing more than hostContextSlotCapacity HostContexts over the
// life of the process is fatal, whether or not earlier ones were closed.
func NewHostContext(cfg HostContextConfig, sink DiagnosticSink, allocator Allocator) *HostContext {
	cfg = cfg.applyDefaults()

	idx := nextInstanceIndex.Add(1) - 1
	if idx >= hostContextSlotCapacity {
		panicCapacityExceeded("too many live host contexts")
	}

	if sink == nil {
		sink = NewZapSink(nil)
	}
	if allocator == nil {
		allocator = NewByteSliceAllocator()
	}

	hostID := uuid.New()

	hc := &HostContext{
		instanceIndex: idx,
		id:            hostID,
		cfg:           cfg,
		allocator:     allocator,
		queue:         newPoolWorkQueue(hostID.String(), sink, cfg.Parallelism, cfg.QueueDepth, cfg.MaxBlockingTasks, cfg.BlockingQueueDepth),
		sink:          sink,
		registry:      newSharedContextRegistry(),
	}
	hc.ready = MakeAvailable[Chain](hc, Chain{})

	allContextsMu.Lock()
	allContexts[idx] = hc
	allContextsMu.Unlock()
	activeContexts.Inc()

	return hc
}

// ID returns the HostContext's process-unique identity, used only for
// metric labels and structured log fields — distinct from the small dense
// InstanceIndex used by the all_contexts table.
func (hc *HostContext) ID() uuid.UUID { return hc.id }

// InstanceIndex returns the stable small integer assigned at construction.
func (hc *HostContext) InstanceIndex() int32 { return hc.instanceIndex }

// Config returns the configuration this HostContext was constructed with.
func (hc *HostContext) Config() HostContextConfig { return hc.cfg }

// Ready returns the always-available "ready chain" sentinel future.
func (hc *HostContext) Ready() AsyncValueRef[Chain] { return hc.ready }

// AllocateBytes forwards to the configured Allocator.
func (hc *HostContext) AllocateBytes(size, align int) []byte {
	return hc.allocator.Allocate(size, align)
}

// DeallocateBytes forwards to the configured Allocator.
func (hc *HostContext) DeallocateBytes(buf []byte) {
	hc.allocator.Deallocate(buf)
}

// Enqueue forwards a non-blocking task to the work queue.
func (hc *HostContext) Enqueue(task func()) {
	hc.queue.Enqueue(task)
}

// EnqueueBlocking attempts to admit task onto the blocking pool, queuing it
// if the pool is momentarily saturated. It reports false if the task was
// rejected outright.
func (hc *HostContext) EnqueueBlocking(task func()) bool {
	_, ok := hc.queue.TryEnqueueBlocking(task, true)
	return ok
}

// ParallelismLevel reports the work queue's self-described degree of
// parallelism.
func (hc *HostContext) ParallelismLevel() uint32 {
	return hc.queue.ParallelismLevel()
}

// Await blocks the caller until every value in values has resolved.
func (hc *HostContext) Await(values []*AsyncValue) {
	hc.queue.AwaitAll(values)
}

// Quiesce blocks until the work queue has no in-flight or pending tasks,
// including tasks transitively enqueued by other tasks.
func (hc *HostContext) Quiesce() {
	hc.queue.Quiesce()
}

// MakeErrorFuture returns a new AsyncValue already resolved to diag.
func (hc *HostContext) MakeErrorFuture(diag Diagnostic) *AsyncValue {
	return newErrorAsyncValue(hc.instanceIndex, diag)
}

// EmitError routes diag through the diagnostic sink without producing a
// future.
func (hc *HostContext) EmitError(diag Diagnostic) {
	hc.sink(diag)
}

// MakeErrorAndEmit builds a Diagnostic from message, emits it through the
// sink, and returns an AsyncValue already resolved to it — the combined
// helper the original exposes as EmitErrorAsync.
func (hc *HostContext) MakeErrorAndEmit(message string) *AsyncValue {
	diag := NewDiagnostic(message)
	hc.EmitError(diag)
	return hc.MakeErrorFuture(diag)
}

// MakeIndirectFuture returns a new, unresolved indirect AsyncValue.
func (hc *HostContext) MakeIndirectFuture() *AsyncValue {
	return newAsyncValue(hc.instanceIndex, true)
}

// Cancel installs msg as the context-wide cancellation future if none is
// installed yet. First writer wins: a losing concurrent call drops its own
// candidate future instead of retrying.
func (hc *HostContext) Cancel(msg string) {
	candidate := newErrorAsyncValue(hc.instanceIndex, NewDiagnostic(msg))
	if hc.cancel.CompareAndSwap(nil, candidate) {
		cancellationsTotal.WithLabelValues("installed").Inc()
		return
	}
	candidate.Drop()
	cancellationsTotal.WithLabelValues("dropped").Inc()
}

// Restart clears the context-wide cancellation slot, dropping the
// previously installed future if any.
func (hc *HostContext) Restart() {
	if prev := hc.cancel.Swap(nil); prev != nil {
		prev.Drop()
	}
}

// CancelValue returns the currently installed cancellation future, if any.
func (hc *HostContext) CancelValue() (*AsyncValue, bool) {
	v := hc.cancel.Load()
	return v, v != nil
}

// RunWhenReady registers callback to run once every value in values has
// resolved. It is a pure join barrier: error inputs do not short-circuit
// it, and with zero or one still-pending value it avoids allocating a join
// record entirely.
func (hc *HostContext) RunWhenReady(values []*AsyncValue, callback func()) {
	pending := make([]*AsyncValue, 0, len(values))
	for _, v := range values {
		if !v.IsAvailable() {
			pending = append(pending, v)
		}
	}

	switch len(pending) {
	case 0:
		callback()
	case 1:
		pending[0].AndThen(callback)
	default:
		counter := new(atomic.Int64)
		counter.Store(int64(len(pending)))
		for _, v := range pending {
			v.AndThen(func() {
				if counter.Add(-1) == 0 {
					callback()
				}
			})
		}
	}
}

// ParallelFor partitions [0, n) into blocks and runs compute over each
// block, recursively bisecting the block range across the work queue. See
// parallelFor for the block-size formula and bisection algorithm.
func (hc *HostContext) ParallelFor(n int, minBlock int, compute func(lo, hi int), onDone func()) {
	parallelFor(hc, n, minBlock, compute, onDone)
}

// GetOrCreateShared returns the singleton registered under id, invoking
// factory at most once to construct it. A factory error is not cached: the
// next caller for the same id gets to retry.
func (hc *HostContext) GetOrCreateShared(id int32, factory func(*HostContext) (SharedContext, error)) (SharedContext, error) {
	return hc.registry.getOrCreate(hc, id, factory)
}

// Close tears the HostContext down in the order the core specifies: the
// ready sentinel is dropped first (so its own bookkeeping still finds the
// allocator alive), then the context's slot is cleared from the
// process-wide table, then the registry, work queue, and allocator are
// torn down in that order. Close is idempotent.
func (hc *HostContext) Close() {
	hc.closeOnce.Do(func() {
		hc.ready.Release()

		allContextsMu.Lock()
		allContexts[hc.instanceIndex] = nil
		allContextsMu.Unlock()
		activeContexts.Dec()

		hc.registry = nil
		hc.queue.Close()

		if prev := hc.cancel.Swap(nil); prev != nil {
			prev.Drop()
		}

		if closer, ok := hc.allocator.(interface{ Close() }); ok {
			closer.Close()
		}
	})
}
