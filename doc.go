// Package hostctx implements a per-process host execution context: the
// substrate an asynchronous dataflow runtime uses to allocate memory,
// schedule work, synchronize on futures, and share singleton services
// across the kernels and operators that run on top of it.
//
// # Async Values
//
// An [AsyncValueRef] is a set-once, reference-counted cell holding either a
// concrete value, an error, or nothing yet. Callers create one with
// [MakeUnresolved] or the package-level [MakeAvailable] and [MakeError]
// constructors, resolve it exactly once, and attach
// continuations with [AsyncValueRef.AndThen]. An indirect future lets a
// caller hand out a future before the producing computation has been
// decided; see [HostContext.MakeIndirectFuture] and
// [AsyncValueRef.ForwardTo].
//
// # Work Queue
//
// A [WorkQueue] submits non-blocking and blocking tasks, awaits sets of
// futures, and reports quiescence. [HostContext] forwards to a configured
// WorkQueue rather than owning threads itself; the default implementation
// runs tasks on a bounded pool of goroutines.
//
// # Parallel For
//
// [HostContext.ParallelFor] partitions an index range across the work
// queue by recursive bisection, with the calling goroutine participating as
// one of the workers.
//
// # Shared Context Registry
//
// [HostContext.GetOrCreateShared] offers lazily constructed, per-type
// singletons addressed by a small dense integer id, stable for the life of
// the HostContext.
//
// # Scope
//
// This package has no opinion about tensor kernels, kernel registries,
// graph execution, or diagnostic location decoding; those are external
// collaborators. It does not distribute work across machines, guarantee
// fairness between tasks, support deadlines or preemption, or detect cycles
// among forwarded futures — callers must not construct those cycles.
package hostctx
