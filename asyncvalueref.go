package hostctx

// AsyncValueRef is a typed, reference-counted handle onto an [AsyncValue].
// It mirrors tfrt::AsyncValueRef<T>: most of the type information lives at
// the Go type level so callers of Get don't need to name T again.
type AsyncValueRef[T any] struct {
	v *AsyncValue
}

// MakeUnresolved returns a new, unresolved AsyncValueRef owned by host.
func MakeUnresolved[T any](host *HostContext) AsyncValueRef[T] {
	return AsyncValueRef[T]{v: newAsyncValue(host.instanceIndex, false)}
}

// MakeAvailable returns an AsyncValueRef already resolved to value.
func MakeAvailable[T any](host *HostContext, value T) AsyncValueRef[T] {
	return AsyncValueRef[T]{v: newConcreteAsyncValue(host.instanceIndex, value)}
}

// MakeError returns an AsyncValueRef already resolved to diag.
func MakeError[T any](host *HostContext, diag Diagnostic) AsyncValueRef[T] {
	return AsyncValueRef[T]{v: newErrorAsyncValue(host.instanceIndex, diag)}
}

// MakeIndirect returns a new indirect AsyncValueRef: unresolved until
// ForwardTo is called on it.
func MakeIndirect[T any](host *HostContext) AsyncValueRef[T] {
	return AsyncValueRef[T]{v: newAsyncValue(host.instanceIndex, true)}
}

// IsAvailable reports whether r has resolved, to either a value or an error.
func (r AsyncValueRef[T]) IsAvailable() bool { return r.v.IsAvailable() }

// IsConcrete reports whether r holds a concrete value.
func (r AsyncValueRef[T]) IsConcrete() bool { return r.v.IsConcrete() }

// IsError reports whether r holds an error.
func (r AsyncValueRef[T]) IsError() bool { return r.v.IsError() }

// IsUnique reports whether this is the only live reference to the
// underlying AsyncValue.
func (r AsyncValueRef[T]) IsUnique() bool { return r.v.IsUnique() }

// Get returns the concrete value. r must be IsConcrete.
func (r AsyncValueRef[T]) Get() T {
	v, _ := r.v.Get().(T)
	return v
}

// GetError returns the stored diagnostic. r must be IsError.
func (r AsyncValueRef[T]) GetError() Diagnostic { return r.v.GetError() }

// Emplace constructs T in place and resolves r to it. Named to mirror
// AsyncValue::emplace<T>, even though in Go it's just SetConcrete by
// another name — args are collapsed to the already-constructed value
// because Go has no placement-new to forward constructor arguments to.
func (r AsyncValueRef[T]) Emplace(value T) { r.SetConcrete(value) }

// SetConcrete resolves r to value.
func (r AsyncValueRef[T]) SetConcrete(value T) { r.v.SetConcrete(value) }

// SetError resolves r to diag.
func (r AsyncValueRef[T]) SetError(diag Diagnostic) { r.v.SetError(diag) }

// ForwardTo makes r, which must have been created with [MakeIndirect],
// adopt other's eventual resolution.
func (r AsyncValueRef[T]) ForwardTo(other AsyncValueRef[T]) { r.v.ForwardTo(other.v) }

// AndThen runs waiter synchronously if r is already resolved, or queues it
// to run, exactly once, when r resolves.
func (r AsyncValueRef[T]) AndThen(waiter func()) { r.v.AndThen(waiter) }

// CopyRef returns a new AsyncValueRef sharing the same underlying
// AsyncValue, incrementing its refcount.
func (r AsyncValueRef[T]) CopyRef() AsyncValueRef[T] {
	r.v.retain()
	return r
}

// Release drops one reference to the underlying AsyncValue.
func (r AsyncValueRef[T]) Release() { r.v.Drop() }

// Valid reports whether r wraps a live AsyncValue.
func (r AsyncValueRef[T]) Valid() bool { return r.v != nil }

// Handle returns the untyped AsyncValue backing r, for APIs (AwaitAll,
// RunWhenReady) that operate across heterogeneous futures.
func (r AsyncValueRef[T]) Handle() *AsyncValue { return r.v }

// FromHandle wraps an untyped AsyncValue back into a typed AsyncValueRef.
// The caller is responsible for v actually holding (or eventually holding)
// a T; this is an unchecked narrowing, mirroring the original's implicit
// AsyncValueRef<Derived> -> AsyncValueRef<Base> conversion run in reverse.
func FromHandle[T any](v *AsyncValue) AsyncValueRef[T] {
	return AsyncValueRef[T]{v: v}
}

// Upcast erases r's payload type, yielding an AsyncValueRef[any] that
// shares the same underlying AsyncValue. Go generics have no variance, so
// this stands in for the original's implicit AsyncValueRef<Derived> ->
// AsyncValueRef<Base> conversion.
func Upcast[T any](r AsyncValueRef[T]) AsyncValueRef[any] {
	return AsyncValueRef[any]{v: r.v}
}
