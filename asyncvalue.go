package hostctx

import (
	"sync"
	"sync/atomic"
)

type valueState int32

const (
	stateUnresolved valueState = iota
	stateConcrete
	stateError
)

// Chain is a payload-free sentinel type, used for futures whose only
// purpose is to signal "done" — most notably the HostContext's ready
// sentinel.
type Chain struct{}

// AsyncValue is the untyped, reference-counted core of a future: a
// set-once cell holding a concrete payload, an error, or nothing yet, plus
// a LIFO stack of continuations to run on resolution. Most callers use the
// generic [AsyncValueRef] wrapper instead of this type directly.
//
// State transitions are monotone: once state leaves stateUnresolved it
// never changes again. An indirect value additionally permits exactly one
// transition driven by forwarding rather than by a direct SetConcrete or
// SetError call.
type AsyncValue struct {
	refCell

	mu      sync.Mutex
	state   stateBox
	payload any
	err     Diagnostic
	waiters []func()

	ownerIndex int32
	isIndirect bool
}

// stateBox wraps an atomic so AsyncValue's fast paths (IsAvailable,
// IsConcrete, IsError) never need to take the mutex: Go's memory model
// gives every atomic store/load pair the same happens-before guarantee a
// mutex Unlock/Lock pair would, so once a reader observes the resolved
// state it may safely read payload/err without additional synchronization.
type stateBox struct{ v atomic.Int32 }

func (b *stateBox) store(n int32) { b.v.Store(n) }
func (b *stateBox) load() int32   { return b.v.Load() }

func newAsyncValue(ownerIndex int32, indirect bool) *AsyncValue {
	v := &AsyncValue{ownerIndex: ownerIndex, isIndirect: indirect}
	v.refCell.init()
	liveAsyncValues.Inc()
	return v
}

func newConcreteAsyncValue(ownerIndex int32, payload any) *AsyncValue {
	v := &AsyncValue{ownerIndex: ownerIndex, payload: payload}
	v.refCell.init()
	v.state.store(int32(stateConcrete))
	liveAsyncValues.Inc()
	return v
}

func newErrorAsyncValue(ownerIndex int32, diag Diagnostic) *AsyncValue {
	v := &AsyncValue{ownerIndex: ownerIndex, err: diag}
	v.refCell.init()
	liveAsyncValues.Inc()
	v.state.store(int32(stateError))
	return v
}

// IsAvailable reports whether v has resolved, to either a concrete value or
// an error.
func (v *AsyncValue) IsAvailable() bool {
	return valueState(v.state.load()) != stateUnresolved
}

// IsConcrete reports whether v holds a concrete payload.
func (v *AsyncValue) IsConcrete() bool {
	return valueState(v.state.load()) == stateConcrete
}

// IsError reports whether v holds an error.
func (v *AsyncValue) IsError() bool {
	return valueState(v.state.load()) == stateError
}

// IsUnique reports whether this is the only live reference to v.
func (v *AsyncValue) IsUnique() bool {
	return v.count() == 1
}

// Get returns the concrete payload. It is only valid when IsConcrete is
// true; otherwise it reports an UnresolvedAccess programming error.
func (v *AsyncValue) Get() any {
	if !v.IsConcrete() {
		reportProgrammingError(ErrUnresolvedAccess)
		return nil
	}
	return v.payload
}

// GetError returns the stored diagnostic. It is only valid when IsError is
// true.
func (v *AsyncValue) GetError() Diagnostic {
	if !v.IsError() {
		reportProgrammingError(ErrUnresolvedAccess)
		return Diagnostic{}
	}
	return v.err
}

// resolve performs the single compare-and-transition described by the
// resolution protocol: it succeeds only out of stateUnresolved, publishes
// payload/err before flipping the state flag, and returns the waiters that
// need to run. It does not run them itself so callers can release the lock
// first.
func (v *AsyncValue) resolve(next valueState, payload any, err Diagnostic) ([]func(), bool) {
	v.mu.Lock()
	if valueState(v.state.load()) != stateUnresolved {
		v.mu.Unlock()
		return nil, false
	}
	v.payload = payload
	v.err = err
	v.state.store(int32(next))
	waiters := v.waiters
	v.waiters = nil
	v.mu.Unlock()
	return waiters, true
}

// SetConcrete transitions v to a concrete value and flushes waiters. It
// reports a DoubleResolve programming error if v was already resolved.
func (v *AsyncValue) SetConcrete(payload any) {
	waiters, ok := v.resolve(stateConcrete, payload, Diagnostic{})
	if !ok {
		reportProgrammingError(ErrDoubleResolve)
		return
	}
	v.flush(waiters)
}

// SetError transitions v to an error state and flushes waiters. It reports
// a DoubleResolve programming error if v was already resolved.
func (v *AsyncValue) SetError(diag Diagnostic) {
	waiters, ok := v.resolve(stateError, nil, diag)
	if !ok {
		reportProgrammingError(ErrDoubleResolve)
		return
	}
	v.flush(waiters)
}

// ForwardTo makes v (which must be indirect) adopt other's eventual state.
// It is implemented by registering an internal waiter on other, so chained
// indirects collapse for free: a waiter only ever runs after its target has
// reached a terminal state, so by the time this waiter fires, other is
// already Concrete or Error, never another unresolved Indirect.
func (v *AsyncValue) ForwardTo(other *AsyncValue) {
	if !v.isIndirect {
		reportProgrammingError(ErrDoubleResolve)
		return
	}
	other.AndThen(func() {
		if other.IsError() {
			v.SetError(other.GetError())
		} else {
			v.SetConcrete(other.Get())
		}
	})
}

// AndThen runs waiter on the calling goroutine immediately if v is already
// resolved; otherwise it queues waiter to run, exactly once, on whichever
// goroutine eventually resolves v.
func (v *AsyncValue) AndThen(waiter func()) {
	if v.IsAvailable() {
		waiter()
		return
	}
	v.mu.Lock()
	if valueState(v.state.load()) != stateUnresolved {
		v.mu.Unlock()
		waiter()
		return
	}
	v.waiters = append(v.waiters, waiter)
	v.mu.Unlock()
}

// flush runs waiters in LIFO order (last registered, first run), isolating
// panics so one bad continuation can't stop its siblings, and reports any
// recovered panics through the owning HostContext's diagnostic sink.
func (v *AsyncValue) flush(waiters []func()) {
	if len(waiters) == 0 {
		return
	}
	ordered := make([]func(), len(waiters))
	for i, w := range waiters {
		ordered[len(waiters)-1-i] = w
	}
	if err := runIsolated(ordered); err != nil {
		sinkFor(v.ownerIndex)(NewDiagnostic("panic in async value continuation: " + err.Error()))
	}
}

// Drop releases one reference. When the last reference goes away, it
// notifies the owning HostContext (identified by ownerIndex) so bookkeeping
// metrics stay accurate; Go's GC reclaims the payload itself.
func (v *AsyncValue) Drop() {
	v.release(func() {
		notifyAsyncValueFreed(v.ownerIndex)
	})
}
