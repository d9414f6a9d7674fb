package hostctx

import (
	"sync"
	"sync/atomic"
)

// sharedContextTypeCapacity is N_SHARED from the registry's fixed-capacity
// contract.
const sharedContextTypeCapacity = 256

var numSharedContextTypes atomic.Int32

// NextSharedContextTypeID hands out a dense, process-wide id for a new
// shared-context type. Callers typically call this once at package init
// time into a package-level variable and reuse the returned id on every
// GetOrCreateShared call for that type, mirroring how the original assigns
// type ids at first registration.
func NextSharedContextTypeID() int32 {
	id := numSharedContextTypes.Add(1) - 1
	if id >= sharedContextTypeCapacity {
		panicCapacityExceeded("too many shared context types registered")
	}
	return id
}

// SharedContext is the type-erased capability a shared singleton exposes;
// callers type-assert back to their concrete type after GetOrCreateShared
// returns.
type SharedContext = any

type sharedContextSlot struct {
	mu       sync.Mutex
	ready    atomic.Bool
	instance SharedContext
}

// sharedContextRegistry is a fixed array of SharedContextSlot, one per
// registered type id. Unlike a plain sync.Once, a slot whose factory
// returns an error does not latch — a later caller gets to retry, matching
// the fallible-factory Go idiom declared for GetOrCreateShared.
type sharedContextRegistry struct {
	slots [sharedContextTypeCapacity]sharedContextSlot
}

func newSharedContextRegistry() *sharedContextRegistry {
	return &sharedContextRegistry{}
}

func (r *sharedContextRegistry) getOrCreate(host *HostContext, id int32, factory func(*HostContext) (SharedContext, error)) (SharedContext, error) {
	if id < 0 || int(id) >= sharedContextTypeCapacity {
		panicCapacityExceeded("shared context id out of range")
	}
	slot := &r.slots[id]
	if slot.ready.Load() {
		return slot.instance, nil
	}
	slot.mu.Lock()
	defer slot.mu.Unlock()
	if slot.ready.Load() {
		return slot.instance, nil
	}
	instance, err := factory(host)
	if err != nil {
		return nil, err
	}
	slot.instance = instance
	slot.ready.Store(true)
	sharedContextsCreated.Inc()
	return instance, nil
}
