package hostctx

import "sync/atomic"

// refCell is an intrusive atomic reference count, embedded by any type that
// wants shared ownership without a separate control block. A new refCell
// starts at one live reference, matching the "creation yields refcount 1"
// rule for async values.
type refCell struct {
	n atomic.Int64
}

func (c *refCell) init() {
	c.n.Store(1)
}

// retain adds one reference.
func (c *refCell) retain() {
	c.n.Add(1)
}

// release drops one reference and runs destroy when the count reaches zero.
// Go's atomic operations already establish the acquire/release ordering an
// intrusive refcount needs: the goroutine that observes the count reach
// zero has a happens-before edge on every prior release, so destroy can
// safely read state written by any previous owner.
func (c *refCell) release(destroy func()) {
	if c.n.Add(-1) == 0 {
		destroy()
	}
}

func (c *refCell) count() int64 {
	return c.n.Load()
}
