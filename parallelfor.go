package hostctx

import "sync/atomic"

// parallelForExecutionContext is the heap-resident record a ParallelFor
// call allocates once it decides the range is worth splitting across the
// work queue. It is freed (by going out of scope; Go's GC does the rest)
// the moment the final block's decrement observes pending reach zero.
type parallelForExecutionContext struct {
	host    *HostContext
	n       int
	block   int
	pending atomic.Int64
	compute func(lo, hi int)
	onDone  func()
}

// parallelFor partitions [0, n) into blocks of size
// B = max(minBlock, n/(K*P)) and recursively bisects the resulting block
// range across host's work queue, running exactly one block on the caller
// before it returns control — or, for small n, running the whole range
// inline and calling onDone synchronously.
func parallelFor(host *HostContext, n int, minBlock int, compute func(lo, hi int), onDone func()) {
	if n <= 0 {
		onDone()
		return
	}
	if minBlock < 1 {
		minBlock = host.cfg.MinParallelForBlock
	}
	if minBlock < 1 {
		minBlock = 1
	}

	p := int(host.ParallelismLevel())
	if p < 1 {
		p = 1
	}
	k := host.cfg.OvershardingFactor
	if k < 1 {
		k = 4
	}

	block := n / (k * p)
	if block < minBlock {
		block = minBlock
	}

	if n <= block {
		compute(0, n)
		onDone()
		return
	}

	pendingBlocks := (n + block - 1) / block
	ctx := &parallelForExecutionContext{
		host:    host,
		n:       n,
		block:   block,
		compute: compute,
		onDone:  onDone,
	}
	ctx.pending.Store(int64(pendingBlocks))
	ctx.eval(0, pendingBlocks)
}

// eval implements the recursive bisection: while the block range [lo, hi)
// spans more than one block, it peels off the upper half as an enqueued
// task and keeps bisecting the lower half on the current goroutine, then
// runs exactly one block itself. The decrementer that observes pending
// drop to zero runs onDone.
func (c *parallelForExecutionContext) eval(lo, hi int) {
	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		upperLo, upperHi := mid, hi
		c.host.Enqueue(func() { c.eval(upperLo, upperHi) })
		hi = mid
	}

	start := lo * c.block
	end := start + c.block
	if end > c.n {
		end = c.n
	}
	c.compute(start, end)

	if c.pending.Add(-1) == 0 {
		c.onDone()
	}
}
