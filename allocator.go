package hostctx

import "sync/atomic"

// Allocator is the sized, aligned allocate/deallocate interface a
// HostContext forwards to. Implementations must be thread-safe; failure to
// allocate is fatal, per spec — there is no recoverable out-of-memory path
// in this package.
type Allocator interface {
	Allocate(size, align int) []byte
	Deallocate(buf []byte)
}

// ByteSliceAllocator is the default Allocator. Go's garbage collector owns
// the memory make([]byte, n) returns, so Deallocate is a bookkeeping hook
// rather than a free() call; it still matters for the live-byte gauge this
// package exposes via Prometheus.
type ByteSliceAllocator struct {
	liveBytes atomic.Int64
}

// NewByteSliceAllocator returns a ready-to-use ByteSliceAllocator.
func NewByteSliceAllocator() *ByteSliceAllocator {
	return &ByteSliceAllocator{}
}

// Allocate returns a zeroed slice of length size whose capacity is padded
// to a multiple of align. align must be a power of two; size must be positive.
// Both violations, and any allocation failure, are fatal.
func (a *ByteSliceAllocator) Allocate(size, align int) []byte {
	if size <= 0 {
		panicCapacityExceeded("allocate called with non-positive size")
	}
	if align <= 0 || align&(align-1) != 0 {
		panicCapacityExceeded("allocate called with non-power-of-two alignment")
	}
	padded := size
	if rem := padded % align; rem != 0 {
		padded += align - rem
	}
	buf := make([]byte, padded)
	a.liveBytes.Add(int64(padded))
	liveBytesGauge.Add(float64(padded))
	return buf[:size]
}

// Deallocate records that buf's backing storage is no longer referenced by
// the caller. Its capacity (not its length) is the amount originally
// charged by Allocate.
func (a *ByteSliceAllocator) Deallocate(buf []byte) {
	n := cap(buf)
	a.liveBytes.Add(-int64(n))
	liveBytesGauge.Add(-float64(n))
}

// LiveBytes reports the number of bytes currently tracked as allocated.
func (a *ByteSliceAllocator) LiveBytes() int64 {
	return a.liveBytes.Load()
}
