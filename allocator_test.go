package hostctx

import "testing"

func TestByteSliceAllocatorPadsAlignment(t *testing.T) {
	a := NewByteSliceAllocator()

	buf := a.Allocate(10, 16)
	if len(buf) != 10 {
		t.Fatalf("len(buf) = %d, want 10", len(buf))
	}
	if cap(buf) != 16 {
		t.Fatalf("cap(buf) = %d, want 16 (padded to alignment)", cap(buf))
	}
	if got := a.LiveBytes(); got != 16 {
		t.Fatalf("LiveBytes() = %d, want 16", got)
	}

	a.Deallocate(buf)
	if got := a.LiveBytes(); got != 0 {
		t.Fatalf("LiveBytes() after Deallocate = %d, want 0", got)
	}
}

func TestByteSliceAllocatorRejectsBadArguments(t *testing.T) {
	a := NewByteSliceAllocator()

	mustPanic := func(name string, f func()) {
		defer func() {
			if recover() == nil {
				t.Fatalf("%s: expected a panic", name)
			}
		}()
		f()
	}

	mustPanic("non-positive size", func() { a.Allocate(0, 8) })
	mustPanic("non-power-of-two alignment", func() { a.Allocate(8, 3) })
}
