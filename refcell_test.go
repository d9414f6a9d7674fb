package hostctx

import "testing"

func TestRefCellRetainRelease(t *testing.T) {
	var c refCell
	c.init()
	if c.count() != 1 {
		t.Fatalf("count() = %d, want 1 after init", c.count())
	}

	c.retain()
	if c.count() != 2 {
		t.Fatalf("count() = %d, want 2 after retain", c.count())
	}

	destroyed := false
	c.release(func() { destroyed = true })
	if destroyed {
		t.Fatal("destroy should not run while references remain")
	}

	c.release(func() { destroyed = true })
	if !destroyed {
		t.Fatal("destroy should run once the last reference is released")
	}
}
