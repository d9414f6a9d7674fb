package hostctx

import (
	"strings"
	"testing"
)

func TestNewDiagnosticCarriesUniqueID(t *testing.T) {
	a := NewDiagnostic("boom")
	b := NewDiagnostic("boom")
	if a.ID == b.ID {
		t.Fatal("two diagnostics minted separately should not share an ID")
	}
	if a.Error() != "boom" {
		t.Fatalf("Error() = %q, want %q", a.Error(), "boom")
	}
}

func TestPanicGuardRecoversAndDescribesPanic(t *testing.T) {
	err := panicGuard(func() { panic("kaboom") })
	if err == nil {
		t.Fatal("expected panicGuard to recover and return an error")
	}
	if !strings.Contains(err.Error(), "kaboom") {
		t.Fatalf("error %q does not mention the panic value", err.Error())
	}

	if err := panicGuard(func() {}); err != nil {
		t.Fatalf("panicGuard should return nil when f does not panic, got %v", err)
	}
}

func TestRunIsolatedCombinesMultiplePanics(t *testing.T) {
	calls := 0
	fns := []func(){
		func() { calls++; panic("first") },
		func() { calls++ },
		func() { calls++; panic("second") },
	}
	err := runIsolated(fns)
	if calls != 3 {
		t.Fatalf("all functions should run regardless of earlier panics, ran %d", calls)
	}
	if err == nil {
		t.Fatal("expected a combined error from the two panicking functions")
	}
	msg := err.Error()
	if !strings.Contains(msg, "first") || !strings.Contains(msg, "second") {
		t.Fatalf("combined error %q should mention both panics", msg)
	}
}

func TestNewZapSinkNilLoggerDoesNotPanic(t *testing.T) {
	sink := NewZapSink(nil)
	sink(NewDiagnostic("should not panic"))
}
