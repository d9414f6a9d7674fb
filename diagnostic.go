package hostctx

import (
	"fmt"
	"runtime/debug"

	"github.com/oklog/ulid/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Diagnostic carries at minimum a message; Location is opaque to this
// package, exactly as spec'd — callers that decode locations do so with
// machinery this package doesn't own. ID is a sortable correlation id
// minted when the diagnostic is created, so a sink backed by structured
// logging (or a later trace lookup) can tie related diagnostics together.
type Diagnostic struct {
	ID       ulid.ULID
	Message  string
	Location any
}

// NewDiagnostic builds a Diagnostic with a freshly minted ID.
func NewDiagnostic(message string) Diagnostic {
	return Diagnostic{ID: ulid.Make(), Message: message}
}

// NewDiagnosticAt builds a Diagnostic carrying an opaque location value.
func NewDiagnosticAt(message string, location any) Diagnostic {
	return Diagnostic{ID: ulid.Make(), Message: message, Location: location}
}

func (d Diagnostic) Error() string {
	return d.Message
}

// DiagnosticSink is a callable installed at HostContext construction and
// invoked by EmitError. It is also where panics recovered from waiter
// continuations and run-when-ready callbacks are ultimately reported.
type DiagnosticSink func(Diagnostic)

// NewZapSink adapts a *zap.Logger into a DiagnosticSink, logging at error
// level with structured fields so diagnostics can be correlated by ID.
func NewZapSink(logger *zap.Logger) DiagnosticSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(d Diagnostic) {
		logger.Error("hostctx diagnostic",
			zap.String("diagnostic_id", d.ID.String()),
			zap.String("message", d.Message),
			zap.Any("location", d.Location),
		)
	}
}

// panicGuard runs f, recovering any panic into a returned error rather than
// propagating it. The caller decides whether the recovered value is fatal
// or merely isolated and reported.
func panicGuard(f func()) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("panic: %v\n%s", v, debug.Stack())
		}
	}()
	f()
	return nil
}

// runIsolated runs each function in fns, catching panics individually so
// that one misbehaving continuation never prevents its siblings from
// running. Every recovered panic is combined into a single error via
// multierr and returned; callers typically hand that error to a
// DiagnosticSink instead of letting it escape.
func runIsolated(fns []func()) error {
	var combined error
	for _, fn := range fns {
		if err := panicGuard(fn); err != nil {
			combined = multierr.Append(combined, err)
		}
	}
	return combined
}
