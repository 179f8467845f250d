//go:build !debug

package obslog

// traceEnabled controls step-internal tracing — const false lets the
// compiler eliminate every `if traceEnabled` block at compile time.
const traceEnabled = false

// Tracef is a no-op unless the module is built with -tags debug.
func Tracef(format string, args ...interface{}) {}
