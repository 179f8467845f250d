//go:build debug

package obslog

import "fmt"

// traceEnabled controls step-internal tracing, turned on via -tags debug.
const traceEnabled = true

// Tracef prints a step-internal trace line. It must never be called from
// Step's pure arithmetic path in a way that affects output — it exists for
// diagnosing the pipeline's stage-by-stage behaviour, not for production
// logging (that is Logger's job).
func Tracef(format string, args ...interface{}) {
	if traceEnabled {
		fmt.Printf("[trace] "+format+"\n", args...)
	}
}
