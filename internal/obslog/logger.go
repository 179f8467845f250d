// Package obslog provides the engine's two logging surfaces: a build-tag
// gated Tracef for step-internal debugging (compiled out entirely unless
// built with -tags debug), and a structured slog.Logger for caller-facing
// configuration and lifecycle diagnostics — never for the deterministic
// Step arithmetic itself, which must remain pure.
package obslog

import (
	"log/slog"
	"os"
)

// Default returns a text-handler slog.Logger writing to stderr, the same
// default callers of the pack's slog-based services fall back to when no
// logger is injected.
func Default() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// WithRun returns a logger annotated with a run identifier, so every
// config-load, scenario-apply, or recoverable-error log line from a single
// run can be correlated without threading a run ID through every call.
func WithRun(logger *slog.Logger, runID string) *slog.Logger {
	if logger == nil {
		logger = Default()
	}
	return logger.With(slog.String("run_id", runID))
}
