// Package logging assembles structured slog loggers and formatting helpers
// used across the pipeline.
//
// It owns the configurable console/JSON handlers, centralizes level plumbing,
// and exposes context-aware helpers so stage code can automatically tag log
// lines with the active stage and run identifier. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
package logging
