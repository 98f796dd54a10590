// Package services defines shared utilities consumed by the pipeline stage
// handlers and external-tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp stage names and run identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into fatal (abort the run) and recoverable (skip the file, keep going)
//     outcomes.
//
// Use these helpers when wiring new stage logic so operational behaviour
// stays uniform across the pipeline.
package services
