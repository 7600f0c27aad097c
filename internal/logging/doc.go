// Package logging assembles the structured slog loggers used across
// the acquisition pipeline.
//
// It owns the console and JSON handlers, centralizes level plumbing,
// and exposes context-aware helpers so strategy code automatically
// tags log lines with request IDs, stages, and video identifiers. A
// no-op logger is provided for tests and wiring code that cannot fail.
package logging
