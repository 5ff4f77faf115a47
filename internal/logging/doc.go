// Package logging assembles structured slog loggers and formatting helpers used
// across gametrack services.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so runner code can tag log lines
// with session IDs, row IDs, and pipeline stages. A bounded StreamHub keeps the
// most recent events in memory for the daemon's log endpoint. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup to ensure new
// components emit data with the same shape and routing guarantees as the rest
// of the system.
package logging
