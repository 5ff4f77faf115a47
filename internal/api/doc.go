// Package api defines the wire-format types of the gametrack HTTP control API
// and the client the CLI uses to talk to the daemon.
//
// # Key Types
//
// StartRequest: rows to enrich plus an optional store region.
//
// enrich.Snapshot is served as-is by the session endpoints; its JSON tags are
// already camelCase and it carries no internal pointers.
//
// ResultRow/ResultsResponse: resolved metadata rows from the library sink.
//
// DaemonStatus: process, database, and capability information.
//
// LogEvent/LogStreamResponse: structured log payloads for live tailing.
//
// # Client
//
// Client wraps every endpoint with context-aware calls. Events consumes the
// server-sent snapshot stream and hands each snapshot to a callback.
//
// Timestamps in DTOs use RFC3339 with milliseconds.
package api
