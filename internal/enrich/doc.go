// Package enrich defines the data model shared by the enrichment runner, its
// persistence layer, and its observers.
//
// A Session is one runnable batch of Rows plus its control state. Rows move
// through two pipeline stages (vendor, then fallback) and end in a terminal
// status. Snapshots are immutable copies of session state handed to observers
// after every mutation; the runner never shares its live rows with callers.
//
// Keep this package free of behaviour beyond small invariant helpers so both
// the runner and the store can depend on it without cycles.
package enrich
