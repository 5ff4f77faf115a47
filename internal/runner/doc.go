// Package runner drives enrichment sessions: it owns the row queue, schedules
// rows through the vendor and fallback stages under a concurrency cap, and
// exposes the pause/resume/cancel control surface.
//
// Every mutation of session state happens under a single mutex. Provider calls
// run outside the lock on a per-epoch context that Pause and Cancel cancel;
// a worker only commits a result while it still holds the lease it was given
// when it claimed the row, so late results from abandoned calls are dropped.
//
// Observers receive immutable snapshots through Subscribe. Persistence is
// asynchronous and latest-wins: the in-memory session stays authoritative and
// store failures are logged rather than surfaced.
package runner
