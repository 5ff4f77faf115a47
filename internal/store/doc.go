// Package store persists gametrack state in a single SQLite database.
//
// It holds three independent concerns:
//   - the one resumable enrichment session (sessions, session_rows,
//     session_recent), saved whole and reloaded after a restart;
//   - resolved metadata written per field as providers answer, which is
//     the library view surfaced by the results endpoint;
//   - a provider response cache keyed by provider and lookup key.
//
// The schema is embedded and versioned. A version mismatch is reported with
// ErrSchemaMismatch; there are no migrations, users delete the file to reset.
// Writes retry on SQLITE_BUSY with a short exponential backoff.
package store
