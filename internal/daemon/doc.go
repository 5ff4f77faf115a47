// Package daemon hosts the long-running gametrack service.
//
// The Daemon owns the single-instance lock, restores any persisted enrichment
// session on start, and exposes the runner over a local HTTP API. Run wires the
// whole process: SQLite store, provider set (offline datasets, desktop bridge,
// response cache), rate limiter, metrics collector, runner, and API server.
//
// HTTP surface:
//
//	GET  /healthz                 liveness, never authenticated
//	GET  /api/status              daemon and session summary
//	GET  /api/session             current snapshot
//	POST /api/session             start a session from submitted rows
//	POST /api/session/{action}    pause, resume, cancel
//	GET  /api/session/events      snapshot stream (server-sent events)
//	GET  /api/results             resolved library metadata
//	GET  /api/logs                structured log tail
//	GET  /metrics                 Prometheus exposition
//
// When paths.api_token is set every route except /healthz requires
// "Authorization: Bearer <token>".
package daemon
