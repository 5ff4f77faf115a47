// Package bridge reaches the live metadata providers through the desktop
// bridge, a local HTTP service that fronts the store, playtime, critic and
// catalog APIs.
//
// Client implements every remote provider contract plus provider.Environment:
// a client without a base URL reports the capability as unavailable and the
// runner fails sessions fast instead of queueing work it cannot do.
// CachedProviders decorates the title lookups with the sqlite response cache.
//
// Status mapping: 404/204 are "no data", 401/403/501 are unavailable, any other
// 4xx/5xx and transport errors are transient.
package bridge
