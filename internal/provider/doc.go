// Package provider defines the contracts the enrichment runner consumes from
// external data sources and the error taxonomy shared across them.
//
// Key responsibilities:
//   - Capability interfaces for price, playtime, and critic-score lookups, both
//     offline (index lookups that never fail) and live (remote calls that may
//     fail transiently or be unavailable).
//   - Provider classes that share a rate-limit budget and label row messages.
//   - Error markers plus Wrap/IsTransient so the retry boundary can decide
//     whether another attempt is worthwhile.
//
// Concrete network adapters live elsewhere (see the bridge package); anything
// satisfying these interfaces can be plugged into a Set.
package provider
