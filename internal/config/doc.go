// Package config loads, normalizes, and validates gametrack configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// GAMETRACK_BRIDGE_URL, optionally sourced from a .env file. The Config type
// centralizes every knob the daemon and CLI need, so runner tuning, provider
// rate limits, and bridge credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
