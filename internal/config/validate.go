package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEnrichment(); err != nil {
		return err
	}
	if err := c.validateRateLimits(); err != nil {
		return err
	}
	if err := c.validateBridge(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateEnrichment() error {
	e := c.Enrichment
	if e.Concurrency < 1 {
		return errors.New("enrichment.concurrency must be at least 1")
	}
	if e.MaxAttempts < 1 {
		return errors.New("enrichment.max_attempts must be at least 1")
	}
	if e.BackoffBaseMS < 0 || e.BackoffJitterMS < 0 {
		return errors.New("enrichment backoff values must be non-negative")
	}
	if e.InitDwellMS < 0 {
		return errors.New("enrichment.init_dwell_ms must be non-negative")
	}
	if e.DoneHoldSeconds < 0 {
		return errors.New("enrichment.done_hold_seconds must be non-negative")
	}
	return nil
}

func (c *Config) validateRateLimits() error {
	r := c.RateLimits
	for name, value := range map[string]int{
		"rate_limits.price_ms":    r.PriceMS,
		"rate_limits.playtime_ms": r.PlaytimeMS,
		"rate_limits.critic_ms":   r.CriticMS,
		"rate_limits.catalog_ms":  r.CatalogMS,
	} {
		if value < 0 {
			return fmt.Errorf("%s must be non-negative", name)
		}
	}
	return nil
}

func (c *Config) validateBridge() error {
	if c.Bridge.URL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Bridge.URL)
	if err != nil {
		return fmt.Errorf("bridge.url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("bridge.url must use http or https, got %q", c.Bridge.URL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("bridge.url is missing a host: %q", c.Bridge.URL)
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Enabled && c.Cache.TTLHours <= 0 {
		return errors.New("cache.ttl_hours must be positive when the cache is enabled")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
