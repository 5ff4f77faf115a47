package config

import (
	"fmt"
	"os"
	"strings"
)

// Environment variables that override file values when set.
const (
	EnvBridgeURL   = "GAMETRACK_BRIDGE_URL"
	EnvBridgeToken = "GAMETRACK_BRIDGE_TOKEN"
	EnvAPIToken    = "GAMETRACK_API_TOKEN"
	EnvRegion      = "GAMETRACK_REGION"
)

func (c *Config) applyEnvOverrides() {
	if value, ok := os.LookupEnv(EnvBridgeURL); ok {
		c.Bridge.URL = value
	}
	if value, ok := os.LookupEnv(EnvBridgeToken); ok {
		c.Bridge.Token = value
	}
	if value, ok := os.LookupEnv(EnvAPIToken); ok {
		c.Paths.APIToken = value
	}
	if value, ok := os.LookupEnv(EnvRegion); ok && strings.TrimSpace(value) != "" {
		c.Enrichment.DefaultRegion = value
	}
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeDatasets(); err != nil {
		return err
	}
	c.normalizeEnrichment()
	c.normalizeBridge()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeDatasets() error {
	var err error
	if c.Datasets.PlaytimeCSV, err = expandPath(strings.TrimSpace(c.Datasets.PlaytimeCSV)); err != nil {
		return fmt.Errorf("datasets.playtime_csv: %w", err)
	}
	if c.Datasets.CriticCSV, err = expandPath(strings.TrimSpace(c.Datasets.CriticCSV)); err != nil {
		return fmt.Errorf("datasets.critic_csv: %w", err)
	}
	return nil
}

func (c *Config) normalizeEnrichment() {
	c.Enrichment.DefaultRegion = strings.ToLower(strings.TrimSpace(c.Enrichment.DefaultRegion))
	if c.Enrichment.DefaultRegion == "" {
		c.Enrichment.DefaultRegion = defaultRegion
	}
	if c.Enrichment.RecentLimit <= 0 {
		c.Enrichment.RecentLimit = defaultRecentLimit
	}
}

func (c *Config) normalizeBridge() {
	c.Bridge.URL = strings.TrimRight(strings.TrimSpace(c.Bridge.URL), "/")
	c.Bridge.Token = strings.TrimSpace(c.Bridge.Token)
	if c.Bridge.TimeoutSeconds <= 0 {
		c.Bridge.TimeoutSeconds = defaultBridgeTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
