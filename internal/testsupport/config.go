package testsupport

import (
	"path/filepath"
	"testing"

	"gametrack/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The bridge is left unconfigured and the API binds to an ephemeral port.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Paths.APIToken = ""
	cfgVal.Bridge.URL = ""
	cfgVal.Datasets = config.Datasets{}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBridgeURL points live providers at url.
func WithBridgeURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Bridge.URL = url
	}
}

// WithAPIToken requires bearer auth on the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithDatasets writes the given CSV bodies under the base dir and points the
// offline indexes at them. An empty body leaves that index disabled.
func WithDatasets(playtimeCSV, criticCSV string) ConfigOption {
	return func(b *configBuilder) {
		if playtimeCSV != "" {
			path := filepath.Join(b.baseDir, "datasets", "playtime.csv")
			WriteFile(b.t, path, playtimeCSV)
			b.cfg.Datasets.PlaytimeCSV = path
		}
		if criticCSV != "" {
			path := filepath.Join(b.baseDir, "datasets", "critic.csv")
			WriteFile(b.t, path, criticCSV)
			b.cfg.Datasets.CriticCSV = path
		}
	}
}

// WithFastTimings removes the UX dwell and retry backoff so tests run quickly.
func WithFastTimings() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Enrichment.InitDwellMS = 0
		b.cfg.Enrichment.BackoffBaseMS = 0
		b.cfg.Enrichment.BackoffJitterMS = 0
		b.cfg.RateLimits = config.RateLimits{}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
