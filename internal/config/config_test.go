package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"gametrack/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{config.EnvBridgeURL, config.EnvBridgeToken, config.EnvAPIToken, config.EnvRegion} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "gametrack")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "gametrack.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Paths.APIBind != "127.0.0.1:7489" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Enrichment.Concurrency != 3 || cfg.Enrichment.MaxAttempts != 3 {
		t.Fatalf("unexpected enrichment defaults: %+v", cfg.Enrichment)
	}
	if cfg.InitDwell() != 600*time.Millisecond || cfg.BackoffBase() != 700*time.Millisecond {
		t.Fatalf("unexpected timing defaults: dwell=%v backoff=%v", cfg.InitDwell(), cfg.BackoffBase())
	}
	if cfg.BridgeAvailable() {
		t.Fatal("expected bridge unavailable without url")
	}
	if !cfg.Cache.Enabled || cfg.CacheTTL() != 168*time.Hour {
		t.Fatalf("unexpected cache defaults: %+v", cfg.Cache)
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(tempHome, "config.toml")
	content := `
[paths]
data_dir = "~/gt-data"
api_token = "  secret  "

[enrichment]
concurrency = 5
default_region = " GB "

[rate_limits]
price_ms = 250

[datasets]
playtime_csv = "~/datasets/hltb.csv"

[bridge]
url = "http://127.0.0.1:4455/"
timeout_seconds = 5

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected explicit config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "gt-data") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Paths.APIToken != "secret" {
		t.Fatalf("expected trimmed api token, got %q", cfg.Paths.APIToken)
	}
	if cfg.Enrichment.Concurrency != 5 || cfg.Enrichment.DefaultRegion != "gb" {
		t.Fatalf("unexpected enrichment: %+v", cfg.Enrichment)
	}
	if cfg.RateLimits.PriceMS != 250 || cfg.RateLimits.CriticMS != 800 {
		t.Fatalf("unexpected rate limits: %+v", cfg.RateLimits)
	}
	if cfg.Datasets.PlaytimeCSV != filepath.Join(tempHome, "datasets", "hltb.csv") {
		t.Fatalf("unexpected dataset path: %q", cfg.Datasets.PlaytimeCSV)
	}
	if cfg.Bridge.URL != "http://127.0.0.1:4455" || cfg.BridgeTimeout() != 5*time.Second {
		t.Fatalf("unexpected bridge: %+v", cfg.Bridge)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging: %+v", cfg.Logging)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv(config.EnvBridgeURL, "https://bridge.local")
	t.Setenv(config.EnvAPIToken, "env-token")
	t.Setenv(config.EnvRegion, "DE")

	configPath := filepath.Join(tempHome, "config.toml")
	if err := os.WriteFile(configPath, []byte("[bridge]\nurl = \"http://file.local\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Bridge.URL != "https://bridge.local" {
		t.Fatalf("expected env bridge url, got %q", cfg.Bridge.URL)
	}
	if cfg.Paths.APIToken != "env-token" || cfg.Enrichment.DefaultRegion != "de" {
		t.Fatalf("unexpected env overrides: token=%q region=%q", cfg.Paths.APIToken, cfg.Enrichment.DefaultRegion)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"concurrency", func(c *config.Config) { c.Enrichment.Concurrency = 0 }, "enrichment.concurrency"},
		{"attempts", func(c *config.Config) { c.Enrichment.MaxAttempts = 0 }, "enrichment.max_attempts"},
		{"rate", func(c *config.Config) { c.RateLimits.CriticMS = -1 }, "rate_limits.critic_ms"},
		{"bridge scheme", func(c *config.Config) { c.Bridge.URL = "ftp://host" }, "bridge.url"},
		{"cache ttl", func(c *config.Config) { c.Cache.TTLHours = 0 }, "cache.ttl_hours"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		cfg := config.Default()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error mentioning %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(tempHome, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	if decoded.Enrichment.Concurrency != 3 {
		t.Fatalf("unexpected sample concurrency: %d", decoded.Enrichment.Concurrency)
	}

	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("Load sample: %v", err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s", dir)
		}
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(tempHome, "config.toml")
	content := "[enrichment]\nconcurency = 4\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(configPath)
	if err == nil || !strings.Contains(err.Error(), "concurency") {
		t.Fatalf("expected unknown key error naming the key, got %v", err)
	}
}

func TestLoadReadsDotEnvBesideConfig(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(tempHome, "config.toml")
	if err := os.WriteFile(configPath, []byte("[cache]\nenabled = false\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	dotEnv := config.EnvRegion + "=de\n"
	if err := os.WriteFile(filepath.Join(tempHome, ".env"), []byte(dotEnv), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Enrichment.DefaultRegion != "de" || cfg.Cache.Enabled {
		t.Fatalf("expected .env region and file cache setting, got region=%q cache=%v",
			cfg.Enrichment.DefaultRegion, cfg.Cache.Enabled)
	}
}
