package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Enrichment contains runner tuning.
type Enrichment struct {
	Concurrency     int    `toml:"concurrency"`
	MaxAttempts     int    `toml:"max_attempts"`
	BackoffBaseMS   int    `toml:"backoff_base_ms"`
	BackoffJitterMS int    `toml:"backoff_jitter_ms"`
	InitDwellMS     int    `toml:"init_dwell_ms"`
	DoneHoldSeconds int    `toml:"done_hold_seconds"`
	RecentLimit     int    `toml:"recent_limit"`
	DefaultRegion   string `toml:"default_region"`
}

// RateLimits holds the minimum spacing between calls per provider class.
type RateLimits struct {
	PriceMS    int `toml:"price_ms"`
	PlaytimeMS int `toml:"playtime_ms"`
	CriticMS   int `toml:"critic_ms"`
	CatalogMS  int `toml:"catalog_ms"`
}

// Datasets points at the offline CSV indexes. Empty paths disable them.
type Datasets struct {
	PlaytimeCSV string `toml:"playtime_csv"`
	CriticCSV   string `toml:"critic_csv"`
}

// Bridge configures the desktop bridge that fronts every live provider.
type Bridge struct {
	URL            string `toml:"url"`
	Token          string `toml:"token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Cache configures the provider response cache.
type Cache struct {
	Enabled  bool `toml:"enabled"`
	TTLHours int  `toml:"ttl_hours"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for gametrack.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Enrichment: concurrency, retry budget, and UX timings of the runner
//   - RateLimits: per provider class call spacing
//   - Datasets: offline playtime and critic-score indexes
//   - Bridge: live provider endpoint (empty URL means unavailable)
//   - Cache: provider response cache
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Enrichment Enrichment `toml:"enrichment"`
	RateLimits RateLimits `toml:"rate_limits"`
	Datasets   Datasets   `toml:"datasets"`
	Bridge     Bridge     `toml:"bridge"`
	Cache      Cache      `toml:"cache"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads the configuration at path, or from the default search locations
// when path is empty. It returns the config, the file it considered and
// whether that file existed. A missing file is not an error: defaults apply.
// Unknown keys are rejected so typos do not silently fall back to defaults.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}
	cfg := Default()
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, resolved, true, err
		}
		loadDotEnv(filepath.Join(filepath.Dir(resolved), ".env"))
	}
	loadDotEnv(".env")
	cfg.applyEnvOverrides()
	if err := cfg.normalize(); err != nil {
		return nil, resolved, exists, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, resolved, exists, err
	}
	return &cfg, resolved, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("parse %s: unknown keys:\n%s", path, strict.String())
		}
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// locate resolves an explicit path as given. Without one it tries the user
// config location, then gametrack.toml in the working directory, and reports
// the user location as missing when neither exists.
func locate(path string) (string, bool, error) {
	var candidates []string
	if path != "" {
		candidates = []string{path}
	} else {
		candidates = []string{defaultConfigPath, "gametrack.toml"}
	}
	var first string
	for _, candidate := range candidates {
		expanded, err := expandPath(candidate)
		if err != nil {
			return "", false, err
		}
		if first == "" {
			first = expanded
		}
		info, err := os.Stat(expanded)
		switch {
		case err == nil && !info.IsDir():
			return expanded, true, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}
	return first, false, nil
}

// loadDotEnv exports KEY=value pairs from path without overriding variables
// that are already set. A missing file is ignored.
func loadDotEnv(path string) {
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		_ = godotenv.Load(path)
	}
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range [...]string{c.Paths.DataDir, c.Paths.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath is the sqlite file holding sessions, results, and the cache.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "gametrack.db")
}

// LockPath is the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "gametrackd.lock")
}

// LogPath is the daemon log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "gametrack.log")
}

// BridgeAvailable reports whether live providers can be reached at all.
func (c *Config) BridgeAvailable() bool {
	return strings.TrimSpace(c.Bridge.URL) != ""
}

// BridgeTimeout is the per-request timeout for bridge calls.
func (c *Config) BridgeTimeout() time.Duration {
	return time.Duration(c.Bridge.TimeoutSeconds) * time.Second
}

// CacheTTL is how long a cached provider answer stays fresh.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// BackoffBase is the fixed part of the pause between retry attempts.
func (c *Config) BackoffBase() time.Duration {
	return time.Duration(c.Enrichment.BackoffBaseMS) * time.Millisecond
}

// BackoffJitter is the random part of the pause between retry attempts.
func (c *Config) BackoffJitter() time.Duration {
	return time.Duration(c.Enrichment.BackoffJitterMS) * time.Millisecond
}

// InitDwell is the minimum time the runner stays in the init phase.
func (c *Config) InitDwell() time.Duration {
	return time.Duration(c.Enrichment.InitDwellMS) * time.Millisecond
}

// DoneHold is how long a finished session stays visible before clearing.
func (c *Config) DoneHold() time.Duration {
	return time.Duration(c.Enrichment.DoneHoldSeconds) * time.Second
}

// expandPath resolves a leading ~ to the home directory and makes the result
// absolute. The empty path stays empty.
func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if rest, ok := strings.CutPrefix(value, "~"); ok && (rest == "" || os.IsPathSeparator(rest[0])) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, rest)
	}
	absolute, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", value, err)
	}
	return absolute, nil
}

// ExpandPath applies the same ~ and absolute-path rules used for config
// values.
func ExpandPath(value string) (string, error) {
	return expandPath(value)
}

// CreateSample writes the commented sample configuration to path, creating
// parent directories.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
