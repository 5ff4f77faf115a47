package config

const (
	defaultConfigPath      = "~/.config/gametrack/config.toml"
	defaultDataDir         = "~/.local/share/gametrack"
	defaultLogDir          = "~/.local/share/gametrack/logs"
	defaultAPIBind         = "127.0.0.1:7489"
	defaultConcurrency     = 3
	defaultMaxAttempts     = 3
	defaultBackoffBaseMS   = 700
	defaultBackoffJitterMS = 300
	defaultInitDwellMS     = 600
	defaultDoneHoldSeconds = 5
	defaultRecentLimit     = 10
	defaultRegion          = "us"
	defaultPriceMS         = 1000
	defaultPlaytimeMS      = 800
	defaultCriticMS        = 800
	defaultCatalogMS       = 1000
	defaultBridgeTimeout   = 20
	defaultCacheTTLHours   = 168
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Enrichment: Enrichment{
			Concurrency:     defaultConcurrency,
			MaxAttempts:     defaultMaxAttempts,
			BackoffBaseMS:   defaultBackoffBaseMS,
			BackoffJitterMS: defaultBackoffJitterMS,
			InitDwellMS:     defaultInitDwellMS,
			DoneHoldSeconds: defaultDoneHoldSeconds,
			RecentLimit:     defaultRecentLimit,
			DefaultRegion:   defaultRegion,
		},
		RateLimits: RateLimits{
			PriceMS:    defaultPriceMS,
			PlaytimeMS: defaultPlaytimeMS,
			CriticMS:   defaultCriticMS,
			CatalogMS:  defaultCatalogMS,
		},
		Bridge: Bridge{
			TimeoutSeconds: defaultBridgeTimeout,
		},
		Cache: Cache{
			Enabled:  true,
			TTLHours: defaultCacheTTLHours,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
