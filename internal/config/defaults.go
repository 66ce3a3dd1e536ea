package config

import (
	"strings"
	"time"
)

const (
	defaultConfigPath     = "~/.config/goldmap/config.toml"
	projectConfigFile     = "goldmap.toml"
	defaultInputPath      = "companiesIDsTickers.json"
	defaultOutputPath     = "company_mappings.csv"
	defaultCachePath      = "goldstock_cache.json"
	defaultCheckpointPath = "mapping_checkpoint.json"
	defaultHistoryDBPath  = "~/.local/share/goldmap/history.db"
	defaultLogFile        = "mapping_log.txt"
	defaultLockFile       = "goldmap.lock"
	defaultBaseURL        = "https://www.goldstockdata.com"
	defaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	defaultRequestTimeout = 15
	defaultLogoTimeout    = 5
	defaultMinDelayMillis = 1000
	defaultMaxDelayMillis = 2000
	defaultStartID        = 1
	defaultFlushEvery     = 50
	defaultLogEvery       = 50
	defaultCheckpoint     = 10
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

const (
	// VariantStrict accepts fewer fuzzy matches and crawls a smaller ID range.
	VariantStrict = "strict"
	// VariantExtended is the default variant with the wider suffix list.
	VariantExtended = "extended"
)

// VariantDefaults holds the values a matching variant implies when the
// corresponding setting is left at zero.
type VariantDefaults struct {
	FuzzyFloor       int
	MatchedThreshold int
	Workers          int
	MaxID            int
}

var variantDefaults = map[string]VariantDefaults{
	VariantStrict:   {FuzzyFloor: 80, MatchedThreshold: 90, Workers: 5, MaxID: 1000},
	VariantExtended: {FuzzyFloor: 70, MatchedThreshold: 85, Workers: 10, MaxID: 1500},
}

// DefaultsFor returns the defaults for a variant name.
func DefaultsFor(variant string) (VariantDefaults, bool) {
	d, ok := variantDefaults[strings.ToLower(strings.TrimSpace(variant))]
	return d, ok
}

// Default returns a Config populated with repository defaults. Variant
// dependent values stay zero until normalization resolves them.
func Default() Config {
	return Config{
		Paths: Paths{
			Input:      defaultInputPath,
			Output:     defaultOutputPath,
			Cache:      defaultCachePath,
			Checkpoint: defaultCheckpointPath,
			HistoryDB:  defaultHistoryDBPath,
			LogFile:    defaultLogFile,
			LockFile:   defaultLockFile,
		},
		Source: Source{
			BaseURL:        defaultBaseURL,
			UserAgent:      defaultUserAgent,
			RequestTimeout: defaultRequestTimeout,
			LogoTimeout:    defaultLogoTimeout,
			MinDelayMillis: defaultMinDelayMillis,
			MaxDelayMillis: defaultMaxDelayMillis,
			VerifyLogos:    true,
		},
		Fetch: Fetch{
			StartID:    defaultStartID,
			FlushEvery: defaultFlushEvery,
			LogEvery:   defaultLogEvery,
		},
		Matching: Matching{
			Variant:         VariantExtended,
			CheckpointEvery: defaultCheckpoint,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// RequestTimeoutDuration returns the page request timeout.
func (c *Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.Source.RequestTimeout) * time.Second
}

// LogoTimeoutDuration returns the logo probe timeout.
func (c *Config) LogoTimeoutDuration() time.Duration {
	return time.Duration(c.Source.LogoTimeout) * time.Second
}

// Politeness returns the randomized delay bounds applied before each request.
func (c *Config) Politeness() (time.Duration, time.Duration) {
	return time.Duration(c.Source.MinDelayMillis) * time.Millisecond,
		time.Duration(c.Source.MaxDelayMillis) * time.Millisecond
}
