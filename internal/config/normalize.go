package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const envPrefix = "GOLDMAP_"

// applyEnv overlays GOLDMAP_* environment variables onto file values.
func (c *Config) applyEnv() error {
	if value, ok := lookupEnv("BASE_URL"); ok {
		c.Source.BaseURL = value
	}
	if value, ok := lookupEnv("USER_AGENT"); ok {
		c.Source.UserAgent = value
	}
	if value, ok := lookupEnv("LOG_LEVEL"); ok {
		c.Logging.Level = value
	}
	if value, ok := lookupEnv("VARIANT"); ok {
		c.Matching.Variant = value
	}
	if value, ok := lookupEnv("WORKERS"); ok {
		workers, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%sWORKERS: %w", envPrefix, err)
		}
		c.Fetch.Workers = workers
	}
	return nil
}

func lookupEnv(name string) (string, bool) {
	value, ok := os.LookupEnv(envPrefix + name)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSource()
	c.normalizeMatching()
	c.normalizeFetch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name     string
		value    *string
		fallback string
	}{
		{"paths.input", &c.Paths.Input, defaultInputPath},
		{"paths.output", &c.Paths.Output, defaultOutputPath},
		{"paths.cache", &c.Paths.Cache, defaultCachePath},
		{"paths.checkpoint", &c.Paths.Checkpoint, defaultCheckpointPath},
		{"paths.overrides", &c.Paths.Overrides, ""},
		{"paths.history_db", &c.Paths.HistoryDB, defaultHistoryDBPath},
		{"paths.log_file", &c.Paths.LogFile, defaultLogFile},
		{"paths.lock_file", &c.Paths.LockFile, defaultLockFile},
	}
	for _, field := range fields {
		value := strings.TrimSpace(*field.value)
		if value == "" {
			value = field.fallback
		}
		expanded, err := expandPath(value)
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeSource() {
	c.Source.BaseURL = strings.TrimRight(strings.TrimSpace(c.Source.BaseURL), "/")
	if c.Source.BaseURL == "" {
		c.Source.BaseURL = defaultBaseURL
	}
	c.Source.UserAgent = strings.TrimSpace(c.Source.UserAgent)
	if c.Source.UserAgent == "" {
		c.Source.UserAgent = defaultUserAgent
	}
	if c.Source.RequestTimeout <= 0 {
		c.Source.RequestTimeout = defaultRequestTimeout
	}
	if c.Source.LogoTimeout <= 0 {
		c.Source.LogoTimeout = defaultLogoTimeout
	}
}

func (c *Config) normalizeMatching() {
	c.Matching.Variant = strings.ToLower(strings.TrimSpace(c.Matching.Variant))
	if c.Matching.Variant == "" {
		c.Matching.Variant = VariantExtended
	}
	defaults, ok := DefaultsFor(c.Matching.Variant)
	if !ok {
		return
	}
	if c.Matching.FuzzyFloor == 0 {
		c.Matching.FuzzyFloor = defaults.FuzzyFloor
	}
	if c.Matching.MatchedThreshold == 0 {
		c.Matching.MatchedThreshold = defaults.MatchedThreshold
	}
	if c.Matching.CheckpointEvery == 0 {
		c.Matching.CheckpointEvery = defaultCheckpoint
	}
}

func (c *Config) normalizeFetch() {
	defaults, ok := DefaultsFor(c.Matching.Variant)
	if ok {
		if c.Fetch.Workers == 0 {
			c.Fetch.Workers = defaults.Workers
		}
		if c.Fetch.MaxID == 0 {
			c.Fetch.MaxID = defaults.MaxID
		}
	}
	if c.Fetch.StartID == 0 {
		c.Fetch.StartID = defaultStartID
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

// ApplyVariant switches the matching variant. Thresholds, worker count and
// ID range still holding the previous variant's defaults follow the new
// variant; explicitly configured values are kept.
func (c *Config) ApplyVariant(variant string) error {
	variant = strings.ToLower(strings.TrimSpace(variant))
	next, ok := DefaultsFor(variant)
	if !ok {
		return fmt.Errorf("unknown matching variant %q (want %s or %s)", variant, VariantStrict, VariantExtended)
	}
	prev, _ := DefaultsFor(c.Matching.Variant)
	follow := func(value *int, prevDefault, nextDefault int) {
		if *value == 0 || *value == prevDefault {
			*value = nextDefault
		}
	}
	follow(&c.Matching.FuzzyFloor, prev.FuzzyFloor, next.FuzzyFloor)
	follow(&c.Matching.MatchedThreshold, prev.MatchedThreshold, next.MatchedThreshold)
	follow(&c.Fetch.Workers, prev.Workers, next.Workers)
	follow(&c.Fetch.MaxID, prev.MaxID, next.MaxID)
	c.Matching.Variant = variant
	return nil
}
