package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateSource() error {
	parsed, err := url.Parse(c.Source.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("source.base_url must be an absolute URL, got %q", c.Source.BaseURL)
	}
	if c.Source.MinDelayMillis < 0 || c.Source.MaxDelayMillis < 0 {
		return errors.New("source.min_delay_ms and source.max_delay_ms must be non-negative")
	}
	if c.Source.MaxDelayMillis < c.Source.MinDelayMillis {
		return errors.New("source.max_delay_ms must be at least source.min_delay_ms")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.StartID < 1 {
		return errors.New("fetch.start_id must be at least 1")
	}
	if c.Fetch.MaxID < c.Fetch.StartID {
		return fmt.Errorf("fetch.max_id (%d) must be at least fetch.start_id (%d)", c.Fetch.MaxID, c.Fetch.StartID)
	}
	if c.Fetch.Workers < 1 {
		return errors.New("fetch.workers must be at least 1")
	}
	if c.Fetch.FlushEvery < 0 || c.Fetch.LogEvery < 0 {
		return errors.New("fetch.flush_every and fetch.log_every must be non-negative")
	}
	return nil
}

func (c *Config) validateMatching() error {
	if _, ok := DefaultsFor(c.Matching.Variant); !ok {
		return fmt.Errorf("matching.variant must be %q or %q, got %q", VariantStrict, VariantExtended, c.Matching.Variant)
	}
	if c.Matching.FuzzyFloor < 1 || c.Matching.FuzzyFloor > 100 {
		return errors.New("matching.fuzzy_floor must be between 1 and 100")
	}
	if c.Matching.MatchedThreshold < c.Matching.FuzzyFloor || c.Matching.MatchedThreshold > 100 {
		return errors.New("matching.matched_threshold must be between matching.fuzzy_floor and 100")
	}
	if c.Matching.CheckpointEvery < 1 {
		return errors.New("matching.checkpoint_every must be at least 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
