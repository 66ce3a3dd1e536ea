package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file locations for inputs, outputs and persisted state.
type Paths struct {
	Input      string `toml:"input"`
	Output     string `toml:"output"`
	Cache      string `toml:"cache"`
	Checkpoint string `toml:"checkpoint"`
	Overrides  string `toml:"overrides"` // empty uses the built-in table
	HistoryDB  string `toml:"history_db"`
	LogFile    string `toml:"log_file"`
	LockFile   string `toml:"lock_file"`
}

// Source contains settings for the external company directory.
type Source struct {
	BaseURL        string `toml:"base_url"`
	UserAgent      string `toml:"user_agent"`
	RequestTimeout int    `toml:"request_timeout"` // seconds
	LogoTimeout    int    `toml:"logo_timeout"`    // seconds
	MinDelayMillis int    `toml:"min_delay_ms"`
	MaxDelayMillis int    `toml:"max_delay_ms"`
	VerifyLogos    bool   `toml:"verify_logos"`
}

// Fetch contains settings for the concurrent record fetch.
type Fetch struct {
	StartID    int `toml:"start_id"`
	MaxID      int `toml:"max_id"`  // 0 uses the variant default
	Workers    int `toml:"workers"` // 0 uses the variant default
	FlushEvery int `toml:"flush_every"`
	LogEvery   int `toml:"log_every"`
}

// Matching contains resolution thresholds.
type Matching struct {
	Variant          string `toml:"variant"`
	FuzzyFloor       int    `toml:"fuzzy_floor"`       // 0 uses the variant default
	MatchedThreshold int    `toml:"matched_threshold"` // 0 uses the variant default
	CheckpointEvery  int    `toml:"checkpoint_every"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for goldmap.
//
// Configuration sections:
//   - Paths: input list, output table, cache, checkpoint, overrides, history and log files
//   - Source: external directory URL, politeness delays, logo verification
//   - Fetch: ID range, worker count, cache flush and throughput log intervals
//   - Matching: variant, fuzzy floor, matched threshold, checkpoint interval
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Source   Source   `toml:"source"`
	Fetch    Fetch    `toml:"fetch"`
	Matching Matching `toml:"matching"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path of the per-user config file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads configuration from path, or from the first existing default
// location when path is empty, then applies .env and GOLDMAP_* overrides,
// variant defaults and validation. It returns the resolved file path and
// whether that file existed; a missing file yields the defaults.
func Load(path string) (*Config, string, bool, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}

	for _, step := range []func() error{cfg.applyEnv, cfg.normalize, cfg.Validate} {
		if err := step(); err != nil {
			return nil, "", false, err
		}
	}
	return &cfg, resolved, exists, nil
}

// Finalize normalizes and validates a config built in code, such as after
// command-line overrides were applied.
func (c *Config) Finalize() error {
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func loadDotEnv(path string) error {
	// godotenv.Load keeps variables that are already set.
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// resolveConfigPath picks the explicit path when given; otherwise the first
// existing regular file among the user config and ./goldmap.toml, falling
// back to the user config path.
func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		exists, err := isFile(expanded)
		return expanded, exists, err
	}

	candidates := make([]string, 0, 2)
	for _, candidate := range []string{defaultConfigPath, projectConfigFile} {
		expanded, err := expandPath(candidate)
		if err != nil {
			return "", false, err
		}
		candidates = append(candidates, expanded)
	}
	for _, candidate := range candidates {
		if ok, _ := isFile(candidate); ok {
			return candidate, true, nil
		}
	}
	return candidates[0], false, nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		return !info.IsDir(), nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat config: %w", err)
	}
}

// expandPath resolves a leading "~" or "~/" against the home directory and
// makes the result absolute. Empty input stays empty.
func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, strings.TrimPrefix(value, "~"))
	}
	absolute, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return absolute, nil
}

// ExpandPath applies the config path rules to a value from another source,
// such as a command-line flag.
func ExpandPath(value string) (string, error) {
	return expandPath(value)
}

// Sample returns the annotated sample configuration.
func Sample() string {
	return sampleConfig
}

// CreateSample writes the sample configuration to path, creating parent
// directories and replacing any existing file.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
