package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goldmap/internal/config"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	work := t.TempDir()
	t.Chdir(work)
	for _, name := range []string{"BASE_URL", "USER_AGENT", "LOG_LEVEL", "VARIANT", "WORKERS"} {
		t.Setenv("GOLDMAP_"+name, "")
	}
	return work
}

func TestLoadDefaultsResolveExtendedVariant(t *testing.T) {
	work := isolate(t)

	cfg, resolved, exists, err := config.Load("")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NotEmpty(t, resolved)

	assert.Equal(t, config.VariantExtended, cfg.Matching.Variant)
	assert.Equal(t, 70, cfg.Matching.FuzzyFloor)
	assert.Equal(t, 85, cfg.Matching.MatchedThreshold)
	assert.Equal(t, 10, cfg.Fetch.Workers)
	assert.Equal(t, 1500, cfg.Fetch.MaxID)
	assert.Equal(t, 10, cfg.Matching.CheckpointEvery)
	assert.Equal(t, filepath.Join(work, "company_mappings.csv"), cfg.Paths.Output)
	assert.Empty(t, cfg.Paths.Overrides)
	assert.True(t, cfg.Source.VerifyLogos)
}

func TestLoadStrictVariantKeepsExplicitValues(t *testing.T) {
	work := isolate(t)
	path := filepath.Join(work, "goldmap.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[matching]
variant = "STRICT"
matched_threshold = 95

[fetch]
workers = 3

[paths]
overrides = "~/overrides.yaml"
`), 0o644))

	cfg, resolved, exists, err := config.Load("")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, path, resolved)

	assert.Equal(t, config.VariantStrict, cfg.Matching.Variant)
	assert.Equal(t, 80, cfg.Matching.FuzzyFloor)
	assert.Equal(t, 95, cfg.Matching.MatchedThreshold)
	assert.Equal(t, 3, cfg.Fetch.Workers)
	assert.Equal(t, 1000, cfg.Fetch.MaxID)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "overrides.yaml"), cfg.Paths.Overrides)
}

func TestLoadAppliesDotEnvAndEnvironment(t *testing.T) {
	work := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(work, ".env"), []byte("GOLDMAP_WORKERS=7\nGOLDMAP_BASE_URL=http://mirror.local/\n"), 0o644))
	// Variables already set in the process take precedence over .env.
	t.Setenv("GOLDMAP_LOG_LEVEL", "DEBUG")
	os.Unsetenv("GOLDMAP_WORKERS")
	os.Unsetenv("GOLDMAP_BASE_URL")

	cfg, _, _, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Fetch.Workers)
	assert.Equal(t, "http://mirror.local", cfg.Source.BaseURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadExplicitMissingPathUsesDefaults(t *testing.T) {
	work := isolate(t)
	cfg, resolved, exists, err := config.Load(filepath.Join(work, "absent.toml"))
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, filepath.Join(work, "absent.toml"), resolved)
	assert.Equal(t, config.VariantExtended, cfg.Matching.Variant)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]struct {
		mutate func(*config.Config)
		want   string
	}{
		"unknown variant": {
			mutate: func(c *config.Config) { c.Matching.Variant = "loose" },
			want:   "matching.variant",
		},
		"threshold below floor": {
			mutate: func(c *config.Config) { c.Matching.FuzzyFloor = 90; c.Matching.MatchedThreshold = 80 },
			want:   "matching.matched_threshold",
		},
		"inverted delays": {
			mutate: func(c *config.Config) { c.Source.MinDelayMillis = 500; c.Source.MaxDelayMillis = 100 },
			want:   "source.max_delay_ms",
		},
		"max below start": {
			mutate: func(c *config.Config) { c.Fetch.StartID = 10; c.Fetch.MaxID = 5 },
			want:   "fetch.max_id",
		},
		"relative base url": {
			mutate: func(c *config.Config) { c.Source.BaseURL = "goldstockdata.com" },
			want:   "source.base_url",
		},
		"log format": {
			mutate: func(c *config.Config) { c.Logging.Format = "xml" },
			want:   "logging.format",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Finalize()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestSampleConfigParsesAndValidates(t *testing.T) {
	isolate(t)
	cfg := config.Default()
	require.NoError(t, toml.Unmarshal([]byte(config.Sample()), &cfg))
	require.NoError(t, cfg.Finalize())
	assert.Equal(t, 1500, cfg.Fetch.MaxID)
}

func TestCreateSampleWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, config.CreateSample(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.Sample(), string(data))
}

func TestEncodeRoundTrips(t *testing.T) {
	isolate(t)
	cfg := config.Default()
	require.NoError(t, cfg.Finalize())
	data, err := cfg.Encode()
	require.NoError(t, err)

	var decoded config.Config
	require.NoError(t, toml.Unmarshal(data, &decoded))
	assert.Equal(t, cfg, decoded)
}

func TestApplyVariantFollowsDefaultsOnly(t *testing.T) {
	isolate(t)
	cfg := config.Default()
	require.NoError(t, cfg.Finalize())
	cfg.Fetch.Workers = 3

	require.NoError(t, cfg.ApplyVariant("strict"))
	assert.Equal(t, config.VariantStrict, cfg.Matching.Variant)
	assert.Equal(t, 80, cfg.Matching.FuzzyFloor)
	assert.Equal(t, 90, cfg.Matching.MatchedThreshold)
	assert.Equal(t, 1000, cfg.Fetch.MaxID)
	assert.Equal(t, 3, cfg.Fetch.Workers, "explicit worker count survives")

	assert.Error(t, cfg.ApplyVariant("loose"))
}
