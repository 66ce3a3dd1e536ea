package preflight

import (
	"context"
	"path/filepath"

	"goldmap/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// RunAll executes every applicable check for cfg. The site probe is skipped
// when probeSource is false.
func RunAll(ctx context.Context, cfg *config.Config, probeSource bool) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckCompanies("Companies file", cfg.Paths.Input),
		CheckOverrides("Overrides", cfg.Paths.Overrides),
	}

	// State files share directories often; report each directory once.
	seen := make(map[string]struct{})
	for _, target := range []struct {
		name string
		path string
	}{
		{"Output directory", cfg.Paths.Output},
		{"Cache directory", cfg.Paths.Cache},
		{"Checkpoint directory", cfg.Paths.Checkpoint},
		{"History directory", cfg.Paths.HistoryDB},
		{"Log directory", cfg.Paths.LogFile},
	} {
		if target.path == "" {
			continue
		}
		dir := filepath.Dir(target.path)
		if _, dup := seen[dir]; dup {
			continue
		}
		seen[dir] = struct{}{}
		results = append(results, CheckDirectoryAccess(target.name, dir))
	}

	if probeSource {
		results = append(results, CheckSource(ctx, cfg.Source.BaseURL, cfg.Source.UserAgent, cfg.RequestTimeoutDuration()))
	}
	return results
}
