package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"goldmap/internal/config"
	"goldmap/internal/logging"
	"goldmap/internal/runner"
)

type runFlags struct {
	limit      int
	maxID      int
	workers    int
	resume     bool
	clearCache bool
	variant    string
	input      string
	output     string
	progress   string
	jsonOut    bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch goldstock records and map every company",
		Long: "Fetch the goldstock company directory through the local cache, resolve each\n" +
			"internal company by override, ticker, name and fuzzy name, and write the\n" +
			"mapping table. Ctrl-C stops after the current company; rerun with --resume.",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg := *base
			if err := applyRunFlags(cmd, &cfg, flags); err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(&cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			opts := runner.Options{
				Limit:      flags.limit,
				Resume:     flags.resume,
				ClearCache: flags.clearCache,
			}
			showProgress, err := progressEnabled(flags.progress, cmd)
			if err != nil {
				return err
			}
			if showProgress {
				reporter := newProgressReporter(cmd.ErrOrStderr())
				defer reporter.Close()
				opts.FetchObserver = reporter
				opts.ResolveObserver = reporter
			}

			r, err := runner.New(&cfg, opts, logger)
			if err != nil {
				return err
			}
			summary, err := r.Run(cmd.Context())
			if err != nil {
				if errors.Is(err, runner.ErrLocked) {
					return fmt.Errorf("%w; wait for it to finish or remove %s if it crashed", err, cfg.Paths.LockFile)
				}
				return err
			}

			if flags.jsonOut {
				return writeJSON(cmd, summary)
			}
			printSummary(cmd, summary)
			return nil
		},
	}

	cmd.Flags().IntVar(&flags.limit, "limit", 0, "Process at most this many companies (0 = all)")
	cmd.Flags().IntVar(&flags.maxID, "max-id", 0, "Highest goldstock ID to scan (default from variant)")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "Concurrent page fetches (default from variant)")
	cmd.Flags().BoolVar(&flags.resume, "resume", false, "Skip companies recorded in the checkpoint and merge their rows")
	cmd.Flags().BoolVar(&flags.clearCache, "clear-cache", false, "Delete the record cache and checkpoint before starting")
	cmd.Flags().StringVar(&flags.variant, "variant", "", "Matching variant: strict or extended")
	cmd.Flags().StringVar(&flags.input, "input", "", "Companies JSON file")
	cmd.Flags().StringVar(&flags.output, "output", "", "Mapping CSV destination")
	cmd.Flags().StringVar(&flags.progress, "progress", "auto", "Show progress bars: auto, always or never")
	cmd.Flags().BoolVar(&flags.jsonOut, "json", false, "Print the run summary as JSON")
	return cmd
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config, flags runFlags) error {
	if flags.limit < 0 {
		return errors.New("--limit must be non-negative")
	}
	if cmd.Flags().Changed("variant") {
		if err := cfg.ApplyVariant(flags.variant); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("max-id") {
		cfg.Fetch.MaxID = flags.maxID
	}
	if cmd.Flags().Changed("workers") {
		cfg.Fetch.Workers = flags.workers
	}
	for _, override := range []struct {
		value  string
		target *string
	}{
		{flags.input, &cfg.Paths.Input},
		{flags.output, &cfg.Paths.Output},
	} {
		if strings.TrimSpace(override.value) == "" {
			continue
		}
		expanded, err := config.ExpandPath(strings.TrimSpace(override.value))
		if err != nil {
			return err
		}
		*override.target = expanded
	}
	return cfg.Validate()
}

func progressEnabled(mode string, cmd *cobra.Command) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		return isTerminal(cmd.ErrOrStderr()), nil
	case "always":
		return true, nil
	case "never":
		return false, nil
	default:
		return false, fmt.Errorf("--progress must be auto, always or never, got %q", mode)
	}
}

func printSummary(cmd *cobra.Command, s runner.Summary) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	for _, line := range renderSectionHeader("Mapping summary", colorize) {
		fmt.Fprintln(out, line)
	}

	pct := func(n int) string {
		return fmt.Sprintf("%d (%.1f%%)", n, s.Percent(n))
	}
	fmt.Fprintln(out, renderKeyValues([][2]string{
		{"Run", s.RunID},
		{"Variant", s.Variant},
		{"Companies", strconv.Itoa(s.Entities)},
		{"Invalid rows skipped", strconv.Itoa(s.Rejected)},
		{"Resumed from checkpoint", strconv.Itoa(s.Skipped)},
		{"Resolved this run", strconv.Itoa(s.Processed)},
		{"Goldstock records", strconv.Itoa(s.Records)},
		{"Matched", pct(s.Tally.Matched)},
		{"Manual review", pct(s.Tally.Manual)},
		{"Unmatched", pct(s.Tally.Unmatched)},
		{"Logos verified", fmt.Sprintf("%d / %d", s.LogosVerified, s.LogosChecked)},
		{"Elapsed", s.FinishedAt.Sub(s.StartedAt).Round(100 * time.Millisecond).String()},
	}))

	if s.Interrupted {
		fmt.Fprintln(out, renderStatusLine("Run", statusWarn, "interrupted; rerun with --resume to continue", colorize))
		return
	}
	fmt.Fprintln(out, renderStatusLine("Output", statusOK, s.OutputPath, colorize))
}
