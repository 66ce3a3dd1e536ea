package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"goldmap/internal/recordcache"
)

type cacheStats struct {
	Path      string `json:"path"`
	Entries   int    `json:"entries"`
	Records   int    `json:"records"`
	Negatives int    `json:"negatives"`
}

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the goldstock record cache",
	}

	var jsonOut bool
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cached record and not-found counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cache := recordcache.Open(cfg.Paths.Cache, ctx.newLogger())
			records, negatives := cache.Stats()
			stats := cacheStats{
				Path:      cache.Path(),
				Entries:   cache.Len(),
				Records:   records,
				Negatives: negatives,
			}
			if jsonOut {
				return writeJSON(cmd, stats)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues([][2]string{
				{"Path", stats.Path},
				{"Entries", strconv.Itoa(stats.Entries)},
				{"Records", strconv.Itoa(stats.Records)},
				{"Not found", strconv.Itoa(stats.Negatives)},
			}))
			return nil
		},
	}
	statsCmd.Flags().BoolVar(&jsonOut, "json", false, "Print stats as JSON")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the record cache file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cache := recordcache.Open(cfg.Paths.Cache, ctx.newLogger())
			entries := cache.Len()
			if err := cache.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderStatusLine("Cache", statusOK,
				fmt.Sprintf("removed %d entries from %s", entries, cfg.Paths.Cache), shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}

	cacheCmd.AddCommand(statsCmd, clearCmd)
	return cacheCmd
}
