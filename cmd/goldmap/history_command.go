package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"goldmap/internal/company"
	"goldmap/internal/history"
	"goldmap/internal/output"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Browse archived mapping runs",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx), newHistoryShowCommand(ctx))
	return historyCmd
}

func openHistory(ctx *commandContext) (*history.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	return history.Open(cfg.Paths.HistoryDB)
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				if runs == nil {
					runs = []history.Run{}
				}
				return writeJSON(cmd, runs)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					shortRunID(run.ID),
					run.StartedAt.Local().Format(time.DateTime),
					run.Variant,
					runState(run),
					strconv.Itoa(run.Tally.Total()),
					strconv.Itoa(run.Tally.Matched),
					strconv.Itoa(run.Tally.Manual),
					strconv.Itoa(run.Tally.Unmatched),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Variant", "State", "Rows", "Matched", "Manual", "Unmatched"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list (0 = all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print runs as JSON")
	return cmd
}

type runDetail struct {
	history.Run
	Mappings []company.Mapping `json:"mappings,omitempty"`
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var (
		withMappings bool
		jsonOut      bool
	)
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run; a unique ID prefix is enough",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.FindRun(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, history.ErrAmbiguousRun) {
					return fmt.Errorf("%w: %q; use more characters", err, args[0])
				}
				return err
			}
			detail := runDetail{Run: run}
			if withMappings {
				if detail.Mappings, err = store.RunMappings(cmd.Context(), run.ID); err != nil {
					return err
				}
			}
			if jsonOut {
				return writeJSON(cmd, detail)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderKeyValues([][2]string{
				{"Run", run.ID},
				{"Started", run.StartedAt.Local().Format(time.DateTime)},
				{"Finished", run.FinishedAt.Local().Format(time.DateTime)},
				{"Variant", run.Variant},
				{"State", runState(run)},
				{"Companies", strconv.Itoa(run.Entities)},
				{"Goldstock records", strconv.Itoa(run.Records)},
				{"Matched", strconv.Itoa(run.Tally.Matched)},
				{"Manual review", strconv.Itoa(run.Tally.Manual)},
				{"Unmatched", strconv.Itoa(run.Tally.Unmatched)},
				{"Logos verified", strconv.Itoa(run.LogosVerified)},
			}))
			if withMappings && len(detail.Mappings) > 0 {
				rows := make([][]string, 0, len(detail.Mappings))
				for _, m := range detail.Mappings {
					rows = append(rows, output.Row(m))
				}
				fmt.Fprintln(out, renderTable(output.Columns, rows, nil))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withMappings, "mappings", false, "Include the archived mapping rows")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the run as JSON")
	return cmd
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func runState(run history.Run) string {
	switch {
	case run.Interrupted:
		return "interrupted"
	case run.Resumed:
		return "resumed"
	default:
		return "complete"
	}
}
