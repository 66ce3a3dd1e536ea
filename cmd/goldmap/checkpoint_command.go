package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"goldmap/internal/checkpoint"
	"goldmap/internal/company"
)

type checkpointStatus struct {
	Path      string        `json:"path"`
	Processed int           `json:"processed"`
	Tally     company.Tally `json:"tally"`
}

func newCheckpointCommand(ctx *commandContext) *cobra.Command {
	checkpointCmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect or discard the resume checkpoint",
	}

	var jsonOut bool
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show how many companies the checkpoint covers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			manager := checkpoint.New(cfg.Paths.Checkpoint, ctx.newLogger())
			cp := manager.Load()
			status := checkpointStatus{
				Path:      manager.Path(),
				Processed: len(cp.ProcessedIDs),
				Tally:     company.Count(cp.Mappings),
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}
			out := cmd.OutOrStdout()
			if cp.Empty() {
				fmt.Fprintln(out, renderStatusLine("Checkpoint", statusInfo, "none; the next run starts from scratch", shouldColorize(out)))
				return nil
			}
			fmt.Fprintln(out, renderKeyValues([][2]string{
				{"Path", status.Path},
				{"Processed", strconv.Itoa(status.Processed)},
				{"Matched", strconv.Itoa(status.Tally.Matched)},
				{"Manual review", strconv.Itoa(status.Tally.Manual)},
				{"Unmatched", strconv.Itoa(status.Tally.Unmatched)},
			}))
			return nil
		},
	}
	showCmd.Flags().BoolVar(&jsonOut, "json", false, "Print the checkpoint summary as JSON")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the checkpoint so the next run starts over",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := checkpoint.New(cfg.Paths.Checkpoint, ctx.newLogger()).Delete(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderStatusLine("Checkpoint", statusOK, "cleared", shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}

	checkpointCmd.AddCommand(showCmd, clearCmd)
	return checkpointCmd
}
