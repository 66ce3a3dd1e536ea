package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"goldmap/internal/preflight"
)

var errPreflightFailed = errors.New("one or more checks failed")

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var (
		offline bool
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check inputs, state directories and directory site reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, !offline)
			if jsonOut {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader("Preflight", colorize) {
					fmt.Fprintln(out, line)
				}
				for _, result := range results {
					kind := statusOK
					if !result.Passed {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
				}
			}
			if !preflight.AllPassed(results) {
				return errPreflightFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the directory site probe")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print check results as JSON")
	return cmd
}
