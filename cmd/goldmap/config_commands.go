package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"goldmap/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage goldmap configuration",
	}
	configCmd.AddCommand(newConfigInitCommand(), newConfigShowCommand(ctx), newConfigValidateCommand(ctx))
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		path      string
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				expanded string
				err      error
			)
			if target := strings.TrimSpace(path); target != "" {
				expanded, err = config.ExpandPath(target)
			} else {
				expanded, err = config.DefaultConfigPath()
			}
			if err != nil {
				return err
			}
			if !overwrite {
				if _, err := os.Stat(expanded); err == nil {
					return fmt.Errorf("%s already exists; pass --overwrite to replace it", expanded)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("inspect %s: %w", expanded, err)
				}
			}
			if err := config.CreateSample(expanded); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderStatusLine("Config", statusOK, "wrote "+expanded, shouldColorize(cmd.OutOrStdout())))
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "path", "p", "", "Destination (default ~/.config/goldmap/config.toml)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			data, err := cfg.Encode()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# source: %s\n", ctx.configSource())
			_, err = out.Write(data)
			return err
		},
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderStatusLine("Config", statusOK, ctx.configSource(), colorize))
			fmt.Fprintln(out, renderStatusLine("Variant", statusInfo, cfg.Matching.Variant, colorize))
			fmt.Fprintln(out, renderStatusLine("Input", statusInfo, cfg.Paths.Input, colorize))
			fmt.Fprintln(out, renderStatusLine("Output", statusInfo, cfg.Paths.Output, colorize))
			return nil
		},
	}
}
