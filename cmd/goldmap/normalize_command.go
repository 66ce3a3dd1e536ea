package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"goldmap/internal/normalize"
)

func newNormalizeCommand() *cobra.Command {
	normalizeCmd := &cobra.Command{
		Use:         "normalize",
		Short:       "Show the match keys derived from a ticker or company name",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
	}

	tickerCmd := &cobra.Command{
		Use:   "ticker <value>...",
		Short: "Print the canonical ticker key for each value",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", arg, normalize.Ticker(arg))
			}
			return nil
		},
	}

	var variant string
	nameCmd := &cobra.Command{
		Use:   "name <value>...",
		Short: "Print the normalized name key for each value",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, ok := normalize.ParseRuleSet(variant)
			if !ok {
				return fmt.Errorf("unknown variant %q (want strict or extended)", variant)
			}
			for _, arg := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", arg, normalize.Name(arg, rules))
			}
			return nil
		},
	}
	nameCmd.Flags().StringVar(&variant, "variant", "extended", "Suffix rules: strict or extended")

	aliasesCmd := &cobra.Command{
		Use:   "aliases <name>",
		Short: "List the alias forms a goldstock record would be indexed under",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, alias := range normalize.Aliases(strings.Join(args, " ")) {
				fmt.Fprintln(cmd.OutOrStdout(), alias)
			}
			return nil
		},
	}

	normalizeCmd.AddCommand(tickerCmd, nameCmd, aliasesCmd)
	return normalizeCmd
}
