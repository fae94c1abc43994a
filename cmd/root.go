// Package cmd defines the CLI commands for the lexharvest executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lexharvest",
		Short: "Resumable harvester for paginated legal-document catalogs.",
		Long: `lexharvest walks a paginated SRU catalog of legal-document
identifiers, fetches the full text for each newly discovered identifier,
and delivers the results in batches to a downstream dataset hub.

Progress is checkpointed per delivered batch, so an interrupted run
resumes without duplicating or losing records.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: defaults + HARVEST_* env)")
	cmd.AddCommand(newHarvestCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
