package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/callisto/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "callisto",
	Short: "Callisto - pre-emptive client-side pacing for upstream APIs",
	Long: `Callisto is a client-side pacing daemon that spends a token budget before
every upstream API call instead of reacting to 429 responses after the fact.

It keeps independent token buckets for the public and private channels,
providing:
  - Admission control with bounded waits and burst headroom
  - A paced HTTP client for both channels
  - A journal of throttle violations with SQLite or in-memory persistence
  - Named pacing profiles loaded from a directory or a git repository
  - Pacing statistics, health probes, and Prometheus metrics over HTTP

For more information, visit: https://github.com/mercator-hq/callisto`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "callisto.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Disable default completion command (we'll add our own)
	rootCmd.CompletionOptions.DisableDefaultCmd = false

	// Flag mistakes are usage errors and exit with the usage code.
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return cli.NewConfigError("flags", err.Error())
	})
}
