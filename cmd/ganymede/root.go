package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ganymede",
	Short: "Ganymede - context governance proxy for AI agents",
	Long: `Ganymede is a context governance proxy that sits between AI agents and
the systems holding sensitive data.

Agents declare an intent; Ganymede verifies who is asking, resolves the
policy for that intent, fetches from the permitted sources in parallel,
strips every field the policy does not allow, and returns a context
envelope carrying provenance and usage constraints. Every request is
written to a tamper-evident audit trail before the response leaves.

For more information, visit: https://github.com/mercator-hq/ganymede`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
