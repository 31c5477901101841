// Package main provides the entry point for the stacwalk CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for stacwalk.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stacwalk",
		Short: "Extract downloadable URLs from STAC catalogs",
		Long: `stacwalk extracts downloadable URLs from STAC catalogs.

It accepts STAC Browser share links (the #/external/ form) or direct
catalog URLs, walks the catalog's typed links, and derives raster asset
URLs for the items it discovers.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewExtractCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
