// Package main provides the entry point for the spritescan CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for spritescan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spritescan",
		Short: "Locate compressed sprite sheets in SNES ROM images",
		Long: `spritescan locates HAL-compressed sprite sheets in SNES ROM images.

It maps empty ROM regions to skip filler, brute-forces decompression at
candidate offsets through a pool of external codec worker processes, and
scores each decoded payload for sprite-likeness. Scans are resumable:
progress is checkpointed per ROM and parameter set.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewRegionsCmd())
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
