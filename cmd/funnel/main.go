// Package main is the entry point for the funnel CLI.
//
// The funnel can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	funnel serve -c funnel.yaml    # Start the funnel
//	funnel validate -c funnel.yaml # Validate configuration
//	funnel version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "funnel",
	Short: "A marketing funnel that keeps attribution parameters across pages",
	Long: `Funnel serves a home page, presell article, upsell and downsell steps
and a thank-you page. UTM tags and ad click IDs that arrive on any page are
kept for the visitor's session and attached to every link and checkout
redirect that follows.

Quick start:
  1. Create a config file (funnel.yaml)
  2. Run: funnel serve -c funnel.yaml
  3. Open http://localhost:8080/?utm_source=test in your browser

Example config:
  title: Acme Wellness
  port: 8080
  checkout:
    upsell: https://pay.example.com/upsell
    downsell: https://pay.example.com/downsell
  admin:
    enabled: true
    password: ${FUNNEL_ADMIN_PASSWORD}`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this funnel binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("funnel %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
