package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/funnel/config"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a funnel configuration file without starting the server.

This command parses the YAML, applies FUNNEL_* environment overrides,
expands ${VAR} references, and validates all fields including the
customization defaults. It's useful for CI/CD pipelines or pre-deployment
checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  funnel validate -c funnel.yaml
  funnel validate --config /etc/funnel/funnel.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	storage := cfg.Storage.Driver
	if cfg.Storage.Driver == config.DriverSQLite {
		storage = fmt.Sprintf("%s (%s)", cfg.Storage.Driver, cfg.Storage.Path)
	}
	admin := "disabled"
	if cfg.Admin.Enabled {
		admin = "enabled"
		if cfg.Admin.Password != "" {
			admin = "enabled (basic auth)"
		}
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Port:          %d\n", cfg.Port)
	fmt.Printf("  Reveal delay:  %s\n", cfg.RevealDelay.Duration())
	fmt.Printf("  Storage:       %s\n", storage)
	fmt.Printf("  Admin:         %s\n", admin)
	fmt.Printf("  Customized:    %d fields\n", len(cfg.Customization))

	return nil
}
