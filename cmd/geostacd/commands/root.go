// Package commands defines all Cobra CLI commands for the geostacd binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/geostac/internal/audit"
	"github.com/54b3r/geostac/internal/config"
	"github.com/54b3r/geostac/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "geostacd",
		Short: "geostacd — natural-language query orchestration over a STAC catalog",
		Long: `geostacd translates a natural-language geospatial question into a
reproducible STAC search, selects the highest-quality subset of returned
tiles, and composes a data, analysis, or hybrid reply.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.geostac/config.yaml).
See 'geostacd --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.geostac/config.yaml)")

	root.AddCommand(
		NewQueryCmd(),
		NewResetCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}
