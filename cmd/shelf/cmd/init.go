package cmd

import (
	"github.com/spf13/cobra"
	"github.com/ssargent/mediashelf/pkg/config"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		Long: `Write a configuration file with defaults and a freshly generated API key.

The key guards every mutating HTTP route. Set enrich.api_key (or OMDB_API_KEY)
to enable remote lookups.

Examples:
  shelf init
  shelf init --config ./shelf.yaml --data-dir ./data --print-key`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath(cmd)
			force, _ := cmd.Flags().GetBool("force")
			printKey, _ := cmd.Flags().GetBool("print-key")
			dataDir, _ := cmd.Flags().GetString("data-dir")

			if config.ConfigExists(path) && !force {
				cmd.Printf("Configuration already exists at %s. Use --force to overwrite.\n", path)
				return nil
			}

			cfg, err := config.BootstrapConfig(path, dataDir)
			if err != nil {
				return err
			}

			cmd.Printf("Configuration written to %s\n", path)
			cmd.Printf("Data directory: %s\n", cfg.DataDir)
			if printKey {
				cmd.Printf("API key: %s\n", cfg.Security.APIKey)
			}
			cmd.Printf("\nStart the server with:\n  shelf serve --config %s\n", path)
			return nil
		},
	}

	cmd.Flags().Bool("force", false, "Overwrite an existing configuration")
	cmd.Flags().Bool("print-key", false, "Print the generated API key")
	return cmd
}
