package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ssargent/mediashelf/pkg/logging"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long: `Start the MediaShelf REST API.

Examples:
  shelf serve
  shelf serve --port 9000 --bind 0.0.0.0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := containerFrom(cmd)
			if err != nil {
				return err
			}
			cfg := c.Config()
			if cmd.Flags().Changed("port") {
				cfg.Port, _ = cmd.Flags().GetInt("port")
			}
			if cmd.Flags().Changed("bind") {
				cfg.Bind, _ = cmd.Flags().GetString("bind")
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			srv, err := c.Server()
			if err != nil {
				return err
			}

			if cfg.Security.APIKey == "" {
				logging.Warn().Msg("no API key configured; mutating routes are open")
			}
			if !cfg.Enrich.Enabled || cfg.Enrich.APIKey == "" {
				logging.Warn().Msg("remote enrichment disabled; title misses return not found")
			}
			logging.Info().
				Str("data_dir", cfg.DataDir).
				Str("engine", cfg.Storage.Engine).
				Msg("catalog opened")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx, cfg.Address(), c.Registry())
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	cmd.Flags().String("bind", "127.0.0.1", "Address to bind server to")
	return cmd
}
