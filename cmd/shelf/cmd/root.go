package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/ssargent/mediashelf/pkg/config"
	"github.com/ssargent/mediashelf/pkg/di"
	"github.com/ssargent/mediashelf/pkg/logging"
)

type containerKey struct{}

// containerSlot carries the container out of the command tree so it can be
// closed even when a command fails.
type containerSlot struct {
	c *di.Container
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "shelf",
		Short: "MediaShelf - media catalog with reviews",
		Long: `MediaShelf keeps a catalog of movies and series with user reviews.
Title searches that miss locally are looked up on OMDb and cached, and any
record can be exported as a PDF.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logging.Init(logging.Config{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				Output: cmd.ErrOrStderr(),
			})
			slot, ok := cmd.Context().Value(containerKey{}).(*containerSlot)
			if !ok {
				return errors.New("command context missing container slot")
			}
			slot.c = di.NewContainer(cfg)
			return nil
		},
	}

	root.PersistentFlags().String("config", "", "Path to config file (default: ~/.config/shelf/config.yaml when present)")
	root.PersistentFlags().StringP("data-dir", "d", "", "Data directory for the catalog")
	root.PersistentFlags().String("engine", "", "Storage engine: log or pebble")
	root.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newInitCmd(),
		newServeCmd(),
		newMediaCmd(),
		newReviewCmd(),
		newSearchCmd(),
		newExportCmd(),
		newImportCmd(),
		newDumpCmd(),
	)
	return root
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := run(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}

// run executes root and closes whatever the command opened.
func run(ctx context.Context, root *cobra.Command) error {
	slot := &containerSlot{}
	err := root.ExecuteContext(context.WithValue(ctx, containerKey{}, slot))
	if slot.c != nil {
		if cerr := slot.c.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	return err
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.GetDefaultConfigPath()
	}
	return path
}

// loadConfig layers the config file and environment, then applies any
// explicitly set global flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath(cmd))
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.DataDir, _ = flags.GetString("data-dir")
	}
	if flags.Changed("engine") {
		cfg.Storage.Engine, _ = flags.GetString("engine")
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func containerFrom(cmd *cobra.Command) (*di.Container, error) {
	slot, ok := cmd.Context().Value(containerKey{}).(*containerSlot)
	if !ok || slot.c == nil {
		return nil, errors.New("dependency container not initialized")
	}
	return slot.c, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
