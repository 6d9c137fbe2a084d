package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/ssargent/mediashelf/pkg/codec"
)

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Write the catalog out as JSON array files",
		Long: `Write media.json and reviews.json into the output directory, in the
same layout "shelf import" reads.

Example:
  shelf dump --out ./backup`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("out")
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}

			c, err := containerFrom(cmd)
			if err != nil {
				return err
			}
			media, reviews, err := c.Stores()
			if err != nil {
				return err
			}

			allMedia, err := media.List(cmd.Context())
			if err != nil {
				return err
			}
			allReviews, err := reviews.List(cmd.Context())
			if err != nil {
				return err
			}

			if err := writeCollection(filepath.Join(dir, "media.json"), allMedia); err != nil {
				return err
			}
			if err := writeCollection(filepath.Join(dir, "reviews.json"), allReviews); err != nil {
				return err
			}
			cmd.Printf("Dumped %d media and %d reviews to %s\n", len(allMedia), len(allReviews), dir)
			return nil
		},
	}

	cmd.Flags().String("out", ".", "Output directory")
	return cmd
}

func writeCollection[T any](path string, items []T) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := codec.EncodeCollection(f, items); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
