package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ssargent/mediashelf/pkg/catalog"
	"github.com/ssargent/mediashelf/pkg/codec"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load media and reviews from JSON array files",
		Long: `Load media.json and reviews.json files (JSON arrays, as written by
"shelf dump") into the catalog. Records whose id already exists are skipped.

Example:
  shelf import --media media.json --reviews reviews.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mediaPath, _ := cmd.Flags().GetString("media")
			reviewsPath, _ := cmd.Flags().GetString("reviews")
			if mediaPath == "" && reviewsPath == "" {
				return errors.New("nothing to import: set --media and/or --reviews")
			}

			c, err := containerFrom(cmd)
			if err != nil {
				return err
			}
			media, reviews, err := c.Stores()
			if err != nil {
				return err
			}

			if mediaPath != "" {
				items, err := readCollection[catalog.Media](mediaPath)
				if err != nil {
					return err
				}
				written, err := media.AppendAll(cmd.Context(), items)
				if err != nil {
					return err
				}
				cmd.Printf("Imported %d of %d media from %s\n", len(written), len(items), mediaPath)
			}

			if reviewsPath != "" {
				items, err := readCollection[catalog.Review](reviewsPath)
				if err != nil {
					return err
				}
				imported := 0
				for _, r := range items {
					if _, err := reviews.Restore(cmd.Context(), r); err != nil {
						if errors.Is(err, catalog.ErrConflict) {
							continue
						}
						return err
					}
					imported++
				}
				cmd.Printf("Imported %d of %d reviews from %s\n", imported, len(items), reviewsPath)
			}
			return nil
		},
	}

	cmd.Flags().String("media", "", "Path to a media JSON array")
	cmd.Flags().String("reviews", "", "Path to a reviews JSON array")
	return cmd
}

func readCollection[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	items, err := codec.DecodeCollection[T](f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}
