package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/ssargent/mediashelf/pkg/catalog"
	"github.com/ssargent/mediashelf/pkg/export"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <imdbID>",
		Short: "Export a media record and its reviews as PDF",
		Long: `Render a media record and its reviews as a PDF document.

Without --output the file is named after the title in the current directory.
Use "-o -" to write to stdout.

Examples:
  shelf export tt0113277
  shelf export tt0113277 -o heat.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := containerFrom(cmd)
			if err != nil {
				return err
			}
			media, reviews, err := c.Stores()
			if err != nil {
				return err
			}
			m, err := media.FindByID(cmd.Context(), args[0])
			if errors.Is(err, catalog.ErrNotFound) {
				return fmt.Errorf("media with the imdbID: %s not found", args[0])
			}
			if err != nil {
				return err
			}
			revs, err := reviews.ListByMediaID(cmd.Context(), m.ImdbID)
			if err != nil {
				return err
			}

			out, _ := cmd.Flags().GetString("output")
			if out == "" {
				out = export.Filename(m)
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}

			if err := c.Renderer().RenderTo(cmd.Context(), w, m, revs); err != nil {
				if out != "-" {
					_ = os.Remove(out)
				}
				return err
			}
			if out != "-" {
				cmd.PrintErrf("Exported %s with %d review(s) to %s\n", m.ImdbID, len(revs), out)
			}
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output file, or - for stdout")
	return cmd
}
