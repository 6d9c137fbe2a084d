package cmd

import (
	"github.com/spf13/cobra"
	"github.com/ssargent/mediashelf/pkg/api"
)

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <title>",
		Short: "Search the catalog by title, falling back to OMDb",
		Long: `Search the catalog for titles containing the given text. When nothing
matches locally and enrichment is enabled, OMDb is queried and the results are
cached in the catalog.

Example:
  shelf search "blade runner"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := containerFrom(cmd)
			if err != nil {
				return err
			}
			svc, err := c.Search()
			if err != nil {
				return err
			}
			res, err := svc.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if res.Remote {
				cmd.PrintErrf("%d result(s) fetched from OMDb\n", len(res.Media))
			}
			return printJSON(cmd, api.SearchResponse{Media: res.Media})
		},
	}
}
