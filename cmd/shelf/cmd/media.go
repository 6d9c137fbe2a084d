package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ssargent/mediashelf/pkg/api"
	"github.com/ssargent/mediashelf/pkg/catalog"
)

func newMediaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "Manage catalog media",
	}
	cmd.AddCommand(
		newMediaListCmd(),
		newMediaGetCmd(),
		newMediaAddCmd(),
		newMediaUpdateCmd(),
		newMediaDeleteCmd(),
	)
	return cmd
}

func newMediaListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every media record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := containerFrom(cmd)
			if err != nil {
				return err
			}
			media, _, err := c.Stores()
			if err != nil {
				return err
			}
			all, err := media.List(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, all)
		},
	}
}

func newMediaGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <imdbID>",
		Short: "Show a media record with its reviews",
		Args:  cobra.ExactArgs(1),
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
			return printJSON(cmd, api.MediaDetailResponse{Media: m, Reviews: revs})
		},
	}
}

func newMediaAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a media record",
		Long: `Add a media record to the catalog.

Examples:
  shelf media add --title "Heat" --year 1995 --type movie
  shelf media add --id tt0113277 --title "Heat" --year 1995 --type movie --poster https://example.com/heat.jpg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			req := api.CreateMediaRequest{}
			req.Title, _ = flags.GetString("title")
			req.Year, _ = flags.GetString("year")
			req.Type, _ = flags.GetString("type")
			req.Poster, _ = flags.GetString("poster")
			id, _ := flags.GetString("id")

			if err := api.Validate(req); err != nil {
				return err
			}

			c, err := containerFrom(cmd)
			if err != nil {
				return err
			}
			media, _, err := c.Stores()
			if err != nil {
				return err
			}
			m, err := media.Insert(cmd.Context(), catalog.Media{
				ImdbID: id,
				Title:  req.Title,
				Year:   req.Year,
				Type:   req.Type,
				Poster: req.Poster,
			})
			if errors.Is(err, catalog.ErrConflict) {
				return fmt.Errorf("media with the imdbID: %s already exists", id)
			}
			if err != nil {
				return err
			}
			cmd.Printf("New media was created with id %s\n", m.ImdbID)
			return nil
		},
	}

	cmd.Flags().String("title", "", "Title")
	cmd.Flags().String("year", "", "Release year or year range")
	cmd.Flags().String("type", "movie", "Type: movie, series or episode")
	cmd.Flags().String("poster", "", "Poster URL (placeholder when empty)")
	cmd.Flags().String("id", "", "IMDb id (generated when empty)")
	return cmd
}

func newMediaUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <imdbID>",
		Short: "Update fields of a media record",
		Long: `Update the given fields of a media record. Flags that are not set keep
their stored value.

Example:
  shelf media update tt0113277 --year 1995 --poster https://example.com/heat.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req api.UpdateMediaRequest
			flags := cmd.Flags()
			for name, dst := range map[string]**string{
				"title":  &req.Title,
				"year":   &req.Year,
				"type":   &req.Type,
				"poster": &req.Poster,
			} {
				if flags.Changed(name) {
					v, _ := flags.GetString(name)
					*dst = &v
				}
			}

			patch := catalog.MediaPatch{Title: req.Title, Year: req.Year, Type: req.Type, Poster: req.Poster}
			if patch.Empty() {
				return errors.New("nothing to update: set at least one of --title, --year, --type, --poster")
			}
			if err := api.Validate(req); err != nil {
				return err
			}

			c, err := containerFrom(cmd)
			if err != nil {
				return err
			}
			media, _, err := c.Stores()
			if err != nil {
				return err
			}
			m, err := media.Replace(cmd.Context(), args[0], patch)
			if errors.Is(err, catalog.ErrNotFound) {
				return fmt.Errorf("media with the imdbID: %s not found", args[0])
			}
			if err != nil {
				return err
			}
			cmd.Printf("The media with imdbID: %s was updated.\n", m.ImdbID)
			return printJSON(cmd, m)
		},
	}

	cmd.Flags().String("title", "", "New title")
	cmd.Flags().String("year", "", "New year")
	cmd.Flags().String("type", "", "New type: movie, series or episode")
	cmd.Flags().String("poster", "", "New poster URL")
	return cmd
}

func newMediaDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <imdbID>",
		Short: "Delete a media record",
		Long: `Delete a media record. Its reviews are kept.

Example:
  shelf media delete tt0113277`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := containerFrom(cmd)
			if err != nil {
				return err
			}
			media, _, err := c.Stores()
			if err != nil {
				return err
			}
			m, err := media.Delete(cmd.Context(), args[0])
			if errors.Is(err, catalog.ErrNotFound) {
				return fmt.Errorf("the media with the imdbID: %s was not found", args[0])
			}
			if err != nil {
				return err
			}
			cmd.Printf("The media with the id: %s was deleted\n", m.ImdbID)
			return nil
		},
	}
}
