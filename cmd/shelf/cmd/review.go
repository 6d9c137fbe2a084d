package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ssargent/mediashelf/pkg/api"
	"github.com/ssargent/mediashelf/pkg/catalog"
)

func newReviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Manage reviews",
	}
	cmd.AddCommand(newReviewAddCmd(), newReviewListCmd(), newReviewDeleteCmd())
	return cmd
}

func newReviewAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <imdbID>",
		Short: "Review a media record",
		Long: `Attach a review to an existing media record.

Example:
  shelf review add tt0113277 --comment "Still holds up" --rate 4.5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comment, _ := cmd.Flags().GetString("comment")
			rate, _ := cmd.Flags().GetFloat64("rate")
			req := api.CreateReviewRequest{Comment: comment}
			if cmd.Flags().Changed("rate") {
				req.Rate = &rate
			}
			if err := api.Validate(req); err != nil {
				return err
			}

			c, err := containerFrom(cmd)
			if err != nil {
				return err
			}
			media, reviews, err := c.Stores()
			if err != nil {
				return err
			}
			if _, err := media.FindByID(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, catalog.ErrNotFound) {
					return fmt.Errorf("media with the imdbID: %s not found", args[0])
				}
				return err
			}
			rev, err := reviews.Insert(cmd.Context(), args[0], req.Comment, *req.Rate)
			if err != nil {
				return err
			}
			cmd.Printf("New review was created with id %s\n", rev.ID)
			return nil
		},
	}

	cmd.Flags().String("comment", "", "Review text")
	cmd.Flags().Float64("rate", 0, "Rating from 0 to 5")
	return cmd
}

func newReviewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [imdbID]",
		Short: "List reviews, optionally for one media record",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := containerFrom(cmd)
			if err != nil {
				return err
			}
			_, reviews, err := c.Stores()
			if err != nil {
				return err
			}
			var revs []catalog.Review
			if len(args) == 1 {
				revs, err = reviews.ListByMediaID(cmd.Context(), args[0])
			} else {
				revs, err = reviews.List(cmd.Context())
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, revs)
		},
	}
}

func newReviewDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <reviewID>",
		Short: "Delete a review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := containerFrom(cmd)
			if err != nil {
				return err
			}
			_, reviews, err := c.Stores()
			if err != nil {
				return err
			}
			rev, err := reviews.DeleteByID(cmd.Context(), args[0])
			if errors.Is(err, catalog.ErrNotFound) {
				return fmt.Errorf("the review with the ID: %s was not found", args[0])
			}
			if err != nil {
				return err
			}
			cmd.Printf("Review %s was deleted\n", rev.ID)
			return nil
		},
	}
}
