package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"project4869/internal/app"
	"project4869/internal/model"

	"github.com/spf13/cobra"
)

func newMonitorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Check the RSS feed once and store new records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withComponents(func(c *app.Components) error {
				result, err := c.Scrape.Monitor(cmd.Context())
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), result)
			})
		},
	}
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Print the most recently stored records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("limit must be positive, got %d", limit)
			}

			return ctx.withComponents(func(c *app.Components) error {
				repo := c.Storage.GetRecordRepository()

				count, err := repo.Count(cmd.Context())
				if err != nil {
					return err
				}
				records, err := repo.ListRecent(cmd.Context(), limit)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Stored records: %d\n", count)
				return writeRecords(cmd.OutOrStdout(), records)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Number of records to print")
	return cmd
}

func newResetCommand(ctx *commandContext) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all stored records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return errors.New("reset deletes every record; pass --yes to confirm")
			}

			return ctx.withComponents(func(c *app.Components) error {
				deleted, err := c.Storage.GetRecordRepository().Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d records\n", deleted)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&confirm, "yes", "y", false, "Confirm deletion")
	return cmd
}

func writeRecords(w io.Writer, records []model.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EPISODE\tRESOLUTION\tCONTAINER\tSUBTITLE\tDATE\tLINK")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Episode, r.Resolution, r.Container, r.Subtitle, r.PublishDate, r.Link)
	}
	return tw.Flush()
}
