package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"project4869/internal/app"
	"project4869/internal/pipeline"

	"github.com/spf13/cobra"
)

// inspectRowLimit количество записей, которое печатает inspect
const inspectRowLimit = 10

type sourceFlags struct {
	url      string
	file     string
	selector string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.url, "url", "", "Listing page URL (defaults to SOURCE_URL)")
	cmd.Flags().StringVar(&f.file, "file", "", "Read the listing snapshot from a local HTML file")
	cmd.Flags().StringVar(&f.selector, "selector", "", "Row selector; empty enables discovery")
	cmd.MarkFlagsMutuallyExclusive("url", "file")
}

func (f *sourceFlags) load(cmd *cobra.Command, ctx *commandContext) (string, error) {
	if f.file != "" {
		data, err := os.ReadFile(f.file)
		if err != nil {
			return "", fmt.Errorf("failed to read snapshot: %w", err)
		}
		return string(data), nil
	}

	url := f.url
	if url == "" {
		url = ctx.config.SourceURL
	}

	html, err := ctx.factory().CreateFetcher().Fetch(cmd.Context(), url)
	if err != nil {
		return "", fmt.Errorf("failed to fetch listing: %w", err)
	}
	return html, nil
}

func newScrapeCommand(ctx *commandContext) *cobra.Command {
	var flags sourceFlags

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape a listing snapshot and store its records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withComponents(func(c *app.Components) error {
				var (
					result pipeline.Result
					err    error
				)

				switch {
				case flags.file != "":
					html, loadErr := flags.load(cmd, ctx)
					if loadErr != nil {
						return loadErr
					}
					result, err = c.Scrape.ScrapeHTML(cmd.Context(), html, flags.selector)
				case flags.url != "":
					result, err = c.Scrape.ScrapeURL(cmd.Context(), flags.url, flags.selector)
				case flags.selector != "":
					result, err = c.Scrape.ScrapeURL(cmd.Context(), c.Scrape.SourceURL(), flags.selector)
				default:
					result, err = c.Scrape.RunFull(cmd.Context())
				}
				if err != nil {
					return err
				}

				return writeJSON(cmd.OutOrStdout(), result)
			})
		},
	}

	flags.register(cmd)
	return cmd
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var flags sourceFlags

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the row selector and first records without storing them",
		RunE: func(cmd *cobra.Command, args []string) error {
			html, err := flags.load(cmd, ctx)
			if err != nil {
				return err
			}

			factory := ctx.factory()
			profile, err := factory.CreateProfile()
			if err != nil {
				return err
			}

			p := pipeline.New(profile, factory.CreateAssembler(), nil, 0, ctx.logger)
			result, records, err := p.Process(html, flags.selector)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Selector: %s (fallback: %t, level: %d)\n", result.Descriptor.Selector, result.Fallback, result.Descriptor.Level)
			fmt.Fprintf(out, "Rows: %d, records: %d\n", result.Rows, result.Records)

			if len(records) > inspectRowLimit {
				records = records[:inspectRowLimit]
			}
			return writeRecords(out, records)
		},
	}

	flags.register(cmd)
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
