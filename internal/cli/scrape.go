package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vietddude/devkit/internal/clients/serper"
)

var scrapeOpts serper.ScrapeOptions

var scrapeCmd = &cobra.Command{
	Use:     "scrape <url>",
	Short:   "Fetch a web page through Serper",
	Example: `  devkit scrape https://go.dev --markdown`,
	Args:    cobra.ExactArgs(1),
	RunE:    runScrape,
}

func init() {
	scrapeCmd.Flags().BoolVar(&scrapeOpts.Markdown, "markdown", false, "include a markdown rendering")
	scrapeCmd.Flags().StringVar(&scrapeOpts.APIKey, "api-key", "", "Serper API key, overrides SERPER_API_KEY(S)")

	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := getApp(ctx)
	if err != nil {
		return err
	}

	resp, err := a.Serper.Scrape(ctx, args[0], scrapeOpts)
	if err != nil {
		return err
	}

	if err := printJSON(cmd.OutOrStdout(), resp.Raw, resp); err != nil {
		return fmt.Errorf("failed to print response: %w", err)
	}
	return nil
}
