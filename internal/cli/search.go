package cli

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/devkit/internal/clients/serper"
)

var searchOpts serper.SearchOptions

var searchCmd = &cobra.Command{
	Use:     "search <query>",
	Short:   "Search Google through Serper",
	Example: `  devkit search "golang generics" --num 5 --gl us`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.IntVarP(&searchOpts.Num, "num", "n", 10, "number of results")
	f.StringVar(&searchOpts.GL, "gl", "us", "country code")
	f.StringVar(&searchOpts.HL, "hl", "en", "language code")
	f.StringVar(&searchOpts.Location, "location", "", "search location")
	f.IntVar(&searchOpts.Page, "page", 1, "result page")
	f.StringVar(&searchOpts.APIKey, "api-key", "", "Serper API key, overrides SERPER_API_KEY(S)")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := getApp(ctx)
	if err != nil {
		return err
	}

	query := strings.Join(args, " ")
	start := time.Now()
	resp, err := a.Serper.Search(ctx, query, searchOpts)
	if err != nil {
		return err
	}
	slog.Debug("Search finished", "results", len(resp.Organic), "duration", time.Since(start))

	if err := printJSON(cmd.OutOrStdout(), resp.Raw, resp); err != nil {
		return fmt.Errorf("failed to print response: %w", err)
	}
	return nil
}
