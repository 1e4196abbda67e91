package commands

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bathingbrands/catalog-scraper/internal/orchestrator"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run a catalog scrape",
	Long: `Walk the storefront hierarchy and scrape product pages into the
catalog. Brands are processed sequentially in their configured order.

Examples:
  # Full run
  catalog-scraper scrape

  # One brand, one category
  catalog-scraper scrape --brand harvia --category electric-heaters

  # Resume a long run at a later brand
  catalog-scraper scrape --start-from-brand "Mr.Steam"

  # Count product URLs without fetching them
  catalog-scraper scrape --dry-run`,
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	flags := scrapeCmd.Flags()
	flags.String("brand", "", "restrict the run to one brand (name or slug)")
	flags.String("category", "", "restrict the run to matching categories (name or slug)")
	flags.Int("limit", 0, "cap on products processed across the run (0 = unlimited)")
	flags.Int("limit-per-brand", 0, "cap on products processed per brand (0 = unlimited)")
	flags.String("start-from-brand", "", "resume the configured brand order at this brand")
	flags.Duration("delay", 0, "pause between product requests (overrides SCRAPER_REQUEST_DELAY)")
	flags.Duration("brand-delay", 0, "pause between brands (overrides SCRAPER_BRAND_DELAY)")
	flags.Bool("dry-run", false, "discover and count product URLs without scraping")
	flags.String("test-url", "", "scrape a single product page and print the result")
}

func runScrape(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if testURL, _ := cmd.Flags().GetString("test-url"); testURL != "" {
		return runTestScrape(ctx, app, testURL)
	}

	opts := orchestrator.Options{}
	opts.Brand, _ = cmd.Flags().GetString("brand")
	opts.Category, _ = cmd.Flags().GetString("category")
	opts.Limit, _ = cmd.Flags().GetInt("limit")
	opts.LimitPerBrand, _ = cmd.Flags().GetInt("limit-per-brand")
	opts.StartFromBrand, _ = cmd.Flags().GetString("start-from-brand")
	opts.DryRun, _ = cmd.Flags().GetBool("dry-run")

	opts.Delay = app.cfg.Scraper.RequestDelay
	if d, _ := cmd.Flags().GetDuration("delay"); d > 0 {
		opts.Delay = d
	}
	opts.BrandDelay = app.cfg.Scraper.BrandDelay
	if d, _ := cmd.Flags().GetDuration("brand-delay"); d > 0 {
		opts.BrandDelay = d
	}

	summary, err := app.session.Run(ctx, opts)
	if err != nil {
		return err
	}

	return printJSON(summary)
}

func runTestScrape(ctx context.Context, app *app, testURL string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	product, err := app.session.ScrapeOne(ctx, testURL)
	if err != nil {
		return err
	}

	return printJSON(product)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
