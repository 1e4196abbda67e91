// Package commands implements the CLI commands for the catalog scraper.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "catalog-scraper",
	Short: "Product catalog scraper for bathing brand storefronts",
	Long: `Catalog-scraper walks a storefront's brand, category, and collection
pages, scrapes every product page it finds, and reconciles the results
into a Postgres catalog. Saved products are announced on a Redis stream
through a transactional outbox.

Examples:
  # Scrape everything
  catalog-scraper scrape

  # Scrape one brand, capped at 50 products
  catalog-scraper scrape --brand huum --limit 50

  # Check a single product page without a full run
  catalog-scraper scrape --test-url "https://bathingbrands.com/54661/huum/drop-45"

  # Serve the HTTP API and outbox relay
  catalog-scraper serve`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
