package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/catalog-scraper/internal/crawl"
)

func newCrawlCmd(a *app) *cobra.Command {
	var maxPages int

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the configured start URLs",
		Long: `Fetches the configured start URLs with colly, follows pagination and
product links within the allowed domains, and writes every accepted record to
the enabled sinks. A run summary is printed as JSON when the crawl ends.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg.Crawler
			if cmd.Flags().Changed("max-pages") {
				cfg.MaxPages = maxPages
			}
			engine, err := crawl.New(cfg, a.logger.Named("crawl"))
			if err != nil {
				return fmt.Errorf("init crawl engine: %w", err)
			}
			return a.run(cmd, engine)
		},
	}

	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "stop after this many pages (overrides crawler.max_pages)")
	return cmd
}
