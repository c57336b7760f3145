package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var scrapePages int

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape the newest questions listing into scraped_questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		pages := scrapePages
		if pages == 0 {
			pages = cfg.Scraper.DefaultPages
		}
		status, err := a.scrape.ScrapeLatest(cmd.Context(), pages)
		if status != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "scraped %d questions from %d pages\n", status.Stored, status.Pages)
		}
		return err
	},
}

func init() {
	scrapeCmd.Flags().IntVarP(&scrapePages, "pages", "p", 0, "number of listing pages (defaults to scraper.default_pages)")
}
